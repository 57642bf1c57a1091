// Package app implements the in-memory ledger that hosts the file
// registry, the node registry, the job lifecycle and settlement.
//
// The ledger routes each transaction by contract address to the module
// handlers registered for it, decodes the calldata with the contract ABI
// and executes the call in a cached context. A call either commits all of
// its writes or none of them; the sender's sequence advances in both cases.
package app

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/app/ante"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	bankkeeper "github.com/coolcode/alith/x/bank/keeper"
	banktypes "github.com/coolcode/alith/x/bank/types"
	fileskeeper "github.com/coolcode/alith/x/files/keeper"
	filestypes "github.com/coolcode/alith/x/files/types"
	jobskeeper "github.com/coolcode/alith/x/jobs/keeper"
	jobstypes "github.com/coolcode/alith/x/jobs/types"
	nodeskeeper "github.com/coolcode/alith/x/nodes/keeper"
	nodestypes "github.com/coolcode/alith/x/nodes/types"
	settlementkeeper "github.com/coolcode/alith/x/settlement/keeper"
	settlementtypes "github.com/coolcode/alith/x/settlement/types"
	"github.com/coolcode/alith/x/shared/abci"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

const (
	// Name is the application name.
	Name = "alith"

	// BaseGas and DataGasPerByte price the nominal gas reported in receipts.
	BaseGas        = uint64(21000)
	DataGasPerByte = uint64(16)
)

// Option configures the App.
type Option func(*App)

// WithChainID sets the chain id transactions must be signed for.
func WithChainID(id *big.Int) Option {
	return func(app *App) { app.chainID = new(big.Int).Set(id) }
}

// WithContracts sets the contract deployment addresses.
func WithContracts(cfg contracts.Config) Option {
	return func(app *App) { app.contracts = cfg }
}

// WithAuthority sets the registry admin allowed to manage nodes.
func WithAuthority(addr common.Address) Option {
	return func(app *App) { app.authority = addr }
}

// WithClock sets the source of block time.
func WithClock(clock func() time.Time) Option {
	return func(app *App) { app.clock = clock }
}

// WithInvariantCheck makes every transaction assert all registered
// invariants before it commits.
func WithInvariantCheck(enabled bool) Option {
	return func(app *App) { app.checkInvariants = enabled }
}

// WithMaxDataBytes bounds the calldata of one transaction.
func WithMaxDataBytes(n int) Option {
	return func(app *App) { app.maxDataBytes = n }
}

type route struct {
	abi      *abi.ABI
	handlers []sharedtypes.ContractHandler
}

func (r route) handlerFor(method string) (sharedtypes.ContractHandler, bool) {
	for _, h := range r.handlers {
		if h.Handles(method) {
			return h, true
		}
	}
	return nil, false
}

type registeredInvariant struct {
	route string
	invar sharedtypes.Invariant
}

// App is the in-memory ledger.
type App struct {
	mu sync.RWMutex

	logger          log.Logger
	chainID         *big.Int
	contracts       contracts.Config
	authority       common.Address
	clock           func() time.Time
	checkInvariants bool
	maxDataBytes    int

	cms    storetypes.CommitMultiStore
	keys   map[string]*storetypes.KVStoreKey
	height int64

	BankKeeper       bankkeeper.Keeper
	NodesKeeper      nodeskeeper.Keeper
	FilesKeeper      fileskeeper.Keeper
	JobsKeeper       jobskeeper.Keeper
	SettlementKeeper settlementkeeper.Keeper

	routes      map[common.Address]route
	anteHandler ante.AnteHandler
	invariants  []registeredInvariant
	metrics     *LedgerMetrics
}

var _ sharedtypes.InvariantRegistry = (*App)(nil)

// NewApp mounts the module stores on db and wires the keepers and contract
// routes. State already committed to db is loaded.
func NewApp(logger log.Logger, db dbm.DB, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	app := &App{
		logger:    logger.With("module", "ledger"),
		chainID:   big.NewInt(contracts.LocalChainID),
		contracts: contracts.DefaultConfig(),
		clock:     func() time.Time { return time.Now().UTC() },
		keys:      make(map[string]*storetypes.KVStoreKey),
		metrics:   NewLedgerMetrics(),
	}
	for _, opt := range opts {
		opt(app)
	}
	if err := app.contracts.Validate(); err != nil {
		return nil, err
	}

	app.cms = store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	for _, name := range []string{
		banktypes.StoreKey,
		nodestypes.StoreKey,
		filestypes.StoreKey,
		jobstypes.StoreKey,
		settlementtypes.StoreKey,
	} {
		key := storetypes.NewKVStoreKey(name)
		app.keys[name] = key
		app.cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	}
	if err := app.cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	app.height = app.cms.LastCommitID().Version

	app.BankKeeper = bankkeeper.NewKeeper(app.keys[banktypes.StoreKey])
	app.NodesKeeper = nodeskeeper.NewKeeper(app.keys[nodestypes.StoreKey], app.authority)
	app.FilesKeeper = fileskeeper.NewKeeper(app.keys[filestypes.StoreKey], app.NodesKeeper)
	app.JobsKeeper = jobskeeper.NewKeeper(
		app.keys[jobstypes.StoreKey],
		app.contracts.VerifiedComputing,
		app.FilesKeeper,
		app.NodesKeeper,
		app.BankKeeper,
	)
	app.SettlementKeeper = settlementkeeper.NewKeeper(
		app.keys[settlementtypes.StoreKey],
		app.contracts.Settlement,
		app.BankKeeper,
		app.NodesKeeper,
		app.FilesKeeper,
		app.JobsKeeper,
	)

	app.routes = map[common.Address]route{
		app.contracts.DataRegistry: {
			abi: &contracts.DataRegistry,
			handlers: []sharedtypes.ContractHandler{
				fileskeeper.NewContractHandler(app.FilesKeeper),
				settlementkeeper.NewRewardHandler(app.SettlementKeeper),
			},
		},
		app.contracts.VerifiedComputing: {
			abi: &contracts.VerifiedComputing,
			handlers: []sharedtypes.ContractHandler{
				nodeskeeper.NewContractHandler(app.NodesKeeper),
				jobskeeper.NewContractHandler(app.JobsKeeper),
			},
		},
		app.contracts.Settlement: {
			abi: &contracts.Settlement,
			handlers: []sharedtypes.ContractHandler{
				settlementkeeper.NewContractHandler(app.SettlementKeeper),
			},
		},
	}

	bankkeeper.RegisterInvariants(app, app.BankKeeper)
	fileskeeper.RegisterInvariants(app, app.FilesKeeper)
	jobskeeper.RegisterInvariants(app, app.JobsKeeper)
	settlementkeeper.RegisterInvariants(app, app.SettlementKeeper)

	anteHandler, err := ante.NewAnteHandler(ante.HandlerOptions{
		SequenceKeeper: app.BankKeeper,
		ChainID:        app.chainID,
		MaxDataBytes:   app.maxDataBytes,
	})
	if err != nil {
		return nil, err
	}
	app.anteHandler = anteHandler
	app.metrics.Height.Set(float64(app.height))

	return app, nil
}

// NewMemApp returns an App over a fresh in-memory database.
func NewMemApp(logger log.Logger, opts ...Option) (*App, error) {
	return NewApp(logger, dbm.NewMemDB(), opts...)
}

// Name returns the application name.
func (app *App) Name() string { return Name }

// ChainID returns the chain id transactions are signed for.
func (app *App) ChainID() *big.Int { return new(big.Int).Set(app.chainID) }

// Contracts returns the contract deployment addresses.
func (app *App) Contracts() contracts.Config { return app.contracts }

// Authority returns the registry admin.
func (app *App) Authority() common.Address { return app.authority }

// Height returns the last committed height.
func (app *App) Height() int64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.height
}

// RegisterRoute implements sharedtypes.InvariantRegistry.
func (app *App) RegisterRoute(moduleName, route string, invar sharedtypes.Invariant) {
	app.invariants = append(app.invariants, registeredInvariant{
		route: moduleName + "/" + route,
		invar: invar,
	})
}

// newContext returns a context for the next block over the committed
// multistore. Callers hold app.mu.
func (app *App) newContext() sharedtypes.Context {
	return sharedtypes.NewContext(app.cms, app.height+1, app.clock(), app.logger)
}

func (app *App) commit() {
	app.cms.Commit()
	app.height++
	app.metrics.Height.Set(float64(app.height))
}

// InitChain loads gs into an empty ledger and commits it as height 1.
func (app *App) InitChain(gs GenesisState) error {
	mg, err := decodeGenesis(gs)
	if err != nil {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, err.Error())
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	if app.height != 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "ledger already initialized at height %d", app.height)
	}

	ctx, write := app.newContext().CacheContext()
	if err := app.BankKeeper.InitGenesis(ctx, mg.bank); err != nil {
		return err
	}
	if err := app.NodesKeeper.InitGenesis(ctx, mg.nodes); err != nil {
		return err
	}
	if err := app.FilesKeeper.InitGenesis(ctx, mg.files); err != nil {
		return err
	}
	if err := app.JobsKeeper.InitGenesis(ctx, mg.jobs); err != nil {
		return err
	}
	if err := app.SettlementKeeper.InitGenesis(ctx, mg.settlement); err != nil {
		return err
	}
	if route, msg, broken := app.assertInvariants(ctx); broken {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "genesis breaks %s: %s", route, msg)
	}
	write()
	app.commit()

	app.logger.Info("ledger initialized",
		"chain_id", app.chainID.String(),
		"balances", len(mg.bank.Balances),
		"nodes", len(mg.nodes.Nodes),
		"files", len(mg.files.Files),
	)
	return nil
}

// ExportGenesis exports the committed state of every module.
func (app *App) ExportGenesis() (GenesisState, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	ctx := app.newContext()
	genesis := make(GenesisState)

	bankGenesis, err := app.BankKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[banktypes.ModuleName] = mustMarshalJSON(bankGenesis)

	nodesGenesis, err := app.NodesKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[nodestypes.ModuleName] = mustMarshalJSON(nodesGenesis)

	filesGenesis, err := app.FilesKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[filestypes.ModuleName] = mustMarshalJSON(filesGenesis)

	jobsGenesis, err := app.JobsKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[jobstypes.ModuleName] = mustMarshalJSON(jobsGenesis)

	settlementGenesis, err := app.SettlementKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[settlementtypes.ModuleName] = mustMarshalJSON(settlementGenesis)

	return genesis, nil
}

// Fund mints amount to addr and commits. It backs the development faucet.
func (app *App) Fund(addr common.Address, amount *big.Int) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	ctx, write := app.newContext().CacheContext()
	if err := app.BankKeeper.MintCoins(ctx, addr, amount); err != nil {
		return err
	}
	write()
	app.commit()
	app.logger.Debug("faucet funded account", "address", addr.Hex(), "amount", amount.String())
	return nil
}

// Balance returns the committed native balance of addr.
func (app *App) Balance(addr common.Address) *big.Int {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.BankKeeper.GetBalance(app.newContext(), addr)
}

// Sequence returns the next expected transaction nonce of addr.
func (app *App) Sequence(addr common.Address) uint64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.BankKeeper.GetSequence(app.newContext(), addr)
}

// CheckInvariants asserts every registered invariant against committed
// state and returns ErrInvalidState naming the first broken one.
func (app *App) CheckInvariants() error {
	app.mu.RLock()
	defer app.mu.RUnlock()
	ctx, _ := app.newContext().CacheContext()
	if route, msg, broken := app.assertInvariants(ctx); broken {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "invariant %s broken: %s", route, msg)
	}
	return nil
}

func (app *App) assertInvariants(ctx sharedtypes.Context) (string, string, bool) {
	for _, ri := range app.invariants {
		if msg, broken := ri.invar(ctx); broken {
			app.metrics.Invariants.WithLabelValues(ri.route).Inc()
			return ri.route, msg, true
		}
	}
	return "", "", false
}

// DeliverTx checks, executes and commits one signed transaction.
//
// A transaction rejected by the ante chain (wrong chain, bad signature,
// stale nonce) is not included and returns no receipt. Once included, the
// receipt reports whether the call succeeded; a failed call leaves no state
// behind except the advanced sequence, and its error is returned alongside
// the receipt.
func (app *App) DeliverTx(tx ante.SignedTx) (*ledger.Receipt, error) {
	start := time.Now()
	defer func() { app.metrics.TxDuration.Observe(time.Since(start).Seconds()) }()

	app.mu.Lock()
	defer app.mu.Unlock()

	ctx := app.newContext()
	ctx, err := app.anteHandler(ctx, tx)
	if err != nil {
		app.metrics.Txs.WithLabelValues(sharedtypes.Kind(err)).Inc()
		app.logger.Debug("transaction rejected", "from", tx.Envelope.From.Hex(), "error", err.Error())
		return nil, err
	}

	receipt := &ledger.Receipt{
		TxHash:  tx.Hash(),
		Height:  uint64(ctx.BlockHeight()),
		GasUsed: BaseGas + DataGasPerByte*uint64(len(tx.Envelope.Data)),
	}

	execCtx, write := ctx.CacheContext()
	op, execErr := app.execute(execCtx, tx.Envelope)
	if execErr == nil && app.checkInvariants {
		if route, msg, broken := app.assertInvariants(execCtx); broken {
			execErr = errorsmod.Wrapf(sharedtypes.ErrLedger, "invariant %s broken: %s", route, msg)
		}
	}

	if execErr == nil {
		write()
		receipt.Status = ledger.ReceiptStatusSuccessful
		receipt.Events = execCtx.EventManager().Events()
	} else {
		abci.NewTxErrorHandler(ctx, Name).HandleError(op, execErr)
		receipt.Status = ledger.ReceiptStatusFailed
		receipt.Events = ctx.EventManager().Events()
	}
	app.commit()
	app.metrics.Txs.WithLabelValues(sharedtypes.Kind(execErr)).Inc()

	app.logger.Debug("transaction delivered",
		"hash", receipt.TxHash.Hex(),
		"height", receipt.Height,
		"operation", op,
		"status", receipt.Status,
	)
	return receipt, execErr
}

// execute runs the call in env against ctx. It returns the method name for
// logging.
func (app *App) execute(ctx sharedtypes.Context, env ante.Envelope) (string, error) {
	value := sharedtypes.BigOrZero(env.Value)

	rt, ok := app.routes[env.To]
	if !ok {
		if len(env.Data) != 0 {
			return "call", errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "no contract at %s", env.To.Hex())
		}
		return "transfer", app.BankKeeper.SendCoins(ctx, env.From, env.To, value)
	}

	method, args, err := decodeCall(rt.abi, env.Data)
	if err != nil {
		return "call", err
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return method.Name, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "%s is not payable", method.Name)
	}
	handler, ok := rt.handlerFor(method.Name)
	if !ok {
		return method.Name, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "no handler for %s", method.Name)
	}
	if value.Sign() > 0 {
		if err := app.BankKeeper.SendCoins(ctx, env.From, env.To, value); err != nil {
			return method.Name, err
		}
	}

	call := sharedtypes.ContractCall{
		Sender: env.From,
		Value:  value,
		Method: method,
		Args:   args,
	}
	_, err = abci.SafeExecute(ctx, method.Name, func() ([]interface{}, error) {
		return handler.Execute(ctx, call)
	})
	return method.Name, err
}

// Query executes a read-only call and returns the ABI-encoded outputs.
func (app *App) Query(msg ledger.CallMsg) ([]byte, error) {
	out, err := app.query(msg)
	app.metrics.Queries.WithLabelValues(sharedtypes.Kind(err)).Inc()
	return out, err
}

func (app *App) query(msg ledger.CallMsg) ([]byte, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	rt, ok := app.routes[msg.To]
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "no contract at %s", msg.To.Hex())
	}
	method, args, err := decodeCall(rt.abi, msg.Data)
	if err != nil {
		return nil, err
	}
	if !method.IsConstant() {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "%s is not a view method", method.Name)
	}
	handler, ok := rt.handlerFor(method.Name)
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "no handler for %s", method.Name)
	}

	// Views never write, but run them on a cache so a buggy handler cannot
	// touch committed state.
	ctx, _ := app.newContext().CacheContext()
	call := sharedtypes.ContractCall{
		Sender: msg.From,
		Value:  new(big.Int),
		Method: method,
		Args:   args,
	}
	outputs, err := abci.SafeExecute(ctx, method.Name, func() ([]interface{}, error) {
		return handler.Execute(ctx, call)
	})
	if err != nil {
		return nil, err
	}
	bz, err := method.Outputs.Pack(outputs...)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "pack %s outputs: %s", method.Name, err)
	}
	return bz, nil
}

func decodeCall(parsed *abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "calldata shorter than a selector")
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown selector %x", data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "decode %s arguments: %s", method.Name, err)
	}
	return method, args, nil
}

// InvariantRoutes lists the registered invariant routes.
func (app *App) InvariantRoutes() []string {
	routes := make([]string, 0, len(app.invariants))
	for _, ri := range app.invariants {
		routes = append(routes, ri.route)
	}
	sort.Strings(routes)
	return routes
}
