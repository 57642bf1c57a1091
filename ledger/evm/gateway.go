// Package evm implements ledger.Gateway against an Ethereum JSON-RPC
// endpoint hosting the DataRegistry, VerifiedComputing and Settlement
// contracts.
package evm

import (
	"context"
	"math/big"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

const (
	// DefaultGasMarginPercent is added on top of the estimated gas.
	DefaultGasMarginPercent = 20
	// DefaultReceiptTimeout bounds how long Submit waits for inclusion.
	DefaultReceiptTimeout = 2 * time.Minute
)

// Backend is the subset of *ethclient.Client the gateway uses.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Config holds the gateway settings.
type Config struct {
	// ChainID, when set, must match the endpoint's chain id.
	ChainID          *big.Int
	GasMarginPercent uint64
	ReceiptTimeout   time.Duration
}

// Gateway signs EIP-1559 transactions for one account and waits for them to
// be mined.
type Gateway struct {
	backend  Backend
	signer   *signing.Signer
	chainID  *big.Int
	txSigner types.Signer
	cfg      Config
	logger   log.Logger

	// mu keeps nonce assignment and submission in order.
	mu sync.Mutex
}

var _ ledger.Gateway = (*Gateway)(nil)

// Dial connects to endpoint and returns a gateway for signer.
func Dial(ctx context.Context, endpoint string, signer *signing.Signer, cfg Config, logger log.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "dial %s: %s", endpoint, err)
	}
	gw, err := NewGateway(ctx, client, signer, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return gw, nil
}

// NewGateway returns a gateway over backend. It queries the chain id once.
func NewGateway(ctx context.Context, backend Backend, signer *signing.Signer, cfg Config, logger log.Logger) (*Gateway, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.GasMarginPercent == 0 {
		cfg.GasMarginPercent = DefaultGasMarginPercent
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = DefaultReceiptTimeout
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "chain id: %s", err)
	}
	if cfg.ChainID != nil && cfg.ChainID.Cmp(chainID) != 0 {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "endpoint chain id %s, configured %s", chainID, cfg.ChainID)
	}

	return &Gateway{
		backend:  backend,
		signer:   signer,
		chainID:  chainID,
		txSigner: types.LatestSignerForChainID(chainID),
		cfg:      cfg,
		logger:   logger.With("module", "ledger/evm"),
	}, nil
}

// Address returns the signing account.
func (g *Gateway) Address() common.Address { return g.signer.Address() }

// ChainID returns the endpoint's chain id.
func (g *Gateway) ChainID() *big.Int { return new(big.Int).Set(g.chainID) }

// Submit signs tx as a dynamic-fee transaction, sends it and waits for its
// receipt. A reverted transaction returns its receipt and the classified
// revert error.
func (g *Gateway) Submit(ctx context.Context, tx ledger.Tx) (*ledger.Receipt, error) {
	g.mu.Lock()
	signed, err := g.signTx(ctx, tx)
	if err == nil {
		err = g.backend.SendTransaction(ctx, signed)
		if err != nil {
			err = classifyCallError(err)
		}
	}
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	g.logger.Debug("transaction sent", "hash", signed.Hash().Hex(), "to", tx.To.Hex(), "nonce", signed.Nonce())

	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.ReceiptTimeout)
	defer cancel()
	mined, err := bind.WaitMined(waitCtx, g.backend, signed)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "wait for %s: %s", signed.Hash().Hex(), err)
	}

	receipt := &ledger.Receipt{
		TxHash:  mined.TxHash,
		Status:  mined.Status,
		GasUsed: mined.GasUsed,
		Events:  decodeLogs(mined.Logs),
	}
	if mined.BlockNumber != nil {
		receipt.Height = mined.BlockNumber.Uint64()
	}
	if mined.Status == types.ReceiptStatusSuccessful {
		return receipt, nil
	}
	return receipt, g.revertReason(ctx, tx, mined.BlockNumber)
}

func (g *Gateway) signTx(ctx context.Context, tx ledger.Tx) (*types.Transaction, error) {
	from := g.signer.Address()
	value := sharedtypes.BigOrZero(tx.Value)
	to := tx.To

	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "nonce: %s", err)
	}
	tip, err := g.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "gas tip: %s", err)
	}
	head, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "latest header: %s", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  tx.Data,
	})
	if err != nil {
		// Estimation executes the call, so a revert surfaces here first.
		return nil, classifyCallError(err)
	}
	gas += gas * g.cfg.GasMarginPercent / 100

	signed, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	}), g.txSigner, g.signer.PrivateKey())
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "sign transaction: %s", err)
	}
	return signed, nil
}

// revertReason replays a reverted transaction as a call at its block to
// recover the revert reason.
func (g *Gateway) revertReason(ctx context.Context, tx ledger.Tx, block *big.Int) error {
	to := tx.To
	_, err := g.backend.CallContract(ctx, ethereum.CallMsg{
		From:  g.signer.Address(),
		To:    &to,
		Value: sharedtypes.BigOrZero(tx.Value),
		Data:  tx.Data,
	}, block)
	if err == nil {
		return errorsmod.Wrap(sharedtypes.ErrInvalidState, "transaction reverted")
	}
	return classifyCallError(err)
}

// Call executes a read-only call against the latest block.
func (g *Gateway) Call(ctx context.Context, msg ledger.CallMsg) ([]byte, error) {
	from := msg.From
	if from == (common.Address{}) {
		from = g.signer.Address()
	}
	to := msg.To
	out, err := g.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: msg.Data}, nil)
	if err != nil {
		return nil, classifyCallError(err)
	}
	return out, nil
}

// BalanceAt returns the latest native balance of addr.
func (g *Gateway) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := g.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "balance of %s: %s", addr.Hex(), err)
	}
	return bal, nil
}
