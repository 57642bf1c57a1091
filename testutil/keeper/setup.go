package keeper

import (
	"math/big"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/contracts"
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
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// Authority is the registry admin used by test keepers.
var Authority = common.HexToAddress("0x00000000000000000000000000000000000000ad")

// Keepers bundles the module keepers over one in-memory multistore.
type Keepers struct {
	Bank       bankkeeper.Keeper
	Nodes      nodeskeeper.Keeper
	Files      fileskeeper.Keeper
	Jobs       jobskeeper.Keeper
	Settlement settlementkeeper.Keeper
	Contracts  contracts.Config

	// StoreKeys maps each module's store key name to its mounted key.
	StoreKeys map[string]storetypes.StoreKey
}

// SetupKeepers creates all module keepers with mounted IAVL stores and
// returns them with a context at height 1.
func SetupKeepers(t testing.TB) (Keepers, sharedtypes.Context) {
	t.Helper()

	bankKey := storetypes.NewKVStoreKey(banktypes.StoreKey)
	nodesKey := storetypes.NewKVStoreKey(nodestypes.StoreKey)
	filesKey := storetypes.NewKVStoreKey(filestypes.StoreKey)
	jobsKey := storetypes.NewKVStoreKey(jobstypes.StoreKey)
	settlementKey := storetypes.NewKVStoreKey(settlementtypes.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	for _, key := range []storetypes.StoreKey{bankKey, nodesKey, filesKey, jobsKey, settlementKey} {
		stateStore.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	require.NoError(t, stateStore.LoadLatestVersion())

	cfg := contracts.DefaultConfig()
	bank := bankkeeper.NewKeeper(bankKey)
	nodes := nodeskeeper.NewKeeper(nodesKey, Authority)
	files := fileskeeper.NewKeeper(filesKey, nodes)
	jobs := jobskeeper.NewKeeper(jobsKey, cfg.VerifiedComputing, files, nodes, bank)
	settlement := settlementkeeper.NewKeeper(settlementKey, cfg.Settlement, bank, nodes, files, jobs)

	ctx := sharedtypes.NewContext(stateStore, 1, time.Unix(1_700_000_000, 0).UTC(), log.NewNopLogger())
	return Keepers{
		Bank:       bank,
		Nodes:      nodes,
		Files:      files,
		Jobs:       jobs,
		Settlement: settlement,
		Contracts:  cfg,
		StoreKeys: map[string]storetypes.StoreKey{
			banktypes.StoreKey:       bankKey,
			nodestypes.StoreKey:      nodesKey,
			filestypes.StoreKey:      filesKey,
			jobstypes.StoreKey:       jobsKey,
			settlementtypes.StoreKey: settlementKey,
		},
	}, ctx
}

// Fund mints amount to addr.
func Fund(t testing.TB, ctx sharedtypes.Context, k Keepers, addr common.Address, amount int64) {
	t.Helper()
	require.NoError(t, k.Bank.MintCoins(ctx, addr, big.NewInt(amount)))
}

// NewSigner returns a fresh secp256k1 signer.
func NewSigner(t testing.TB) *signing.Signer {
	t.Helper()
	s, err := signing.GenerateSigner()
	require.NoError(t, err)
	return s
}

// RegisterNode registers a fresh node with the given fee and returns its
// signer.
func RegisterNode(t testing.TB, ctx sharedtypes.Context, k Keepers, fee int64) *signing.Signer {
	t.Helper()
	node := NewSigner(t)
	addr := node.Address()
	require.NoError(t, k.Nodes.AddNode(ctx, addr, addr, "http://"+addr.Hex()[2:10]+".node", "pubkey"))
	if fee > 0 {
		require.NoError(t, k.Nodes.UpdateFee(ctx, addr, big.NewInt(fee)))
	}
	return node
}

// RequestProof escrows value from requester at the job escrow and requests
// a proof job, as the ledger does for a payable call.
func RequestProof(t testing.TB, ctx sharedtypes.Context, k Keepers, requester common.Address, fileID uint64, value int64) uint64 {
	t.Helper()
	require.NoError(t, k.Bank.SendCoins(ctx, requester, k.Jobs.EscrowAddress(), big.NewInt(value)))
	jobID, err := k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(value))
	require.NoError(t, err)
	return jobID
}

// Deposit sends amount from user to the settlement vault and credits it,
// as the ledger does for a payable call.
func Deposit(t testing.TB, ctx sharedtypes.Context, k Keepers, user common.Address, amount int64) {
	t.Helper()
	require.NoError(t, k.Bank.SendCoins(ctx, user, k.Settlement.VaultAddress(), big.NewInt(amount)))
	require.NoError(t, k.Settlement.Deposit(ctx, user, big.NewInt(amount)))
}

// SignProof signs a proof of fileID by node.
func SignProof(t testing.TB, node *signing.Signer, fileID uint64, fileURL, proofURL string) (signing.Signature, signing.ProofPayload) {
	t.Helper()
	data := signing.ProofPayload{ID: new(big.Int).SetUint64(fileID), FileURL: fileURL, ProofURL: proofURL}
	sig, err := node.Sign(data)
	require.NoError(t, err)
	return sig, data
}
