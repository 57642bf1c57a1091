package keeper_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/coolcode/alith/contracts"
	keepertest "github.com/coolcode/alith/testutil/keeper"
	"github.com/coolcode/alith/x/jobs/keeper"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

var requester = common.HexToAddress("0x00000000000000000000000000000000000000e1")

func setupFile(t *testing.T) (keepertest.Keepers, sharedtypes.Context, uint64) {
	t.Helper()
	k, ctx := keepertest.SetupKeepers(t)
	keepertest.Fund(t, ctx, k, requester, 1_000)
	id, err := k.Files.AddFile(ctx, requester, "ipfs://data")
	require.NoError(t, err)
	return k, ctx, id
}

func TestRequestProof(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	node := keepertest.RegisterNode(t, ctx, k, 10)

	jobID := keepertest.RequestProof(t, ctx, k, requester, fileID, 10)
	require.Equal(t, uint64(1), jobID)

	job, err := k.Jobs.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, fileID, job.FileID)
	require.Equal(t, node.Address(), job.Node)
	require.Equal(t, requester, job.Requester)
	require.Equal(t, contracts.JobStatusRequested, job.Status)
	require.Equal(t, int64(10), job.Value.Int64())

	require.Equal(t, []uint64{jobID}, k.Jobs.FileJobIDs(ctx, fileID))
	require.Equal(t, uint64(1), k.Jobs.JobsCount(ctx))

	info, _ := k.Nodes.GetNode(ctx, node.Address())
	require.Equal(t, uint64(1), info.JobsCount)
	require.Equal(t, int64(10), k.Bank.GetBalance(ctx, k.Jobs.EscrowAddress()).Int64())
}

func TestRequestProofErrors(t *testing.T) {
	k, ctx, fileID := setupFile(t)

	_, err := k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(0))
	require.ErrorIs(t, err, sharedtypes.ErrNotFound, "no active nodes")

	keepertest.RegisterNode(t, ctx, k, 10)
	_, err = k.Jobs.RequestProof(ctx, requester, fileID+1, big.NewInt(10))
	require.ErrorIs(t, err, sharedtypes.ErrNotFound)

	_, err = k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(9))
	require.ErrorIs(t, err, sharedtypes.ErrInsufficientBalance)

	_, err = k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(-10))
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)

	// failed requests consume no ids
	require.Zero(t, k.Jobs.JobsCount(ctx))
	_, err = k.Jobs.GetJob(ctx, 1)
	require.ErrorIs(t, err, sharedtypes.ErrNotFound)
}

func TestRoundRobinAssignment(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	a := keepertest.RegisterNode(t, ctx, k, 0)
	b := keepertest.RegisterNode(t, ctx, k, 0)

	var assigned []common.Address
	for i := 0; i < 4; i++ {
		jobID := keepertest.RequestProof(t, ctx, k, requester, fileID, 1)
		job, err := k.Jobs.GetJob(ctx, jobID)
		require.NoError(t, err)
		assigned = append(assigned, job.Node)
	}
	require.Equal(t, []common.Address{a.Address(), b.Address(), a.Address(), b.Address()}, assigned)
}

func TestCompleteJob(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	node := keepertest.RegisterNode(t, ctx, k, 0)
	jobID := keepertest.RequestProof(t, ctx, k, requester, fileID, 5)

	err := k.Jobs.CompleteJob(ctx, requester, jobID)
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)

	require.NoError(t, k.Jobs.CompleteJob(ctx, node.Address(), jobID))
	job, _ := k.Jobs.GetJob(ctx, jobID)
	require.Equal(t, contracts.JobStatusCompleted, job.Status)
	require.Equal(t, ctx.BlockTime().Unix(), job.CompletedAt)

	// a second completion is rejected and changes nothing
	err = k.Jobs.CompleteJob(ctx, node.Address(), jobID)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidState)
	again, _ := k.Jobs.GetJob(ctx, jobID)
	require.Equal(t, job, again)

	require.ErrorIs(t, k.Jobs.CompleteJob(ctx, node.Address(), 99), sharedtypes.ErrNotFound)
}

func TestSettleCompletedJob(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	node := keepertest.RegisterNode(t, ctx, k, 0)
	first := keepertest.RequestProof(t, ctx, k, requester, fileID, 7)
	second := keepertest.RequestProof(t, ctx, k, requester, fileID, 3)

	_, err := k.Jobs.SettleCompletedJob(ctx, fileID, node.Address())
	require.ErrorIs(t, err, sharedtypes.ErrInvalidState)

	require.NoError(t, k.Jobs.CompleteJob(ctx, node.Address(), second))
	job, err := k.Jobs.SettleCompletedJob(ctx, fileID, node.Address())
	require.NoError(t, err)
	require.Equal(t, second, job.ID)
	require.True(t, job.Settled)
	require.Equal(t, int64(3), k.Bank.GetBalance(ctx, node.Address()).Int64())
	require.Equal(t, int64(7), k.Bank.GetBalance(ctx, k.Jobs.EscrowAddress()).Int64())

	_, err = k.Jobs.SettleCompletedJob(ctx, fileID, node.Address())
	require.ErrorIs(t, err, sharedtypes.ErrInvalidState)

	require.NoError(t, k.Jobs.CompleteJob(ctx, node.Address(), first))
	job, err = k.Jobs.SettleCompletedJob(ctx, fileID, node.Address())
	require.NoError(t, err)
	require.Equal(t, first, job.ID)

	msg, broken := keeper.EscrowInvariant(k.Jobs)(ctx)
	require.False(t, broken, msg)
}

func TestEscrowInvariantDetectsShortfall(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	keepertest.RegisterNode(t, ctx, k, 0)

	// record a job without escrowing its value
	_, err := k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(50))
	require.NoError(t, err)

	_, broken := keeper.EscrowInvariant(k.Jobs)(ctx)
	require.True(t, broken)
}

func TestJobIDsStrictlyIncrease(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k, ctx, fileID := setupFile(t)
		keepertest.RegisterNode(t, ctx, k, 2)

		var last uint64
		n := rapid.IntRange(1, 15).Draw(rt, "requests")
		for i := 0; i < n; i++ {
			value := rapid.Int64Range(0, 4).Draw(rt, "value")
			id, err := k.Jobs.RequestProof(ctx, requester, fileID, big.NewInt(value))
			if value < 2 {
				require.ErrorIs(rt, err, sharedtypes.ErrInsufficientBalance)
				continue
			}
			require.NoError(rt, err)
			require.Equal(rt, last+1, id)
			last = id
		}
		require.Equal(rt, last, k.Jobs.JobsCount(ctx))
	})
}

func TestGenesisRoundTrip(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	node := keepertest.RegisterNode(t, ctx, k, 0)
	jobID := keepertest.RequestProof(t, ctx, k, requester, fileID, 4)
	require.NoError(t, k.Jobs.CompleteJob(ctx, node.Address(), jobID))

	exported, err := k.Jobs.ExportGenesis(ctx)
	require.NoError(t, err)
	require.Len(t, exported.Jobs, 1)

	k2, ctx2 := keepertest.SetupKeepers(t)
	require.NoError(t, k2.Jobs.InitGenesis(ctx2, *exported))
	require.Equal(t, []uint64{jobID}, k2.Jobs.FileJobIDs(ctx2, fileID))
	require.Equal(t, uint64(1), k2.Jobs.JobsCount(ctx2))
}

func TestContractHandler(t *testing.T) {
	k, ctx, fileID := setupFile(t)
	node := keepertest.RegisterNode(t, ctx, k, 0)
	h := keeper.NewContractHandler(k.Jobs)
	vc := contracts.VerifiedComputing

	require.NoError(t, k.Bank.SendCoins(ctx, requester, k.Jobs.EscrowAddress(), big.NewInt(6)))
	requestProof := vc.Methods["requestProof"]
	_, err := h.Execute(ctx, sharedtypes.ContractCall{
		Sender: requester,
		Value:  big.NewInt(6),
		Method: &requestProof,
		Args:   []interface{}{new(big.Int).SetUint64(fileID)},
	})
	require.NoError(t, err)

	completeJob := vc.Methods["completeJob"]
	_, err = h.Execute(ctx, sharedtypes.ContractCall{Sender: node.Address(), Method: &completeJob, Args: []interface{}{big.NewInt(1)}})
	require.NoError(t, err)

	getJob := vc.Methods["getJob"]
	out, err := h.Execute(ctx, sharedtypes.ContractCall{Method: &getJob, Args: []interface{}{big.NewInt(1)}})
	require.NoError(t, err)
	job := out[0].(contracts.Job)
	require.Equal(t, contracts.JobStatusCompleted, job.Status)
	require.Equal(t, int64(6), job.BidAmount.Int64())
	_, err = getJob.Outputs.Pack(out...)
	require.NoError(t, err)

	fileJobIDs := vc.Methods["fileJobIds"]
	out, err = h.Execute(ctx, sharedtypes.ContractCall{Method: &fileJobIDs, Args: []interface{}{new(big.Int).SetUint64(fileID)}})
	require.NoError(t, err)
	require.Len(t, out[0].([]*big.Int), 1)

	_, err = h.Execute(ctx, sharedtypes.ContractCall{Method: &getJob, Args: []interface{}{big.NewInt(2)}})
	require.ErrorIs(t, err, sharedtypes.ErrNotFound)
}
