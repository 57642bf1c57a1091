package keeper

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/jobs/types"
	"github.com/coolcode/alith/x/shared/codec"
	sharedkeeper "github.com/coolcode/alith/x/shared/keeper"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Keeper of the job lifecycle. Job values are held in escrow at the
// escrow address until the job's reward is released.
type Keeper struct {
	storeKey    storetypes.StoreKey
	escrow      common.Address
	filesKeeper types.FilesKeeper
	nodesKeeper types.NodesKeeper
	bankKeeper  types.BankKeeper
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new jobs Keeper instance
func NewKeeper(
	key storetypes.StoreKey,
	escrow common.Address,
	filesKeeper types.FilesKeeper,
	nodesKeeper types.NodesKeeper,
	bankKeeper types.BankKeeper,
) Keeper {
	return Keeper{
		storeKey:    key,
		escrow:      escrow,
		filesKeeper: filesKeeper,
		nodesKeeper: nodesKeeper,
		bankKeeper:  bankKeeper,
	}
}

// EscrowAddress returns the account holding job values
func (k Keeper) EscrowAddress() common.Address {
	return k.escrow
}

// getStore returns the KVStore for the jobs module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}
	return sharedtypes.UnwrapContext(ctx).KVStore(k.storeKey)
}

// RequestProof records a proof job for a file and assigns it to an active
// node. Nodes are picked round-robin by job id. The value must already be
// held at the escrow address and must cover the node's fee.
func (k Keeper) RequestProof(ctx context.Context, requester common.Address, fileID uint64, value *big.Int) (uint64, error) {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	if value != nil && value.Sign() < 0 {
		return 0, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "negative job value %s", value)
	}
	if !k.filesKeeper.HasFile(ctx, fileID) {
		return 0, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %d", fileID)
	}

	nodes, err := k.nodesKeeper.ActiveNodes(ctx)
	if err != nil {
		return 0, err
	}
	if len(nodes) == 0 {
		return 0, errorsmod.Wrap(sharedtypes.ErrNotFound, "no active nodes")
	}

	jobID := k.peekNextJobID(ctx)
	node := nodes[(jobID-1)%uint64(len(nodes))]
	value = sharedtypes.CloneBig(value)
	if node.Fee != nil && value.Cmp(node.Fee) < 0 {
		return 0, errorsmod.Wrapf(sharedtypes.ErrInsufficientBalance,
			"value %s below fee %s of node %s", value, node.Fee, node.Address.Hex())
	}

	k.getStore(ctx).Set(NextJobIDKey, GetJobIDBytes(jobID+1))
	job := types.Job{
		ID:          jobID,
		FileID:      fileID,
		Node:        node.Address,
		Requester:   requester,
		Value:       value,
		Status:      contracts.JobStatusRequested,
		RequestedAt: sdkCtx.BlockTime().Unix(),
	}
	if err := k.SetJob(ctx, job); err != nil {
		return 0, fmt.Errorf("failed to store job: %w", err)
	}
	k.getStore(ctx).Set(FileJobKey(fileID, jobID), []byte{})

	if err := k.nodesKeeper.IncrementJobsCount(ctx, node.Address); err != nil {
		return 0, err
	}

	sdkCtx.Logger().Debug("proof job requested",
		"job_id", jobID,
		"file_id", fileID,
		"node", node.Address.Hex(),
		"value", value.String(),
	)

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"job_submitted",
			sharedtypes.NewAttribute("job_id", fmt.Sprintf("%d", jobID)),
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", fileID)),
			sharedtypes.NewAttribute("node", node.Address.Hex()),
			sharedtypes.NewAttribute("value", value.String()),
		),
	)
	return jobID, nil
}

// CompleteJob marks a job completed. Only the assigned node may complete
// it, and only once.
func (k Keeper) CompleteJob(ctx context.Context, sender common.Address, jobID uint64) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	job, err := k.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := sharedkeeper.ValidateSelf("complete job", job.Node, sender); err != nil {
		return err
	}
	if job.IsCompleted() {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "job %d already completed", jobID)
	}

	job.Status = contracts.JobStatusCompleted
	job.CompletedAt = sdkCtx.BlockTime().Unix()
	if err := k.SetJob(ctx, job); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"job_complete",
			sharedtypes.NewAttribute("job_id", fmt.Sprintf("%d", jobID)),
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", job.FileID)),
			sharedtypes.NewAttribute("node", sender.Hex()),
		),
	)
	return nil
}

// SettleCompletedJob releases the escrowed value of the first completed,
// unsettled job of node for the file to the node.
func (k Keeper) SettleCompletedJob(ctx context.Context, fileID uint64, node common.Address) (types.Job, error) {
	var (
		job   types.Job
		found bool
	)
	err := k.IterateFileJobs(ctx, fileID, func(j types.Job) (bool, error) {
		if j.Node == node && j.IsCompleted() && !j.Settled {
			job, found = j, true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return types.Job{}, err
	}
	if !found {
		return types.Job{}, errorsmod.Wrapf(sharedtypes.ErrInvalidState,
			"node %s has no completed unsettled job for file %d", node.Hex(), fileID)
	}

	if err := k.bankKeeper.SendCoins(ctx, k.escrow, node, job.Value); err != nil {
		return types.Job{}, err
	}
	job.Settled = true
	if err := k.SetJob(ctx, job); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// GetJob retrieves a job by id
func (k Keeper) GetJob(ctx context.Context, jobID uint64) (types.Job, error) {
	bz := k.getStore(ctx).Get(JobKey(jobID))
	if bz == nil {
		return types.Job{}, errorsmod.Wrapf(sharedtypes.ErrNotFound, "job %d", jobID)
	}

	var job types.Job
	if err := codec.Unmarshal(bz, &job); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// SetJob stores a job record
func (k Keeper) SetJob(ctx context.Context, job types.Job) error {
	bz, err := codec.Marshal(job)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(JobKey(job.ID), bz)
	return nil
}

// FileJobIDs returns the job ids of a file in request order
func (k Keeper) FileJobIDs(ctx context.Context, fileID uint64) []uint64 {
	store := k.getStore(ctx)
	prefix := FileJobsKeyPrefix(fileID)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var ids []uint64
	for ; iterator.Valid(); iterator.Next() {
		ids = append(ids, GetJobIDFromBytes(iterator.Key()[len(prefix):]))
	}
	return ids
}

// IterateFileJobs iterates over the jobs of a file in request order
func (k Keeper) IterateFileJobs(ctx context.Context, fileID uint64, cb func(job types.Job) (stop bool, err error)) error {
	for _, id := range k.FileJobIDs(ctx, fileID) {
		job, err := k.GetJob(ctx, id)
		if err != nil {
			return err
		}
		stop, err := cb(job)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// IterateJobs iterates over all jobs in id order
func (k Keeper) IterateJobs(ctx context.Context, cb func(job types.Job) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, JobKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var job types.Job
		if err := codec.Unmarshal(iterator.Value(), &job); err != nil {
			return err
		}

		stop, err := cb(job)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// JobsCount returns the number of requested jobs
func (k Keeper) JobsCount(ctx context.Context) uint64 {
	return k.peekNextJobID(ctx) - 1
}

func (k Keeper) peekNextJobID(ctx context.Context) uint64 {
	nextID := GetJobIDFromBytes(k.getStore(ctx).Get(NextJobIDKey))
	if nextID == 0 {
		nextID = 1
	}
	return nextID
}
