package keeper

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"

	"github.com/coolcode/alith/x/jobs/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

var _ sharedtypes.ContractHandler = ContractHandler{}

// ContractHandler serves the job methods of the verified computing
// contract.
type ContractHandler struct {
	k  Keeper
	ms *msgServer
}

// NewContractHandler returns the contract handler of the job lifecycle
func NewContractHandler(k Keeper) ContractHandler {
	return ContractHandler{k: k, ms: NewMsgServerImpl(k)}
}

func (h ContractHandler) Handles(method string) bool {
	switch method {
	case "requestProof", "completeJob", "getJob", "fileJobIds", "jobsCount":
		return true
	}
	return false
}

func (h ContractHandler) Execute(ctx sharedtypes.Context, call sharedtypes.ContractCall) ([]interface{}, error) {
	switch call.Method.Name {
	case "requestProof":
		var args struct{ FileId *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, ok := sharedtypes.IDFromBig(args.FileId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", args.FileId)
		}
		_, err := h.ms.RequestProof(ctx, &types.MsgRequestProof{
			Sender: call.Sender,
			FileID: fileID,
			Value:  call.Value,
		})
		return nil, err

	case "completeJob":
		var args struct{ JobId *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		jobID, ok := sharedtypes.IDFromBig(args.JobId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "job %s", args.JobId)
		}
		return nil, h.ms.CompleteJob(ctx, &types.MsgCompleteJob{Sender: call.Sender, JobID: jobID})

	case "getJob":
		var args struct{ JobId *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		jobID, ok := sharedtypes.IDFromBig(args.JobId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "job %s", args.JobId)
		}
		job, err := h.k.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return []interface{}{job.ToContract()}, nil

	case "fileJobIds":
		var args struct{ FileId *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		ids := []*big.Int{}
		if fileID, ok := sharedtypes.IDFromBig(args.FileId); ok {
			for _, id := range h.k.FileJobIDs(ctx, fileID) {
				ids = append(ids, sharedtypes.BigFromID(id))
			}
		}
		return []interface{}{ids}, nil

	case "jobsCount":
		return []interface{}{sharedtypes.BigFromID(h.k.JobsCount(ctx))}, nil
	}

	return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown method %s", call.Method.Name)
}
