package keeper

import (
	"context"

	"github.com/coolcode/alith/x/jobs/types"
)

type msgServer struct {
	Keeper
}

// NewMsgServerImpl returns the message handlers of the job lifecycle
func NewMsgServerImpl(keeper Keeper) *msgServer {
	return &msgServer{Keeper: keeper}
}

// RequestProof handles proof job requests
func (ms msgServer) RequestProof(ctx context.Context, msg *types.MsgRequestProof) (uint64, error) {
	if err := msg.ValidateBasic(); err != nil {
		return 0, err
	}
	return ms.Keeper.RequestProof(ctx, msg.Sender, msg.FileID, msg.Value)
}

// CompleteJob handles job completion
func (ms msgServer) CompleteJob(ctx context.Context, msg *types.MsgCompleteJob) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.CompleteJob(ctx, msg.Sender, msg.JobID)
}
