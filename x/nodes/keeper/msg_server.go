package keeper

import (
	"context"

	"github.com/coolcode/alith/x/nodes/types"
)

type msgServer struct {
	Keeper
}

// NewMsgServerImpl returns the message handlers of the node registry
func NewMsgServerImpl(keeper Keeper) *msgServer {
	return &msgServer{Keeper: keeper}
}

// AddNode handles node registration
func (ms msgServer) AddNode(ctx context.Context, msg *types.MsgAddNode) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.AddNode(ctx, msg.Sender, msg.Node, msg.URL, msg.PublicKey)
}

// RemoveNode handles node deregistration
func (ms msgServer) RemoveNode(ctx context.Context, msg *types.MsgRemoveNode) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.RemoveNode(ctx, msg.Sender, msg.Node)
}

// UpdateFee handles node fee updates
func (ms msgServer) UpdateFee(ctx context.Context, msg *types.MsgUpdateFee) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.UpdateFee(ctx, msg.Sender, msg.Fee)
}
