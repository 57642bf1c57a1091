package keeper

import (
	"context"

	"github.com/coolcode/alith/x/files/types"
)

type msgServer struct {
	Keeper
}

// NewMsgServerImpl returns the message handlers of the file registry
func NewMsgServerImpl(keeper Keeper) *msgServer {
	return &msgServer{Keeper: keeper}
}

// AddFile handles file registration
func (ms msgServer) AddFile(ctx context.Context, msg *types.MsgAddFile) (uint64, error) {
	if err := msg.ValidateBasic(); err != nil {
		return 0, err
	}
	return ms.Keeper.AddFile(ctx, msg.Sender, msg.URL)
}

// AddFileWithPermissions handles file registration on behalf of an owner
func (ms msgServer) AddFileWithPermissions(ctx context.Context, msg *types.MsgAddFileWithPermissions) (uint64, error) {
	if err := msg.ValidateBasic(); err != nil {
		return 0, err
	}
	return ms.Keeper.AddFileWithPermissions(ctx, msg.Owner, msg.URL, msg.Permissions)
}

// AddPermission handles permission grants
func (ms msgServer) AddPermission(ctx context.Context, msg *types.MsgAddPermission) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.AddPermission(ctx, msg.Sender, msg.FileID, msg.Account, msg.EncryptedKey)
}

// AddProof handles proof submission
func (ms msgServer) AddProof(ctx context.Context, msg *types.MsgAddProof) (uint64, error) {
	if err := msg.ValidateBasic(); err != nil {
		return 0, err
	}
	return ms.Keeper.AddProof(ctx, msg.FileID, msg.Signature, msg.Data)
}
