package keeper

import (
	"context"

	"github.com/coolcode/alith/x/settlement/types"
)

type msgServer struct {
	Keeper
}

// NewMsgServerImpl returns the message handlers of the settlement module
func NewMsgServerImpl(keeper Keeper) *msgServer {
	return &msgServer{Keeper: keeper}
}

// AddUser handles user creation
func (ms msgServer) AddUser(ctx context.Context, msg *types.MsgDeposit) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.AddUser(ctx, msg.Sender, msg.Amount)
}

// Deposit handles deposits
func (ms msgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.Deposit(ctx, msg.Sender, msg.Amount)
}

// Withdraw handles withdrawals
func (ms msgServer) Withdraw(ctx context.Context, msg *types.MsgWithdraw) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.Withdraw(ctx, msg.Sender, msg.Amount)
}

// DepositInference handles inference account funding
func (ms msgServer) DepositInference(ctx context.Context, msg *types.MsgDepositInference) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.DepositInference(ctx, msg.Sender, msg.Node, msg.Amount)
}

// RetrieveInference handles inference account refunds
func (ms msgServer) RetrieveInference(ctx context.Context, msg *types.MsgRetrieveInference) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.RetrieveInference(ctx, msg.Sender, msg.Nodes)
}

// SettleFees handles node fee claims
func (ms msgServer) SettleFees(ctx context.Context, msg *types.MsgSettleFees) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.SettleFees(ctx, msg.Sender, msg.Proof)
}

// RequestReward handles proof reward claims
func (ms msgServer) RequestReward(ctx context.Context, msg *types.MsgRequestReward) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return ms.Keeper.RequestReward(ctx, msg.Sender, msg.FileID, msg.ProofIndex)
}
