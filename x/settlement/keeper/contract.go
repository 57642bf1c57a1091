package keeper

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/settlement/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

var (
	_ sharedtypes.ContractHandler = ContractHandler{}
	_ sharedtypes.ContractHandler = RewardHandler{}
)

// ContractHandler serves the settlement contract.
type ContractHandler struct {
	k  Keeper
	ms *msgServer
}

// NewContractHandler returns the contract handler of the settlement module
func NewContractHandler(k Keeper) ContractHandler {
	return ContractHandler{k: k, ms: NewMsgServerImpl(k)}
}

func (h ContractHandler) Handles(method string) bool {
	switch method {
	case "addUser", "deposit", "withdraw", "depositInference", "retrieveInference",
		"getUser", "getAccount", "settlementFees":
		return true
	}
	return false
}

func (h ContractHandler) Execute(ctx sharedtypes.Context, call sharedtypes.ContractCall) ([]interface{}, error) {
	switch call.Method.Name {
	case "addUser":
		return nil, h.ms.AddUser(ctx, &types.MsgDeposit{Sender: call.Sender, Amount: sharedtypes.BigOrZero(call.Value)})

	case "deposit":
		return nil, h.ms.Deposit(ctx, &types.MsgDeposit{Sender: call.Sender, Amount: sharedtypes.BigOrZero(call.Value)})

	case "withdraw":
		var args struct{ Amount *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.Withdraw(ctx, &types.MsgWithdraw{Sender: call.Sender, Amount: args.Amount})

	case "depositInference":
		var args struct {
			Node   common.Address
			Amount *big.Int
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.DepositInference(ctx, &types.MsgDepositInference{
			Sender: call.Sender,
			Node:   args.Node,
			Amount: args.Amount,
		})

	case "retrieveInference":
		var args struct{ Nodes []common.Address }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.RetrieveInference(ctx, &types.MsgRetrieveInference{Sender: call.Sender, Nodes: args.Nodes})

	case "getUser":
		var args struct{ Addr common.Address }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		user, found := h.k.GetUser(ctx, args.Addr)
		if !found {
			user = types.NewUser(common.Address{})
		}
		return []interface{}{user.ToContract()}, nil

	case "getAccount":
		var args struct {
			User common.Address
			Node common.Address
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		account, found := h.k.GetAccount(ctx, args.User, args.Node)
		if !found {
			account = types.NewAccount(common.Address{}, common.Address{})
		}
		return []interface{}{account.ToContract()}, nil

	case "settlementFees":
		var args struct{ Proof contracts.SettlementProof }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.SettleFees(ctx, &types.MsgSettleFees{
			Sender: call.Sender,
			Proof:  types.SettlementProofFromContract(args.Proof),
		})
	}

	return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown method %s", call.Method.Name)
}

// RewardHandler serves requestReward on the data registry contract.
type RewardHandler struct {
	ms *msgServer
}

// NewRewardHandler returns the reward claim handler
func NewRewardHandler(k Keeper) RewardHandler {
	return RewardHandler{ms: NewMsgServerImpl(k)}
}

func (h RewardHandler) Handles(method string) bool {
	return method == "requestReward"
}

func (h RewardHandler) Execute(ctx sharedtypes.Context, call sharedtypes.ContractCall) ([]interface{}, error) {
	if call.Method.Name != "requestReward" {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown method %s", call.Method.Name)
	}

	var args struct {
		FileId     *big.Int
		ProofIndex *big.Int
	}
	if err := call.CopyArgs(&args); err != nil {
		return nil, err
	}
	fileID, ok := sharedtypes.IDFromBig(args.FileId)
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", args.FileId)
	}
	index, ok := sharedtypes.IDFromBig(args.ProofIndex)
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "proof %s of file %d", args.ProofIndex, fileID)
	}
	return nil, h.ms.RequestReward(ctx, &types.MsgRequestReward{
		Sender:     call.Sender,
		FileID:     fileID,
		ProofIndex: index,
	})
}
