package keeper

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/nodes/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

var _ sharedtypes.ContractHandler = ContractHandler{}

// ContractHandler serves the node registry methods of the verified
// computing contract.
type ContractHandler struct {
	k  Keeper
	ms *msgServer
}

// NewContractHandler returns the contract handler of the node registry
func NewContractHandler(k Keeper) ContractHandler {
	return ContractHandler{k: k, ms: NewMsgServerImpl(k)}
}

func (h ContractHandler) Handles(method string) bool {
	switch method {
	case "addNode", "removeNode", "updateNodeFee",
		"getNode", "nodeList", "nodeListAt", "nodesCount", "isNode":
		return true
	}
	return false
}

func (h ContractHandler) Execute(ctx sharedtypes.Context, call sharedtypes.ContractCall) ([]interface{}, error) {
	switch call.Method.Name {
	case "addNode":
		var args struct {
			NodeAddress common.Address
			Url         string
			PublicKey   string
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.AddNode(ctx, &types.MsgAddNode{
			Sender:    call.Sender,
			Node:      args.NodeAddress,
			URL:       args.Url,
			PublicKey: args.PublicKey,
		})

	case "removeNode":
		var args struct{ NodeAddress common.Address }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.RemoveNode(ctx, &types.MsgRemoveNode{Sender: call.Sender, Node: args.NodeAddress})

	case "updateNodeFee":
		var args struct{ Fee *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return nil, h.ms.UpdateFee(ctx, &types.MsgUpdateFee{Sender: call.Sender, Fee: args.Fee})

	case "getNode":
		var args struct{ NodeAddress common.Address }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		node, found := h.k.GetNode(ctx, args.NodeAddress)
		if !found {
			return []interface{}{types.EmptyNodeInfo()}, nil
		}
		return []interface{}{node.ToContract()}, nil

	case "nodeList":
		addrs, err := h.k.NodeList(ctx)
		if err != nil {
			return nil, err
		}
		if addrs == nil {
			addrs = []common.Address{}
		}
		return []interface{}{addrs}, nil

	case "nodeListAt":
		var args struct{ Index *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		idx, ok := sharedtypes.IDFromBig(args.Index)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "node index %s", args.Index)
		}
		node, err := h.k.NodeAt(ctx, idx)
		if err != nil {
			return nil, err
		}
		return []interface{}{node.ToContract()}, nil

	case "nodesCount":
		count, err := h.k.NodeCount(ctx)
		if err != nil {
			return nil, err
		}
		return []interface{}{sharedtypes.BigFromID(count)}, nil

	case "isNode":
		var args struct{ NodeAddress common.Address }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return []interface{}{h.k.IsActiveNode(ctx, args.NodeAddress)}, nil
	}

	return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown method %s", call.Method.Name)
}
