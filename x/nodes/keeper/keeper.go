package keeper

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/nodes/types"
	"github.com/coolcode/alith/x/shared/codec"
	sharedkeeper "github.com/coolcode/alith/x/shared/keeper"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Keeper of the node registry
type Keeper struct {
	storeKey  storetypes.StoreKey
	authority common.Address
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new nodes Keeper instance. The authority may register
// nodes on their behalf.
func NewKeeper(key storetypes.StoreKey, authority common.Address) Keeper {
	return Keeper{storeKey: key, authority: authority}
}

// GetAuthority returns the registry admin address
func (k Keeper) GetAuthority() common.Address {
	return k.authority
}

// getStore returns the KVStore for the nodes module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}
	return sharedtypes.UnwrapContext(ctx).KVStore(k.storeKey)
}

// AddNode registers a node. The sender must be the node itself or the
// registry authority; a node that is already registered is rejected.
func (k Keeper) AddNode(ctx context.Context, sender, addr common.Address, url, publicKey string) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	if err := sharedkeeper.ValidateSelfOrAuthority("add node", addr, k.authority, sender); err != nil {
		return err
	}
	if existing, found := k.GetNode(ctx, addr); found && existing.IsActive() {
		return errorsmod.Wrapf(sharedtypes.ErrNodeAlreadyActive, "node %s", addr.Hex())
	}

	node := types.Node{
		Address:   addr,
		URL:       url,
		PublicKey: publicKey,
		Fee:       new(big.Int),
		Status:    contracts.NodeStatusActive,
		AddedAt:   sdkCtx.BlockTime().Unix(),
	}
	if err := k.SetNode(ctx, node); err != nil {
		return fmt.Errorf("failed to store node: %w", err)
	}
	k.appendToOrder(ctx, addr)

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"node_added",
			sharedtypes.NewAttribute("node", addr.Hex()),
			sharedtypes.NewAttribute("url", url),
		),
	)
	sdkCtx.Logger().Info("node registered", "node", addr.Hex(), "url", url)
	return nil
}

// RemoveNode deregisters a node. Only the node itself may remove its
// registration; removing an unregistered node is a no-op.
func (k Keeper) RemoveNode(ctx context.Context, sender, addr common.Address) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	if err := sharedkeeper.ValidateSelf("remove node", addr, sender); err != nil {
		return err
	}
	if _, found := k.GetNode(ctx, addr); !found {
		return nil
	}

	store := k.getStore(ctx)
	store.Delete(NodeKey(addr))
	if bz := store.Get(NodeSeqKey(addr)); bz != nil {
		store.Delete(NodeOrderKey(decodeSeq(bz)))
		store.Delete(NodeSeqKey(addr))
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"node_removed",
			sharedtypes.NewAttribute("node", addr.Hex()),
		),
	)
	sdkCtx.Logger().Info("node removed", "node", addr.Hex())
	return nil
}

// UpdateFee sets the fee of the sender's own node
func (k Keeper) UpdateFee(ctx context.Context, sender common.Address, fee *big.Int) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	if fee != nil && fee.Sign() < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "negative fee %s", fee)
	}
	node, found := k.GetNode(ctx, sender)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "node %s", sender.Hex())
	}

	node.Fee = sharedtypes.CloneBig(fee)
	if err := k.SetNode(ctx, node); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"node_fee_updated",
			sharedtypes.NewAttribute("node", sender.Hex()),
			sharedtypes.NewAttribute("fee", node.Fee.String()),
		),
	)
	return nil
}

// IncrementJobsCount records that a job was assigned to the node
func (k Keeper) IncrementJobsCount(ctx context.Context, addr common.Address) error {
	node, found := k.GetNode(ctx, addr)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "node %s", addr.Hex())
	}
	node.JobsCount++
	return k.SetNode(ctx, node)
}

// GetNode retrieves a node by address. It panics on a record that does not
// decode.
func (k Keeper) GetNode(ctx context.Context, addr common.Address) (types.Node, bool) {
	bz := k.getStore(ctx).Get(NodeKey(addr))
	if bz == nil {
		return types.Node{}, false
	}

	var node types.Node
	if err := codec.Unmarshal(bz, &node); err != nil {
		panic(fmt.Errorf("decode node %s: %w", addr.Hex(), err))
	}
	return node, true
}

// SetNode stores a node record
func (k Keeper) SetNode(ctx context.Context, node types.Node) error {
	bz, err := codec.Marshal(node)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(NodeKey(node.Address), bz)
	return nil
}

// IsActiveNode reports whether addr is a registered, active node
func (k Keeper) IsActiveNode(ctx context.Context, addr common.Address) bool {
	node, found := k.GetNode(ctx, addr)
	return found && node.IsActive()
}

func (k Keeper) appendToOrder(ctx context.Context, addr common.Address) {
	store := k.getStore(ctx)
	seq := decodeSeq(store.Get(NextNodeSeqKey))
	store.Set(NextNodeSeqKey, encodeSeq(seq+1))
	store.Set(NodeOrderKey(seq), addr.Bytes())
	store.Set(NodeSeqKey(addr), encodeSeq(seq))
}

// IterateNodes iterates over registered nodes in registration order
func (k Keeper) IterateNodes(ctx context.Context, cb func(node types.Node) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, NodeOrderPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		node, found := k.GetNode(ctx, common.BytesToAddress(iterator.Value()))
		if !found {
			continue
		}

		stop, err := cb(node)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// NodeList returns the addresses of all registered nodes in registration order
func (k Keeper) NodeList(ctx context.Context) ([]common.Address, error) {
	var addrs []common.Address
	err := k.IterateNodes(ctx, func(node types.Node) (bool, error) {
		addrs = append(addrs, node.Address)
		return false, nil
	})
	return addrs, err
}

// ActiveNodes returns all active nodes in registration order
func (k Keeper) ActiveNodes(ctx context.Context) ([]types.Node, error) {
	var nodes []types.Node
	err := k.IterateNodes(ctx, func(node types.Node) (bool, error) {
		if node.IsActive() {
			nodes = append(nodes, node)
		}
		return false, nil
	})
	return nodes, err
}

// NodeAt returns the i-th registered node (zero based)
func (k Keeper) NodeAt(ctx context.Context, i uint64) (types.Node, error) {
	var (
		result types.Node
		found  bool
		pos    uint64
	)
	err := k.IterateNodes(ctx, func(node types.Node) (bool, error) {
		if pos == i {
			result, found = node, true
			return true, nil
		}
		pos++
		return false, nil
	})
	if err != nil {
		return types.Node{}, err
	}
	if !found {
		return types.Node{}, errorsmod.Wrapf(sharedtypes.ErrNotFound, "node index %d", i)
	}
	return result, nil
}

// NodeCount returns the number of registered nodes
func (k Keeper) NodeCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := k.IterateNodes(ctx, func(types.Node) (bool, error) {
		count++
		return false, nil
	})
	return count, err
}
