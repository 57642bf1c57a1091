package keeper

import (
	"context"
	"fmt"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/nodes/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// InitGenesis registers the genesis nodes
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid nodes genesis: %w", err)
	}
	for _, node := range data.Nodes {
		node.Fee = sharedtypes.CloneBig(node.Fee)
		node.Status = contracts.NodeStatusActive
		if err := k.SetNode(ctx, node); err != nil {
			return fmt.Errorf("failed to initialize node %s: %w", node.Address.Hex(), err)
		}
		k.appendToOrder(ctx, node.Address)
	}
	return nil
}

// ExportGenesis returns the registered nodes as a genesis state
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gs := types.DefaultGenesis()
	err := k.IterateNodes(ctx, func(node types.Node) (bool, error) {
		gs.Nodes = append(gs.Nodes, node)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}
