package keeper

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/bank/types"
)

// InitGenesis mints the genesis balances
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid bank genesis: %w", err)
	}
	for _, b := range data.Balances {
		if err := k.MintCoins(ctx, b.Address, b.Amount); err != nil {
			return fmt.Errorf("failed to fund %s: %w", b.Address.Hex(), err)
		}
	}
	return nil
}

// ExportGenesis returns the current balances as a genesis state
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gs := types.DefaultGenesis()
	err := k.IterateBalances(ctx, func(addr common.Address, amount *big.Int) (bool, error) {
		gs.Balances = append(gs.Balances, types.Balance{Address: addr, Amount: amount})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}
