package keeper

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/bank/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// RegisterInvariants registers all bank module invariants
func RegisterInvariants(ir sharedtypes.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "total-supply", TotalSupplyInvariant(k))
}

// TotalSupplyInvariant checks that the balances add up to the minted supply
func TotalSupplyInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		total := new(big.Int)
		err := k.IterateBalances(ctx, func(_ common.Address, amount *big.Int) (bool, error) {
			total.Add(total, amount)
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "total-supply",
				fmt.Sprintf("error iterating balances: %v", err)), true
		}

		supply := k.GetSupply(ctx)
		broken := total.Cmp(supply) != 0
		return sharedtypes.FormatInvariant(types.ModuleName, "total-supply",
			fmt.Sprintf("sum of balances %s, supply %s", total, supply)), broken
	}
}
