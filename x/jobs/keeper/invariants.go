package keeper

import (
	"fmt"
	"math/big"

	"github.com/coolcode/alith/x/jobs/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// RegisterInvariants registers the jobs module invariants
func RegisterInvariants(ir sharedtypes.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "escrow", EscrowInvariant(k))
}

// EscrowInvariant checks that the escrow account holds at least the value
// of every unsettled job.
func EscrowInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		owed := new(big.Int)
		err := k.IterateJobs(ctx, func(job types.Job) (bool, error) {
			if !job.Settled {
				owed.Add(owed, sharedtypes.BigOrZero(job.Value))
			}
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "escrow",
				fmt.Sprintf("error iterating jobs: %v", err)), true
		}

		held := k.bankKeeper.GetBalance(ctx, k.escrow)
		broken := held.Cmp(owed) < 0
		return sharedtypes.FormatInvariant(types.ModuleName, "escrow",
			fmt.Sprintf("escrow %s holds %s, unsettled jobs owe %s", k.escrow.Hex(), held, owed)), broken
	}
}
