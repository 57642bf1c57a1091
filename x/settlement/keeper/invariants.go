package keeper

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/settlement/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// RegisterInvariants registers the settlement module invariants
func RegisterInvariants(ir sharedtypes.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "user-balances", UserBalancesInvariant(k))
	ir.RegisterRoute(types.ModuleName, "vault-solvency", VaultSolvencyInvariant(k))
}

// UserBalancesInvariant checks that each user's total balance equals the
// available balance plus the balances of its inference accounts.
func UserBalancesInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		locked := make(map[common.Address]*big.Int)
		err := k.IterateAccounts(ctx, func(account types.Account) (bool, error) {
			if locked[account.User] == nil {
				locked[account.User] = new(big.Int)
			}
			locked[account.User].Add(locked[account.User], account.Balance)
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "user-balances",
				fmt.Sprintf("error iterating accounts: %v", err)), true
		}

		var (
			msg    string
			broken bool
		)
		err = k.IterateUsers(ctx, func(user types.User) (bool, error) {
			want := new(big.Int).Set(user.AvailableBalance)
			if l := locked[user.Address]; l != nil {
				want.Add(want, l)
			}
			if want.Cmp(user.TotalBalance) != 0 {
				broken = true
				msg += fmt.Sprintf("user %s total %s, available+locked %s\n", user.Address.Hex(), user.TotalBalance, want)
			}
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "user-balances",
				fmt.Sprintf("error iterating users: %v", err)), true
		}

		return sharedtypes.FormatInvariant(types.ModuleName, "user-balances", msg), broken
	}
}

// VaultSolvencyInvariant checks that the vault holds at least the sum of
// all user total balances.
func VaultSolvencyInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		owed := new(big.Int)
		err := k.IterateUsers(ctx, func(user types.User) (bool, error) {
			owed.Add(owed, user.TotalBalance)
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "vault-solvency",
				fmt.Sprintf("error iterating users: %v", err)), true
		}

		held := k.bankKeeper.GetBalance(ctx, k.vault)
		return sharedtypes.FormatInvariant(types.ModuleName, "vault-solvency",
			fmt.Sprintf("vault %s holds %s, users own %s", k.vault.Hex(), held, owed)), held.Cmp(owed) < 0
	}
}
