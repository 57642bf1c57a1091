package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GenesisState holds the settlement users and inference accounts.
type GenesisState struct {
	Users    []User    `json:"users"`
	Accounts []Account `json:"accounts"`
}

// DefaultGenesis returns an empty genesis state.
func DefaultGenesis() *GenesisState {
	return &GenesisState{}
}

// Validate checks that every user's total balance equals its available
// balance plus its inference accounts.
func (gs GenesisState) Validate() error {
	locked := make(map[common.Address]*big.Int)
	seen := make(map[[2]common.Address]bool)
	for _, a := range gs.Accounts {
		if a.Balance == nil || a.Balance.Sign() < 0 {
			return fmt.Errorf("genesis account %s/%s has invalid balance", a.User.Hex(), a.Node.Hex())
		}
		pair := [2]common.Address{a.User, a.Node}
		if seen[pair] {
			return fmt.Errorf("duplicate genesis account %s/%s", a.User.Hex(), a.Node.Hex())
		}
		seen[pair] = true
		if locked[a.User] == nil {
			locked[a.User] = new(big.Int)
		}
		locked[a.User].Add(locked[a.User], a.Balance)
	}

	users := make(map[common.Address]bool, len(gs.Users))
	for _, u := range gs.Users {
		if users[u.Address] {
			return fmt.Errorf("duplicate genesis user %s", u.Address.Hex())
		}
		users[u.Address] = true
		if u.AvailableBalance == nil || u.AvailableBalance.Sign() < 0 || u.TotalBalance == nil {
			return fmt.Errorf("genesis user %s has invalid balances", u.Address.Hex())
		}
		want := new(big.Int).Set(u.AvailableBalance)
		if l := locked[u.Address]; l != nil {
			want.Add(want, l)
		}
		if want.Cmp(u.TotalBalance) != 0 {
			return fmt.Errorf("genesis user %s total %s, expected %s", u.Address.Hex(), u.TotalBalance, want)
		}
	}
	for user := range locked {
		if !users[user] {
			return fmt.Errorf("genesis account for unknown user %s", user.Hex())
		}
	}
	return nil
}
