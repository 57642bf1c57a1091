package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Balance is the native balance of one address.
type Balance struct {
	Address common.Address `json:"address"`
	Amount  *big.Int       `json:"amount"`
}

// GenesisState seeds the ledger with funded accounts.
type GenesisState struct {
	Balances []Balance `json:"balances"`
}

// DefaultGenesis returns an empty genesis state.
func DefaultGenesis() *GenesisState {
	return &GenesisState{}
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	seen := make(map[common.Address]bool, len(gs.Balances))
	for _, b := range gs.Balances {
		if b.Address == (common.Address{}) {
			return fmt.Errorf("genesis balance for zero address")
		}
		if seen[b.Address] {
			return fmt.Errorf("duplicate genesis balance for %s", b.Address.Hex())
		}
		seen[b.Address] = true
		if b.Amount == nil || b.Amount.Sign() < 0 || b.Amount.BitLen() > 256 {
			return fmt.Errorf("invalid genesis amount for %s", b.Address.Hex())
		}
	}
	return nil
}
