package keeper

import (
	"github.com/ethereum/go-ethereum/common"
)

var (
	// BalanceKeyPrefix is the prefix for account balances
	BalanceKeyPrefix = []byte{0x01}

	// SequenceKeyPrefix is the prefix for account transaction sequences
	SequenceKeyPrefix = []byte{0x02}

	// SupplyKey is the key for the total minted supply
	SupplyKey = []byte{0x03}
)

// BalanceKey returns the store key for an account balance
func BalanceKey(addr common.Address) []byte {
	return append(append([]byte{}, BalanceKeyPrefix...), addr.Bytes()...)
}

// SequenceKey returns the store key for an account sequence
func SequenceKey(addr common.Address) []byte {
	return append(append([]byte{}, SequenceKeyPrefix...), addr.Bytes()...)
}
