package keeper

import (
	"github.com/ethereum/go-ethereum/common"
)

var (
	// UserKeyPrefix is the prefix for settlement users
	UserKeyPrefix = []byte{0x01}

	// AccountKeyPrefix is the prefix for inference accounts
	AccountKeyPrefix = []byte{0x02}
)

// UserKey returns the store key for a user
func UserKey(addr common.Address) []byte {
	return append(append([]byte{}, UserKeyPrefix...), addr.Bytes()...)
}

// AccountKey returns the store key for the inference account of a
// (user, node) pair
func AccountKey(user, node common.Address) []byte {
	key := append(append([]byte{}, AccountKeyPrefix...), user.Bytes()...)
	return append(key, node.Bytes()...)
}
