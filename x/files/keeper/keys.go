package keeper

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// FileKeyPrefix is the prefix for file records
	FileKeyPrefix = []byte{0x01}

	// FileByURLPrefix maps a file url to its id
	FileByURLPrefix = []byte{0x02}

	// PermissionKeyPrefix is the prefix for file permissions
	PermissionKeyPrefix = []byte{0x03}

	// ProofKeyPrefix is the prefix for file proofs
	ProofKeyPrefix = []byte{0x04}

	// NextFileIDKey is the key for the next file ID counter
	NextFileIDKey = []byte{0x05}
)

// FileKey returns the store key for a file record
func FileKey(fileID uint64) []byte {
	return append(append([]byte{}, FileKeyPrefix...), GetIDBytes(fileID)...)
}

// FileByURLKey returns the index key for a file url
func FileByURLKey(url string) []byte {
	return append(append([]byte{}, FileByURLPrefix...), url...)
}

// PermissionKey returns the store key for a permission of a file
func PermissionKey(fileID uint64, account common.Address) []byte {
	key := append(append([]byte{}, PermissionKeyPrefix...), GetIDBytes(fileID)...)
	return append(key, account.Bytes()...)
}

// ProofKey returns the store key for the index-th proof of a file
func ProofKey(fileID, index uint64) []byte {
	key := append(append([]byte{}, ProofKeyPrefix...), GetIDBytes(fileID)...)
	return append(key, GetIDBytes(index)...)
}

// GetIDBytes returns the big-endian byte representation of an id
func GetIDBytes(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

// GetIDFromBytes returns an id from its big-endian byte representation
func GetIDFromBytes(bz []byte) uint64 {
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}
