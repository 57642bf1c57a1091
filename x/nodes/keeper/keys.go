package keeper

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// NodeKeyPrefix is the prefix for node records
	NodeKeyPrefix = []byte{0x01}

	// NodeOrderPrefix indexes registered nodes by registration sequence
	NodeOrderPrefix = []byte{0x02}

	// NodeSeqKeyPrefix maps a node address to its registration sequence
	NodeSeqKeyPrefix = []byte{0x03}

	// NextNodeSeqKey is the key for the next registration sequence
	NextNodeSeqKey = []byte{0x04}
)

// NodeKey returns the store key for a node record
func NodeKey(addr common.Address) []byte {
	return append(append([]byte{}, NodeKeyPrefix...), addr.Bytes()...)
}

// NodeOrderKey returns the ordering index key for a registration sequence
func NodeOrderKey(seq uint64) []byte {
	return append(append([]byte{}, NodeOrderPrefix...), encodeSeq(seq)...)
}

// NodeSeqKey returns the key holding the registration sequence of addr
func NodeSeqKey(addr common.Address) []byte {
	return append(append([]byte{}, NodeSeqKeyPrefix...), addr.Bytes()...)
}

func encodeSeq(seq uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, seq)
	return bz
}

func decodeSeq(bz []byte) uint64 {
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}
