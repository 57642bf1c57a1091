package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Node is a registered compute node. Its identity is its address.
type Node struct {
	Address   common.Address `json:"address"`
	URL       string         `json:"url"`
	PublicKey string         `json:"public_key"`
	Fee       *big.Int       `json:"fee"`
	Status    uint8          `json:"status"`
	JobsCount uint64         `json:"jobs_count"`
	AddedAt   int64          `json:"added_at"`
}

// IsActive reports whether the node accepts jobs.
func (n Node) IsActive() bool {
	return n.Status == contracts.NodeStatusActive
}

// ToContract converts the record to its contract tuple.
func (n Node) ToContract() contracts.NodeInfo {
	return contracts.NodeInfo{
		NodeAddress: n.Address,
		URL:         n.URL,
		Status:      n.Status,
		Fee:         sharedtypes.CloneBig(n.Fee),
		JobsCount:   sharedtypes.BigFromID(n.JobsCount),
		PublicKey:   n.PublicKey,
	}
}

// EmptyNodeInfo is returned for addresses that are not registered.
func EmptyNodeInfo() contracts.NodeInfo {
	return contracts.NodeInfo{Fee: new(big.Int), JobsCount: new(big.Int)}
}
