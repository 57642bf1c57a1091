package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Job is a proof request for a file, assigned to one node. A job moves from
// Requested to Completed once; Settled records that its escrowed value was
// released to the node.
type Job struct {
	ID          uint64         `json:"id"`
	FileID      uint64         `json:"file_id"`
	Node        common.Address `json:"node"`
	Requester   common.Address `json:"requester"`
	Value       *big.Int       `json:"value"`
	Status      uint8          `json:"status"`
	RequestedAt int64          `json:"requested_at"`
	CompletedAt int64          `json:"completed_at"`
	Settled     bool           `json:"settled"`
}

func (j Job) IsCompleted() bool {
	return j.Status == contracts.JobStatusCompleted
}

// ToContract converts the record to its contract tuple.
func (j Job) ToContract() contracts.Job {
	return contracts.Job{
		FileID:         sharedtypes.BigFromID(j.FileID),
		BidAmount:      sharedtypes.CloneBig(j.Value),
		Status:         j.Status,
		AddedTimestamp: big.NewInt(j.RequestedAt),
		OwnerAddress:   j.Requester,
		NodeAddress:    j.Node,
	}
}

// StatusString returns a readable job status.
func StatusString(status uint8) string {
	switch status {
	case contracts.JobStatusRequested:
		return "requested"
	case contracts.JobStatusCompleted:
		return "completed"
	default:
		return "none"
	}
}
