package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// File is a registered data file. Files are never deleted; the url to id
// mapping is append-only.
type File struct {
	ID          uint64         `json:"id"`
	Owner       common.Address `json:"owner"`
	URL         string         `json:"url"`
	ProofsCount uint64         `json:"proofs_count"`
	AddedAt     int64          `json:"added_at"`
}

// ToContract converts the record to its contract tuple.
func (f File) ToContract() contracts.File {
	return contracts.File{
		ID:             sharedtypes.BigFromID(f.ID),
		OwnerAddress:   f.Owner,
		URL:            f.URL,
		ProofsCount:    sharedtypes.BigFromID(f.ProofsCount),
		AddedTimestamp: big.NewInt(f.AddedAt),
	}
}

// Permission grants an account an encrypted key for a file. The key is
// opaque to the registry.
type Permission struct {
	Account common.Address `json:"account"`
	Key     string         `json:"key"`
}

// Proof is a node's signed attestation over a file. Indexes start at 1.
type Proof struct {
	FileID    uint64         `json:"file_id"`
	Index     uint64         `json:"index"`
	Signature []byte         `json:"signature"`
	FileURL   string         `json:"file_url"`
	ProofURL  string         `json:"proof_url"`
	Node      common.Address `json:"node"`
	Rewarded  bool           `json:"rewarded"`
	AddedAt   int64          `json:"added_at"`
}

// ToContract converts the record to its contract tuple.
func (p Proof) ToContract() contracts.Proof {
	return contracts.Proof{
		Signature: p.Signature,
		Data: contracts.ProofData{
			ID:       sharedtypes.BigFromID(p.FileID),
			FileURL:  p.FileURL,
			ProofURL: p.ProofURL,
		},
	}
}
