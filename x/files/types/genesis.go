package types

import (
	"fmt"
)

// FilePermission is a permission entry in the genesis state.
type FilePermission struct {
	FileID     uint64     `json:"file_id"`
	Permission Permission `json:"permission"`
}

// GenesisState holds the registered files with their proofs and permissions.
type GenesisState struct {
	Files       []File           `json:"files"`
	Proofs      []Proof          `json:"proofs"`
	Permissions []FilePermission `json:"permissions"`
}

// DefaultGenesis returns an empty genesis state.
func DefaultGenesis() *GenesisState {
	return &GenesisState{}
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	ids := make(map[uint64]File, len(gs.Files))
	urls := make(map[string]bool, len(gs.Files))
	for _, f := range gs.Files {
		if f.ID == 0 {
			return fmt.Errorf("genesis file %q has id 0", f.URL)
		}
		if f.URL == "" {
			return fmt.Errorf("genesis file %d has an empty url", f.ID)
		}
		if _, dup := ids[f.ID]; dup {
			return fmt.Errorf("duplicate genesis file id %d", f.ID)
		}
		if urls[f.URL] {
			return fmt.Errorf("duplicate genesis file url %q", f.URL)
		}
		ids[f.ID] = f
		urls[f.URL] = true
	}

	proofs := make(map[uint64]uint64)
	for _, p := range gs.Proofs {
		file, ok := ids[p.FileID]
		if !ok {
			return fmt.Errorf("genesis proof references unknown file %d", p.FileID)
		}
		if p.Index == 0 || p.Index > file.ProofsCount {
			return fmt.Errorf("genesis proof %d of file %d out of range", p.Index, p.FileID)
		}
		proofs[p.FileID]++
	}
	for id, f := range ids {
		if proofs[id] != f.ProofsCount {
			return fmt.Errorf("genesis file %d has %d proofs, expected %d", id, proofs[id], f.ProofsCount)
		}
	}

	for _, p := range gs.Permissions {
		if _, ok := ids[p.FileID]; !ok {
			return fmt.Errorf("genesis permission references unknown file %d", p.FileID)
		}
	}
	return nil
}
