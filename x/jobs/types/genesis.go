package types

import (
	"fmt"

	"github.com/coolcode/alith/contracts"
)

// GenesisState holds the recorded jobs.
type GenesisState struct {
	Jobs []Job `json:"jobs"`
}

// DefaultGenesis returns an empty genesis state.
func DefaultGenesis() *GenesisState {
	return &GenesisState{}
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	seen := make(map[uint64]bool, len(gs.Jobs))
	for _, j := range gs.Jobs {
		if j.ID == 0 {
			return fmt.Errorf("genesis job has id 0")
		}
		if seen[j.ID] {
			return fmt.Errorf("duplicate genesis job %d", j.ID)
		}
		if j.Status != contracts.JobStatusRequested && j.Status != contracts.JobStatusCompleted {
			return fmt.Errorf("genesis job %d has invalid status %d", j.ID, j.Status)
		}
		if j.Settled && !j.IsCompleted() {
			return fmt.Errorf("genesis job %d is settled but not completed", j.ID)
		}
		seen[j.ID] = true
	}
	return nil
}
