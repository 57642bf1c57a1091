package keeper

import (
	"context"
	"fmt"

	"github.com/coolcode/alith/x/jobs/types"
)

// InitGenesis loads the jobs and their file index
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid jobs genesis: %w", err)
	}

	store := k.getStore(ctx)
	var maxID uint64
	for _, job := range data.Jobs {
		if err := k.SetJob(ctx, job); err != nil {
			return fmt.Errorf("failed to initialize job %d: %w", job.ID, err)
		}
		store.Set(FileJobKey(job.FileID, job.ID), []byte{})
		if job.ID > maxID {
			maxID = job.ID
		}
	}
	store.Set(NextJobIDKey, GetJobIDBytes(maxID+1))
	return nil
}

// ExportGenesis exports all jobs
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gs := types.DefaultGenesis()
	err := k.IterateJobs(ctx, func(job types.Job) (bool, error) {
		gs.Jobs = append(gs.Jobs, job)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}
