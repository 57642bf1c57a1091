package client

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// RequestProof escrows value and opens a proof job for fileID. It returns
// the new job id.
func (c *Client) RequestProof(ctx context.Context, fileID uint64, value *big.Int) (uint64, error) {
	receipt, err := c.submit(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, value,
		"requestProof", sharedtypes.BigFromID(fileID))
	if err != nil {
		return 0, err
	}
	if id, ok := eventUint(receipt, []string{"job_submitted", "JobSubmitted"}, []string{"job_id", "jobId"}); ok {
		return id, nil
	}

	// Receipts without decoded events: the newest job of the file is ours
	// unless another requester raced us.
	ids, err := c.FileJobIDs(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errorsmod.Wrapf(sharedtypes.ErrLedger, "no job recorded for file %d", fileID)
	}
	return ids[len(ids)-1], nil
}

// CompleteJob marks the job completed. Only the assigned node may do so.
func (c *Client) CompleteJob(ctx context.Context, jobID uint64) error {
	_, err := c.submit(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, nil,
		"completeJob", sharedtypes.BigFromID(jobID))
	return err
}

// GetJob returns the job record.
func (c *Client) GetJob(ctx context.Context, jobID uint64) (contracts.Job, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "getJob", sharedtypes.BigFromID(jobID))
	if err != nil {
		return contracts.Job{}, err
	}
	return convert[contracts.Job]("getJob", out[0])
}

// FileJobIDs returns the jobs requested for fileID in request order.
func (c *Client) FileJobIDs(ctx context.Context, fileID uint64) ([]uint64, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "fileJobIds", sharedtypes.BigFromID(fileID))
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].([]*big.Int)
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "fileJobIds returned %T", out[0])
	}
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		id, ok := sharedtypes.IDFromBig(v)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "job id %s out of range", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// JobsCount returns the number of jobs ever requested.
func (c *Client) JobsCount(ctx context.Context) (uint64, error) {
	return c.callUint(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "jobsCount")
}
