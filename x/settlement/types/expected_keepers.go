package types

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	filestypes "github.com/coolcode/alith/x/files/types"
	jobstypes "github.com/coolcode/alith/x/jobs/types"
	nodestypes "github.com/coolcode/alith/x/nodes/types"
)

// BankKeeper defines the expected bank interface
type BankKeeper interface {
	GetBalance(ctx context.Context, addr common.Address) *big.Int
	SendCoins(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// NodesKeeper defines the expected node registry interface
type NodesKeeper interface {
	GetNode(ctx context.Context, addr common.Address) (nodestypes.Node, bool)
}

// FilesKeeper defines the expected file registry interface
type FilesKeeper interface {
	GetFile(ctx context.Context, fileID uint64) (filestypes.File, error)
	GetProof(ctx context.Context, fileID, index uint64) (filestypes.Proof, error)
	MarkProofRewarded(ctx context.Context, fileID, index uint64) (filestypes.Proof, error)
}

// JobsKeeper defines the expected job lifecycle interface
type JobsKeeper interface {
	SettleCompletedJob(ctx context.Context, fileID uint64, node common.Address) (jobstypes.Job, error)
}
