package types

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nodestypes "github.com/coolcode/alith/x/nodes/types"
)

// FilesKeeper defines the expected file registry interface
type FilesKeeper interface {
	HasFile(ctx context.Context, fileID uint64) bool
}

// NodesKeeper defines the expected node registry interface
type NodesKeeper interface {
	ActiveNodes(ctx context.Context) ([]nodestypes.Node, error)
	IncrementJobsCount(ctx context.Context, addr common.Address) error
}

// BankKeeper defines the expected bank interface
type BankKeeper interface {
	GetBalance(ctx context.Context, addr common.Address) *big.Int
	SendCoins(ctx context.Context, from, to common.Address, amount *big.Int) error
}
