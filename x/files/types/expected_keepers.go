package types

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// NodesKeeper defines the expected node registry interface
type NodesKeeper interface {
	IsActiveNode(ctx context.Context, addr common.Address) bool
}
