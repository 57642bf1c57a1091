// Package ante runs the checks every ledger transaction passes before its
// call is executed: chain id, payload size, signature and sequence.
package ante

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// DefaultMaxDataBytes bounds the call data of one transaction.
const DefaultMaxDataBytes = 128 * 1024

// AnteHandler checks a transaction and returns the context to execute it in.
type AnteHandler func(ctx sharedtypes.Context, tx SignedTx) (sharedtypes.Context, error)

// AnteDecorator is one link of the ante chain.
type AnteDecorator interface {
	AnteHandle(ctx sharedtypes.Context, tx SignedTx, next AnteHandler) (sharedtypes.Context, error)
}

// SequenceKeeper tracks the per-account transaction sequence.
type SequenceKeeper interface {
	GetSequence(ctx context.Context, addr common.Address) uint64
	IncrementSequence(ctx context.Context, addr common.Address) uint64
}

// HandlerOptions are the options required for constructing the AnteHandler.
type HandlerOptions struct {
	SequenceKeeper SequenceKeeper
	ChainID        *big.Int
	MaxDataBytes   int
}

// NewAnteHandler returns an AnteHandler that checks the chain id, the size of
// the call data and the signature, then checks and increments the sender's
// sequence.
func NewAnteHandler(options HandlerOptions) (AnteHandler, error) {
	if options.SequenceKeeper == nil {
		return nil, fmt.Errorf("sequence keeper is required for ante builder")
	}
	if options.ChainID == nil {
		return nil, fmt.Errorf("chain id is required for ante builder")
	}
	if options.MaxDataBytes <= 0 {
		options.MaxDataBytes = DefaultMaxDataBytes
	}

	anteDecorators := []AnteDecorator{
		NewChainIDDecorator(options.ChainID),
		NewDataLimitDecorator(options.MaxDataBytes),
		NewSigVerificationDecorator(),
		NewIncrementSequenceDecorator(options.SequenceKeeper),
	}
	return ChainAnteDecorators(anteDecorators...), nil
}

// ChainAnteDecorators chains decorators so that each calls the next.
func ChainAnteDecorators(chain ...AnteDecorator) AnteHandler {
	if len(chain) == 0 {
		return func(ctx sharedtypes.Context, _ SignedTx) (sharedtypes.Context, error) {
			return ctx, nil
		}
	}
	next := ChainAnteDecorators(chain[1:]...)
	return func(ctx sharedtypes.Context, tx SignedTx) (sharedtypes.Context, error) {
		return chain[0].AnteHandle(ctx, tx, next)
	}
}
