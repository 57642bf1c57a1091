package ante

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// ChainIDDecorator rejects transactions signed for another chain.
type ChainIDDecorator struct {
	chainID *big.Int
}

func NewChainIDDecorator(chainID *big.Int) ChainIDDecorator {
	return ChainIDDecorator{chainID: chainID}
}

func (d ChainIDDecorator) AnteHandle(ctx sharedtypes.Context, tx SignedTx, next AnteHandler) (sharedtypes.Context, error) {
	if tx.Envelope.ChainID == nil || tx.Envelope.ChainID.Cmp(d.chainID) != 0 {
		return ctx, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "chain id %v, want %s", tx.Envelope.ChainID, d.chainID)
	}
	return next(ctx, tx)
}

// DataLimitDecorator enforces a hard cap on call data size (bytes).
// This runs early in the ante chain to bound payload size before signature
// recovery.
type DataLimitDecorator struct {
	maxBytes int
}

// NewDataLimitDecorator returns a decorator that rejects call data exceeding maxBytes.
func NewDataLimitDecorator(maxBytes int) DataLimitDecorator {
	return DataLimitDecorator{maxBytes: maxBytes}
}

func (d DataLimitDecorator) AnteHandle(ctx sharedtypes.Context, tx SignedTx, next AnteHandler) (sharedtypes.Context, error) {
	if len(tx.Envelope.Data) > d.maxBytes {
		return ctx, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "call data too large: %d bytes (max %d)", len(tx.Envelope.Data), d.maxBytes)
	}
	if v := tx.Envelope.Value; v != nil && v.Sign() < 0 {
		return ctx, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "negative value %s", v)
	}
	return next(ctx, tx)
}

// SigVerificationDecorator checks that the envelope was signed by its sender.
type SigVerificationDecorator struct{}

func NewSigVerificationDecorator() SigVerificationDecorator {
	return SigVerificationDecorator{}
}

func (d SigVerificationDecorator) AnteHandle(ctx sharedtypes.Context, tx SignedTx, next AnteHandler) (sharedtypes.Context, error) {
	if err := signing.Verify(tx.Envelope, tx.Signature, tx.Envelope.From); err != nil {
		return ctx, err
	}
	return next(ctx, tx)
}

// IncrementSequenceDecorator requires the envelope nonce to equal the
// sender's sequence and advances it. The increment is kept even when the
// call itself fails.
type IncrementSequenceDecorator struct {
	sk SequenceKeeper
}

func NewIncrementSequenceDecorator(sk SequenceKeeper) IncrementSequenceDecorator {
	return IncrementSequenceDecorator{sk: sk}
}

func (d IncrementSequenceDecorator) AnteHandle(ctx sharedtypes.Context, tx SignedTx, next AnteHandler) (sharedtypes.Context, error) {
	from := tx.Envelope.From
	if seq := d.sk.GetSequence(ctx, from); seq != tx.Envelope.Nonce {
		return ctx, errorsmod.Wrapf(sharedtypes.ErrLedger, "account sequence mismatch for %s: expected %d, got %d", from.Hex(), seq, tx.Envelope.Nonce)
	}
	d.sk.IncrementSequence(ctx, from)
	return next(ctx, tx)
}
