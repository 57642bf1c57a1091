// Package abci classifies and reports transaction execution failures.
package abci

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// ErrorSeverity classifies the severity of a failed transaction.
type ErrorSeverity int

const (
	// SeverityLow covers rejections caused by the caller, such as a missing
	// record or a bad argument.
	SeverityLow ErrorSeverity = iota

	// SeverityMedium covers authorization and signature failures.
	SeverityMedium

	// SeverityHigh covers ledger-side failures the caller may retry.
	SeverityHigh

	// SeverityCritical covers failures that are not part of the error
	// taxonomy at all. These usually point at a bug.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityOf maps an error to its severity by taxonomy kind.
func SeverityOf(err error) ErrorSeverity {
	switch {
	case errorsmod.IsOf(err, sharedtypes.ErrLedger):
		return SeverityHigh
	case errorsmod.IsOf(err, sharedtypes.ErrUnauthorized, sharedtypes.ErrInvalidSignature):
		return SeverityMedium
	case errorsmod.IsOf(err,
		sharedtypes.ErrNotFound,
		sharedtypes.ErrInvalidState,
		sharedtypes.ErrInsufficientBalance,
		sharedtypes.ErrAlreadyExists,
		sharedtypes.ErrNodeAlreadyActive,
		sharedtypes.ErrInvalidRequest,
	):
		return SeverityLow
	default:
		return SeverityCritical
	}
}

// TxErrorHandler logs failed transactions and records them as events.
type TxErrorHandler struct {
	component string
	ctx       sharedtypes.Context
}

// NewTxErrorHandler creates a new error handler for the given component.
func NewTxErrorHandler(ctx sharedtypes.Context, component string) *TxErrorHandler {
	return &TxErrorHandler{
		component: component,
		ctx:       ctx,
	}
}

// HandleError logs err at a level matching its severity and emits a
// "tx_error" event. It returns the severity it used.
func (h *TxErrorHandler) HandleError(operation string, err error) ErrorSeverity {
	if err == nil {
		return SeverityLow
	}
	severity := SeverityOf(err)
	kv := []interface{}{
		"component", h.component,
		"operation", operation,
		"severity", severity.String(),
		"kind", sharedtypes.Kind(err),
		"error", err.Error(),
	}

	switch severity {
	case SeverityCritical:
		h.ctx.Logger().Error("CRITICAL transaction error", kv...)
	case SeverityHigh:
		h.ctx.Logger().Error("transaction error", kv...)
	case SeverityMedium:
		h.ctx.Logger().Warn("transaction rejected", kv...)
	default:
		h.ctx.Logger().Debug("transaction rejected", kv...)
	}

	h.ctx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"tx_error",
			sharedtypes.NewAttribute("component", h.component),
			sharedtypes.NewAttribute("operation", operation),
			sharedtypes.NewAttribute("severity", severity.String()),
			sharedtypes.NewAttribute("kind", sharedtypes.Kind(err)),
			sharedtypes.NewAttribute("error", err.Error()),
			sharedtypes.NewAttribute("height", fmt.Sprintf("%d", h.ctx.BlockHeight())),
		),
	)
	return severity
}

// WrapError is a convenience method for handling errors inline.
// Returns true if there was an error.
func (h *TxErrorHandler) WrapError(operation string, err error) bool {
	if err != nil {
		h.HandleError(operation, err)
		return true
	}
	return false
}
