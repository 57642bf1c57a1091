package types

import (
	"errors"
	"fmt"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Codespace is the error codespace shared by every alith module.
const Codespace = "alith"

// Sentinel errors. Every failure surfaced by the registries, the job
// lifecycle, request authentication and settlement wraps one of these.
var (
	ErrNotFound            = sdkerrors.Register(Codespace, 2, "not found")
	ErrUnauthorized        = sdkerrors.Register(Codespace, 3, "unauthorized")
	ErrInvalidState        = sdkerrors.Register(Codespace, 4, "invalid state")
	ErrInsufficientBalance = sdkerrors.Register(Codespace, 5, "insufficient balance")
	ErrLedger              = sdkerrors.Register(Codespace, 6, "ledger error")
	ErrInvalidSignature    = sdkerrors.Register(Codespace, 7, "invalid signature")

	// Registry errors
	ErrNodeAlreadyActive = sdkerrors.Register(Codespace, 10, "node already active")
	ErrAlreadyExists     = sdkerrors.Register(Codespace, 11, "already exists")

	// Input validation
	ErrInvalidRequest = sdkerrors.Register(Codespace, 20, "invalid request")
)

// ErrorWithRecovery wraps an error with recovery suggestions
type ErrorWithRecovery struct {
	Err      error
	Recovery string
}

func (e *ErrorWithRecovery) Error() string {
	return e.Err.Error()
}

func (e *ErrorWithRecovery) Unwrap() error {
	return e.Err
}

// RecoverySuggestions provides actionable recovery steps for each error type
var RecoverySuggestions = map[error]string{
	ErrNotFound:            "Verify the id or address. Files, jobs and proofs are numbered from 1. Query the registry before acting on an entity.",
	ErrUnauthorized:        "The sender is not allowed to perform this operation. Check which key signed the transaction or headers and whether it owns the entity.",
	ErrInvalidState:        "The entity is not in a state that permits this transition. Query its current state; completed jobs and claimed rewards are final.",
	ErrInsufficientBalance: "Deposit more funds into the settlement contract before moving them to an inference account or settling fees.",
	ErrLedger:              "The ledger rejected or failed the call. Inspect the wrapped cause and resubmit if the failure was transient; nothing is retried automatically.",
	ErrInvalidSignature:    "The signature could not be decoded or recovered. Signatures are 65 bytes [R||S||V] hex encoded with V in {0,1,27,28}.",
	ErrNodeAlreadyActive:   "The node is already registered. Remove it first to change its url or public key, or use update-fee for the fee.",
	ErrAlreadyExists:       "The entity already exists. Look it up instead of registering it again.",
	ErrInvalidRequest:      "Check the request parameters: addresses must be non-zero, urls non-empty and amounts non-negative.",
}

// WrapWithRecovery wraps an error with recovery suggestion
func WrapWithRecovery(err error, msg string, args ...interface{}) error {
	wrapped := sdkerrors.Wrapf(err, msg, args...)

	if suggestion, ok := RecoverySuggestions[err]; ok {
		return &ErrorWithRecovery{
			Err:      wrapped,
			Recovery: suggestion,
		}
	}

	return wrapped
}

// GetRecoverySuggestion returns the recovery suggestion for an error
func GetRecoverySuggestion(err error) string {
	for sentinel, suggestion := range RecoverySuggestions {
		if errors.Is(err, sentinel) {
			return suggestion
		}
	}
	return "No recovery suggestion available. Check error message for details."
}

// IdentityMismatchError reports the identity a check expected and the one
// it actually observed. It always matches ErrUnauthorized under errors.Is.
type IdentityMismatchError struct {
	What     string
	Expected common.Address
	Actual   common.Address
}

// NewIdentityMismatch returns an IdentityMismatchError for the given check.
func NewIdentityMismatch(what string, expected, actual common.Address) *IdentityMismatchError {
	return &IdentityMismatchError{What: what, Expected: expected, Actual: actual}
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s: %s", e.What, e.Expected.Hex(), e.Actual.Hex(), ErrUnauthorized.Error())
}

func (e *IdentityMismatchError) Unwrap() error {
	return ErrUnauthorized
}

// IsRetryable reports whether a caller may reasonably resubmit the failed
// operation. Only ledger failures qualify; domain errors are deterministic.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedger)
}

// Kind returns a short stable label for the sentinel err wraps, suitable
// for metrics labels and API error bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrNodeAlreadyActive):
		return "node_already_active"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrLedger):
		return "ledger"
	default:
		return "internal"
	}
}
