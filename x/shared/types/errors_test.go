package types_test

import (
	"errors"
	"fmt"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/x/shared/types"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{nil, "ok"},
		{errorsmod.Wrapf(types.ErrNotFound, "job %d", 3), "not_found"},
		{types.NewIdentityMismatch("complete job", common.HexToAddress("0x1"), common.HexToAddress("0x2")), "unauthorized"},
		{types.ErrInvalidState, "invalid_state"},
		{fmt.Errorf("outer: %w", types.ErrInsufficientBalance), "insufficient_balance"},
		{types.ErrInvalidSignature, "invalid_signature"},
		{types.ErrLedger, "ledger"},
		{errors.New("boom"), "internal"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.kind, types.Kind(tc.err))
	}
}

func TestIsRetryable(t *testing.T) {
	require.True(t, types.IsRetryable(errorsmod.Wrap(types.ErrLedger, "connection refused")))
	require.False(t, types.IsRetryable(types.ErrInvalidState))
	require.False(t, types.IsRetryable(nil))
}

func TestIdentityMismatchError(t *testing.T) {
	expected := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	actual := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	err := types.NewIdentityMismatch("signature signer", expected, actual)
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.Contains(t, err.Error(), expected.Hex())
	require.Contains(t, err.Error(), actual.Hex())
}

func TestRecoverySuggestions(t *testing.T) {
	wrapped := types.WrapWithRecovery(types.ErrInsufficientBalance, "need %d", 10)

	var withRecovery *types.ErrorWithRecovery
	require.True(t, errors.As(wrapped, &withRecovery))
	require.NotEmpty(t, withRecovery.Recovery)
	require.ErrorIs(t, wrapped, types.ErrInsufficientBalance)

	require.Equal(t, types.RecoverySuggestions[types.ErrNotFound],
		types.GetRecoverySuggestion(errorsmod.Wrap(types.ErrNotFound, "file 9")))
	require.Contains(t, types.GetRecoverySuggestion(errors.New("other")), "No recovery suggestion")
}
