package evm

import (
	"errors"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// revertPrefix is how nodes report a reverted call.
const revertPrefix = "execution reverted"

// revertKinds maps fragments of contract revert reasons to error kinds.
// The first match wins.
var revertKinds = []struct {
	fragment string
	kind     *errorsmod.Error
}{
	{"already active", sharedtypes.ErrNodeAlreadyActive},
	{"already exists", sharedtypes.ErrAlreadyExists},
	{"already added", sharedtypes.ErrAlreadyExists},
	{"insufficient", sharedtypes.ErrInsufficientBalance},
	{"signature", sharedtypes.ErrInvalidSignature},
	{"not found", sharedtypes.ErrNotFound},
	{"does not exist", sharedtypes.ErrNotFound},
	{"not exist", sharedtypes.ErrNotFound},
	{"unauthorized", sharedtypes.ErrUnauthorized},
	{"not authorized", sharedtypes.ErrUnauthorized},
	{"only ", sharedtypes.ErrUnauthorized},
	{"caller is not", sharedtypes.ErrUnauthorized},
	{"ownable", sharedtypes.ErrUnauthorized},
	{"accesscontrol", sharedtypes.ErrUnauthorized},
}

// dataError is implemented by JSON-RPC errors that carry revert data.
type dataError interface {
	ErrorData() interface{}
}

// classifyCallError converts an RPC error into the error taxonomy. Reverts
// map to a domain kind by reason; anything else is a ledger failure.
func classifyCallError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(strings.ToLower(msg), revertPrefix) {
		return errorsmod.Wrap(sharedtypes.ErrLedger, msg)
	}

	reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, revertPrefix), ":"))
	var de dataError
	if errors.As(err, &de) {
		if decoded, ok := unpackRevertData(de.ErrorData()); ok {
			reason = decoded
		}
	}
	return classifyRevert(reason)
}

func unpackRevertData(data interface{}) (string, bool) {
	s, ok := data.(string)
	if !ok {
		return "", false
	}
	bz, err := hexutil.Decode(s)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(bz)
	if err != nil {
		if len(bz) >= 4 {
			return "custom error " + common.Bytes2Hex(bz[:4]), true
		}
		return "", false
	}
	return reason, true
}

func classifyRevert(reason string) error {
	lower := strings.ToLower(reason)
	for _, rk := range revertKinds {
		if strings.Contains(lower, rk.fragment) {
			return errorsmod.Wrapf(rk.kind, "reverted: %s", reason)
		}
	}
	if reason == "" {
		reason = "no reason"
	}
	return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "reverted: %s", reason)
}
