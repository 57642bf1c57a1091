package types

import (
	"math"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCall is one decoded contract invocation delivered to a module.
type ContractCall struct {
	Sender common.Address
	Value  *big.Int
	Method *abi.Method
	Args   []interface{}
}

// CopyArgs fills the fields of v (a pointer to struct) from the call
// arguments, matching fields by ABI argument name.
func (c ContractCall) CopyArgs(v interface{}) error {
	if len(c.Method.Inputs) == 0 {
		return nil
	}
	if err := c.Method.Inputs.Copy(v, c.Args); err != nil {
		return errorsmod.Wrapf(ErrInvalidRequest, "decode %s arguments: %s", c.Method.Name, err)
	}
	return nil
}

// ContractHandler executes the contract methods a module owns. Outputs are
// returned in ABI order and packed by the ledger.
type ContractHandler interface {
	Handles(method string) bool
	Execute(ctx Context, call ContractCall) ([]interface{}, error)
}

// IDFromBig converts a uint256 id into the uint64 keyspace. Ids that do
// not fit cannot exist.
func IDFromBig(v *big.Int) (uint64, bool) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// BigFromID converts a store id to a uint256 value.
func BigFromID(id uint64) *big.Int {
	return new(big.Int).SetUint64(id)
}

// BigOrZero returns v, or zero when v is nil.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// CloneBig returns a copy of v, or zero when v is nil.
func CloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// ClampInt64 converts a timestamp to int64 without overflowing.
func ClampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
