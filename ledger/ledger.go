// Package ledger defines the gateway through which clients reach the
// ledger that hosts the registries, the job lifecycle and settlement.
//
// Every state mutation is one atomic transaction: Submit either applies the
// whole call or none of it. Gateways never retry; callers decide whether a
// failure classified as retryable (see sharedtypes.IsRetryable) is worth
// resubmitting.
package ledger

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Receipt status codes.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Tx is a state-changing contract call.
type Tx struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// CallMsg is a read-only contract call.
type CallMsg struct {
	From common.Address
	To   common.Address
	Data []byte
}

// Receipt describes an included transaction.
type Receipt struct {
	TxHash  common.Hash         `json:"tx_hash"`
	Height  uint64              `json:"height"`
	Status  uint64              `json:"status"`
	GasUsed uint64              `json:"gas_used"`
	Events  []sharedtypes.Event `json:"events,omitempty"`
}

// Succeeded reports whether the transaction was applied.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccessful
}

// Gateway submits transactions and performs read-only calls on behalf of a
// single account.
type Gateway interface {
	// Address is the account that signs submitted transactions.
	Address() common.Address
	// Submit signs, sends and waits for inclusion of tx.
	Submit(ctx context.Context, tx Tx) (*Receipt, error)
	// Call executes a read-only call and returns the raw return data.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	// BalanceAt returns the native balance of addr.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
}

// NewTx packs a contract method call into a Tx.
func NewTx(parsed *abi.ABI, to common.Address, value *big.Int, method string, args ...interface{}) (Tx, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return Tx{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "pack %s: %s", method, err)
	}
	return Tx{To: to, Data: data, Value: value}, nil
}

// CallMethod packs a view call, executes it through gw and unpacks the
// return values.
func CallMethod(ctx context.Context, gw Gateway, parsed *abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "pack %s: %s", method, err)
	}
	out, err := gw.Call(ctx, CallMsg{From: gw.Address(), To: to, Data: data})
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "unpack %s: %s", method, err)
	}
	return values, nil
}
