// Package client is the typed caller layer over a ledger.Gateway: it packs
// contract calls, decodes their results and adds the idempotent and
// defaulted conveniences users rely on.
package client

import (
	"context"
	"math/big"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/app/telemetry"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Client calls the DataRegistry, VerifiedComputing and Settlement contracts
// as the gateway's account.
type Client struct {
	gw        ledger.Gateway
	contracts contracts.Config
	logger    log.Logger
}

// New returns a client over gw.
func New(gw ledger.Gateway, cfg contracts.Config, logger log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrInvalidRequest, err.Error())
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{gw: gw, contracts: cfg, logger: logger.With("module", "client")}, nil
}

// Address returns the account the client acts as.
func (c *Client) Address() common.Address { return c.gw.Address() }

// Gateway returns the underlying gateway.
func (c *Client) Gateway() ledger.Gateway { return c.gw }

// Contracts returns the contract addresses the client talks to.
func (c *Client) Contracts() contracts.Config { return c.contracts }

// Balance returns the native balance of addr.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.gw.BalanceAt(ctx, addr)
}

func (c *Client) submit(ctx context.Context, parsed *abi.ABI, to common.Address, value *big.Int, method string, args ...interface{}) (*ledger.Receipt, error) {
	tx, err := ledger.NewTx(parsed, to, value, method, args...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, span := telemetry.StartTxSpan(ctx, method, to)
	defer span.End()

	receipt, err := c.gw.Submit(ctx, tx)
	telemetry.RecordStage(ctx, "ledger."+method, start, err)
	telemetry.RecordError(span, err)
	if err != nil {
		c.logger.Debug("transaction failed", "method", method, "kind", sharedtypes.Kind(err), "error", err.Error())
		return receipt, err
	}
	if !receipt.Succeeded() {
		return receipt, errorsmod.Wrapf(sharedtypes.ErrLedger, "%s: transaction %s failed", method, receipt.TxHash.Hex())
	}
	c.logger.Debug("transaction included", "method", method, "hash", receipt.TxHash.Hex(), "height", receipt.Height)
	return receipt, nil
}

func (c *Client) call(ctx context.Context, parsed *abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	out, err := ledger.CallMethod(ctx, c.gw, parsed, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "%s returned nothing", method)
	}
	return out, nil
}

func (c *Client) callUint(ctx context.Context, parsed *abi.ABI, to common.Address, method string, args ...interface{}) (uint64, error) {
	out, err := c.call(ctx, parsed, to, method, args...)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return 0, errorsmod.Wrapf(sharedtypes.ErrLedger, "%s returned %T", method, out[0])
	}
	id, ok := sharedtypes.IDFromBig(v)
	if !ok {
		return 0, errorsmod.Wrapf(sharedtypes.ErrLedger, "%s returned out of range value %s", method, v)
	}
	return id, nil
}

// convert copies an unpacked tuple into the contract struct T.
func convert[T any](method string, v interface{}) (T, error) {
	var zero T
	out, ok := abi.ConvertType(v, new(T)).(*T)
	if !ok || out == nil {
		return zero, errorsmod.Wrapf(sharedtypes.ErrLedger, "%s returned %T", method, v)
	}
	return *out, nil
}

// eventUint returns the first uint attribute found under any of the given
// event types and keys. In-process and EVM receipts name events differently.
func eventUint(receipt *ledger.Receipt, types, keys []string) (uint64, bool) {
	if receipt == nil {
		return 0, false
	}
	for _, ev := range receipt.Events {
		for _, ty := range types {
			if ev.Type != ty {
				continue
			}
			for _, key := range keys {
				if raw, ok := ev.Attribute(key); ok {
					if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
						return v, true
					}
				}
			}
		}
	}
	return 0, false
}
