package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	settlementtypes "github.com/coolcode/alith/x/settlement/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// AddUser opens the caller's settlement balance with an initial deposit.
func (c *Client) AddUser(ctx context.Context, amount *big.Int) error {
	_, err := c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, amount, "addUser")
	return err
}

// Deposit adds amount to the caller's settlement balance.
func (c *Client) Deposit(ctx context.Context, amount *big.Int) error {
	_, err := c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, amount, "deposit")
	return err
}

// Withdraw returns amount of the caller's available balance.
func (c *Client) Withdraw(ctx context.Context, amount *big.Int) error {
	_, err := c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, nil, "withdraw", sharedtypes.BigOrZero(amount))
	return err
}

// DepositInference moves amount of the caller's balance into the
// inference account with node.
func (c *Client) DepositInference(ctx context.Context, node common.Address, amount *big.Int) error {
	_, err := c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, nil, "depositInference", node, sharedtypes.BigOrZero(amount))
	return err
}

// RetrieveInference refunds the caller's inference accounts with nodes.
func (c *Client) RetrieveInference(ctx context.Context, nodes []common.Address) error {
	if nodes == nil {
		nodes = []common.Address{}
	}
	_, err := c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, nil, "retrieveInference", nodes)
	return err
}

// GetUser returns the settlement balance of addr. Unknown users come back
// with a zero address.
func (c *Client) GetUser(ctx context.Context, addr common.Address) (contracts.User, error) {
	out, err := c.call(ctx, &contracts.Settlement, c.contracts.Settlement, "getUser", addr)
	if err != nil {
		return contracts.User{}, err
	}
	return convert[contracts.User]("getUser", out[0])
}

// GetAccount returns the inference account of (user, node).
func (c *Client) GetAccount(ctx context.Context, user, node common.Address) (contracts.Account, error) {
	out, err := c.call(ctx, &contracts.Settlement, c.contracts.Settlement, "getAccount", user, node)
	if err != nil {
		return contracts.Account{}, err
	}
	return convert[contracts.Account]("getAccount", out[0])
}

// SettleFees submits a node-signed settlement proof. The caller must be
// the node that signed it.
func (c *Client) SettleFees(ctx context.Context, proof settlementtypes.SettlementProof) (*ledger.Receipt, error) {
	return c.submit(ctx, &contracts.Settlement, c.contracts.Settlement, nil, "settlementFees", proof.ToContract())
}
