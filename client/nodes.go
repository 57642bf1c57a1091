package client

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// AddNode registers a node. The caller must be the node or the registry
// admin.
func (c *Client) AddNode(ctx context.Context, addr common.Address, url, publicKey string) error {
	_, err := c.submit(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, nil, "addNode", addr, url, publicKey)
	return err
}

// RemoveNode deregisters the caller's node.
func (c *Client) RemoveNode(ctx context.Context, addr common.Address) error {
	_, err := c.submit(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, nil, "removeNode", addr)
	return err
}

// UpdateNodeFee sets the fee of the caller's node.
func (c *Client) UpdateNodeFee(ctx context.Context, fee *big.Int) error {
	_, err := c.submit(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, nil, "updateNodeFee", sharedtypes.BigOrZero(fee))
	return err
}

// GetNode returns the node record and whether the node is registered.
func (c *Client) GetNode(ctx context.Context, addr common.Address) (contracts.NodeInfo, bool, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "getNode", addr)
	if err != nil {
		return contracts.NodeInfo{}, false, err
	}
	node, err := convert[contracts.NodeInfo]("getNode", out[0])
	if err != nil {
		return contracts.NodeInfo{}, false, err
	}
	return node, node.NodeAddress != (common.Address{}), nil
}

// NodeList returns the registered node addresses in registration order.
func (c *Client) NodeList(ctx context.Context) ([]common.Address, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "nodeList")
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, errorsmod.Wrapf(sharedtypes.ErrLedger, "nodeList returned %T", out[0])
	}
	return addrs, nil
}

// Nodes returns every registered node record.
func (c *Client) Nodes(ctx context.Context) ([]contracts.NodeInfo, error) {
	addrs, err := c.NodeList(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]contracts.NodeInfo, 0, len(addrs))
	for _, addr := range addrs {
		node, found, err := c.GetNode(ctx, addr)
		if err != nil {
			return nil, err
		}
		if found {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// NodeListAt returns the node at position i of the registration order.
func (c *Client) NodeListAt(ctx context.Context, i uint64) (contracts.NodeInfo, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "nodeListAt", new(big.Int).SetUint64(i))
	if err != nil {
		return contracts.NodeInfo{}, err
	}
	return convert[contracts.NodeInfo]("nodeListAt", out[0])
}

// NodesCount returns the number of registered nodes.
func (c *Client) NodesCount(ctx context.Context) (uint64, error) {
	return c.callUint(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "nodesCount")
}

// IsNode reports whether addr is an active node.
func (c *Client) IsNode(ctx context.Context, addr common.Address) (bool, error) {
	out, err := c.call(ctx, &contracts.VerifiedComputing, c.contracts.VerifiedComputing, "isNode", addr)
	if err != nil {
		return false, err
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, errorsmod.Wrapf(sharedtypes.ErrLedger, "isNode returned %T", out[0])
	}
	return ok, nil
}
