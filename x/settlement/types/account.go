package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// User is the settlement balance of one address. TotalBalance counts the
// available balance plus everything locked in inference accounts.
type User struct {
	Address          common.Address   `json:"address"`
	AvailableBalance *big.Int         `json:"available_balance"`
	TotalBalance     *big.Int         `json:"total_balance"`
	InferenceNodes   []common.Address `json:"inference_nodes"`
}

// NewUser returns an empty user record.
func NewUser(addr common.Address) User {
	return User{Address: addr, AvailableBalance: new(big.Int), TotalBalance: new(big.Int)}
}

// HasInferenceNode reports whether the user funded an account with node.
func (u User) HasInferenceNode(node common.Address) bool {
	for _, n := range u.InferenceNodes {
		if n == node {
			return true
		}
	}
	return false
}

// ToContract converts the record to its contract tuple.
func (u User) ToContract() contracts.User {
	nodes := make([]common.Address, len(u.InferenceNodes))
	copy(nodes, u.InferenceNodes)
	return contracts.User{
		Addr:             u.Address,
		AvailableBalance: sharedtypes.CloneBig(u.AvailableBalance),
		TotalBalance:     sharedtypes.CloneBig(u.TotalBalance),
		InferenceNodes:   nodes,
	}
}

// Account is the inference balance a user holds with one node. Nonce is
// the last settled nonce.
type Account struct {
	User    common.Address `json:"user"`
	Node    common.Address `json:"node"`
	Nonce   *big.Int       `json:"nonce"`
	Balance *big.Int       `json:"balance"`
}

// NewAccount returns an empty inference account.
func NewAccount(user, node common.Address) Account {
	return Account{User: user, Node: node, Nonce: new(big.Int), Balance: new(big.Int)}
}

// ToContract converts the record to its contract tuple.
func (a Account) ToContract() contracts.Account {
	return contracts.Account{
		User:    a.User,
		Node:    a.Node,
		Nonce:   sharedtypes.CloneBig(a.Nonce),
		Balance: sharedtypes.CloneBig(a.Balance),
	}
}
