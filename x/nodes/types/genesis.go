package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// GenesisState holds the nodes registered at genesis.
type GenesisState struct {
	Nodes []Node `json:"nodes"`
}

// DefaultGenesis returns an empty genesis state.
func DefaultGenesis() *GenesisState {
	return &GenesisState{}
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	seen := make(map[common.Address]bool, len(gs.Nodes))
	for _, n := range gs.Nodes {
		msg := MsgAddNode{Sender: n.Address, Node: n.Address, URL: n.URL, PublicKey: n.PublicKey}
		if err := msg.ValidateBasic(); err != nil {
			return fmt.Errorf("genesis node %s: %w", n.Address.Hex(), err)
		}
		if seen[n.Address] {
			return fmt.Errorf("duplicate genesis node %s", n.Address.Hex())
		}
		seen[n.Address] = true
	}
	return nil
}
