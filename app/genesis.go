package app

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	banktypes "github.com/coolcode/alith/x/bank/types"
	filestypes "github.com/coolcode/alith/x/files/types"
	jobstypes "github.com/coolcode/alith/x/jobs/types"
	nodestypes "github.com/coolcode/alith/x/nodes/types"
	settlementtypes "github.com/coolcode/alith/x/settlement/types"
)

// GenesisState represents the genesis state of the ledger.
// It is a map from module name to module genesis state.
type GenesisState map[string]json.RawMessage

// NewDefaultGenesisState returns an empty genesis for every module.
func NewDefaultGenesisState() GenesisState {
	genesis := make(GenesisState)
	genesis[banktypes.ModuleName] = mustMarshalJSON(banktypes.DefaultGenesis())
	genesis[nodestypes.ModuleName] = mustMarshalJSON(nodestypes.DefaultGenesis())
	genesis[filestypes.ModuleName] = mustMarshalJSON(filestypes.DefaultGenesis())
	genesis[jobstypes.ModuleName] = mustMarshalJSON(jobstypes.DefaultGenesis())
	genesis[settlementtypes.ModuleName] = mustMarshalJSON(settlementtypes.DefaultGenesis())
	return genesis
}

// GenesisConfig seeds a development ledger.
type GenesisConfig struct {
	// Accounts are funded with AccountBalance each.
	Accounts       []common.Address
	AccountBalance *big.Int
}

// NewGenesisStateFromConfig creates a default genesis with funded accounts.
func NewGenesisStateFromConfig(config GenesisConfig) GenesisState {
	genesis := NewDefaultGenesisState()

	var bankGenesis banktypes.GenesisState
	mustUnmarshalJSON(genesis[banktypes.ModuleName], &bankGenesis)
	for _, addr := range config.Accounts {
		bankGenesis.Balances = append(bankGenesis.Balances, banktypes.Balance{
			Address: addr,
			Amount:  new(big.Int).Set(config.AccountBalance),
		})
	}
	genesis[banktypes.ModuleName] = mustMarshalJSON(bankGenesis)

	return genesis
}

// moduleGenesis decodes and validates every module section of gs. A missing
// section decodes as the module default.
type moduleGenesis struct {
	bank       banktypes.GenesisState
	nodes      nodestypes.GenesisState
	files      filestypes.GenesisState
	jobs       jobstypes.GenesisState
	settlement settlementtypes.GenesisState
}

func decodeGenesis(gs GenesisState) (moduleGenesis, error) {
	var mg moduleGenesis
	sections := []struct {
		name  string
		into  interface{}
		check func() error
	}{
		{banktypes.ModuleName, &mg.bank, func() error { return mg.bank.Validate() }},
		{nodestypes.ModuleName, &mg.nodes, func() error { return mg.nodes.Validate() }},
		{filestypes.ModuleName, &mg.files, func() error { return mg.files.Validate() }},
		{jobstypes.ModuleName, &mg.jobs, func() error { return mg.jobs.Validate() }},
		{settlementtypes.ModuleName, &mg.settlement, func() error { return mg.settlement.Validate() }},
	}
	for _, s := range sections {
		if raw, ok := gs[s.name]; ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, s.into); err != nil {
				return mg, fmt.Errorf("decode %s genesis: %w", s.name, err)
			}
		}
		if err := s.check(); err != nil {
			return mg, fmt.Errorf("invalid %s genesis: %w", s.name, err)
		}
	}
	return mg, nil
}

// Helper functions
func mustMarshalJSON(v interface{}) json.RawMessage {
	bz, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return bz
}

func mustUnmarshalJSON(bz []byte, v interface{}) {
	if err := json.Unmarshal(bz, v); err != nil {
		panic(err)
	}
}
