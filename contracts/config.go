package contracts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Default contract deployment addresses.
var (
	DefaultDataRegistryAddress      = common.HexToAddress("0x4141410000000000000000000000000000000000")
	DefaultVerifiedComputingAddress = common.HexToAddress("0x4242420000000000000000000000000000000000")
	DefaultSettlementAddress        = common.HexToAddress("0x4343430000000000000000000000000000000000")
)

// Chain presets.
const (
	LocalChainID    = 1337
	LocalEndpoint   = "http://localhost:8545"
	TestnetChainID  = 133718
	TestnetEndpoint = "https://lazi-testnet.metisdevops.link"
)

// Config holds the deployed contract addresses.
type Config struct {
	DataRegistry      common.Address
	VerifiedComputing common.Address
	Settlement        common.Address
}

// DefaultConfig returns the default deployment addresses.
func DefaultConfig() Config {
	return Config{
		DataRegistry:      DefaultDataRegistryAddress,
		VerifiedComputing: DefaultVerifiedComputingAddress,
		Settlement:        DefaultSettlementAddress,
	}
}

// Validate checks that every address is set and distinct.
func (c Config) Validate() error {
	seen := make(map[common.Address]string, 3)
	for name, addr := range map[string]common.Address{
		"data registry":      c.DataRegistry,
		"verified computing": c.VerifiedComputing,
		"settlement":         c.Settlement,
	} {
		if addr == (common.Address{}) {
			return fmt.Errorf("%s contract address is not set", name)
		}
		if other, ok := seen[addr]; ok {
			return fmt.Errorf("%s and %s contracts share address %s", name, other, addr.Hex())
		}
		seen[addr] = name
	}
	return nil
}

// ABIFor returns the ABI of the contract deployed at addr.
func (c Config) ABIFor(addr common.Address) (*abi.ABI, bool) {
	switch addr {
	case c.DataRegistry:
		return &DataRegistry, true
	case c.VerifiedComputing:
		return &VerifiedComputing, true
	case c.Settlement:
		return &Settlement, true
	default:
		return nil, false
	}
}
