package types

const (
	// ModuleName defines the module name
	ModuleName = "nodes"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)
