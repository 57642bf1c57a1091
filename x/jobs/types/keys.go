package types

const (
	// ModuleName defines the module name
	ModuleName = "jobs"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)
