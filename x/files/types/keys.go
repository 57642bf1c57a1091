package types

const (
	// ModuleName defines the module name
	ModuleName = "files"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)
