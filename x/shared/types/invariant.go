package types

import "fmt"

// Invariant checks a property of ledger state. It returns a message and
// whether the invariant is broken.
type Invariant func(ctx Context) (string, bool)

// InvariantRegistry collects invariants by module and route.
type InvariantRegistry interface {
	RegisterRoute(moduleName, route string, invar Invariant)
}

// FormatInvariant returns a standardized invariant message.
func FormatInvariant(module, name, msg string) string {
	return fmt.Sprintf("%s: %s invariant\n%s\n", module, name, msg)
}
