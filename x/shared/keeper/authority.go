// Package keeper provides shared keeper utilities used across modules.
package keeper

import (
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// ValidateAuthority checks that the sender matches the expected authority.
// This is used for admin-only operations such as registering a node on
// another party's behalf.
//
// Usage example:
//
//	if err := keeper.ValidateAuthority(k.authority, sender); err != nil {
//	    return err
//	}
func ValidateAuthority(expected, actual common.Address) error {
	if expected == (common.Address{}) || expected != actual {
		return sharedtypes.NewIdentityMismatch("invalid authority", expected, actual)
	}
	return nil
}

// ValidateSelf checks that an operation on subject is being performed by
// subject itself.
func ValidateSelf(what string, subject, sender common.Address) error {
	if subject != sender {
		return sharedtypes.NewIdentityMismatch(what, subject, sender)
	}
	return nil
}

// ValidateSelfOrAuthority accepts either the subject or the authority.
func ValidateSelfOrAuthority(what string, subject, authority, sender common.Address) error {
	if sender == subject {
		return nil
	}
	if authority != (common.Address{}) && sender == authority {
		return nil
	}
	return sharedtypes.NewIdentityMismatch(what, subject, sender)
}
