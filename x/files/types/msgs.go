package types

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// MsgAddFile registers a file owned by the sender.
type MsgAddFile struct {
	Sender common.Address
	URL    string
}

func (msg MsgAddFile) ValidateBasic() error {
	if msg.URL == "" {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "file url is empty")
	}
	return nil
}

// MsgAddFileWithPermissions registers a file for an owner together with its
// initial permissions.
type MsgAddFileWithPermissions struct {
	Sender      common.Address
	URL         string
	Owner       common.Address
	Permissions []Permission
}

func (msg MsgAddFileWithPermissions) ValidateBasic() error {
	if msg.URL == "" {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "file url is empty")
	}
	if msg.Owner == (common.Address{}) {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "owner address is zero")
	}
	for _, p := range msg.Permissions {
		if p.Account == (common.Address{}) {
			return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "permission account is zero")
		}
	}
	return nil
}

// MsgAddPermission grants an account access to a file.
type MsgAddPermission struct {
	Sender       common.Address
	FileID       uint64
	Account      common.Address
	EncryptedKey string
}

func (msg MsgAddPermission) ValidateBasic() error {
	if msg.Account == (common.Address{}) {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "permission account is zero")
	}
	return nil
}

// MsgAddProof attaches a node-signed proof to a file.
type MsgAddProof struct {
	Sender    common.Address
	FileID    uint64
	Signature []byte
	Data      signing.ProofPayload
}

func (msg MsgAddProof) ValidateBasic() error {
	if len(msg.Signature) != signing.SignatureLength {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "length %d", len(msg.Signature))
	}
	id, ok := sharedtypes.IDFromBig(msg.Data.ID)
	if !ok || id != msg.FileID {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "proof data id %s does not match file %d", msg.Data.ID, msg.FileID)
	}
	return nil
}
