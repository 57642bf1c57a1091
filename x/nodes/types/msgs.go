package types

import (
	"math/big"
	"net/url"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// MsgAddNode registers a node.
type MsgAddNode struct {
	Sender    common.Address
	Node      common.Address
	URL       string
	PublicKey string
}

func (msg MsgAddNode) ValidateBasic() error {
	if msg.Node == (common.Address{}) {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node address is zero")
	}
	if msg.URL == "" {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node url is empty")
	}
	if _, err := url.Parse(msg.URL); err != nil {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "node url: %s", err)
	}
	if msg.PublicKey == "" {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node public key is empty")
	}
	return nil
}

// MsgRemoveNode deregisters a node.
type MsgRemoveNode struct {
	Sender common.Address
	Node   common.Address
}

func (msg MsgRemoveNode) ValidateBasic() error {
	if msg.Node == (common.Address{}) {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node address is zero")
	}
	return nil
}

// MsgUpdateFee sets the fee of the sender's node.
type MsgUpdateFee struct {
	Sender common.Address
	Fee    *big.Int
}

func (msg MsgUpdateFee) ValidateBasic() error {
	if msg.Fee == nil || msg.Fee.Sign() < 0 || msg.Fee.BitLen() > 256 {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "fee must be a uint256")
	}
	return nil
}
