package types

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

func validateAmount(name string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "%s must be a non-negative amount", name)
	}
	return nil
}

// MsgDeposit credits value sent to the settlement contract to the sender.
type MsgDeposit struct {
	Sender common.Address
	Amount *big.Int
}

func (msg MsgDeposit) ValidateBasic() error {
	return validateAmount("deposit", msg.Amount)
}

// MsgWithdraw returns available balance to the sender.
type MsgWithdraw struct {
	Sender common.Address
	Amount *big.Int
}

func (msg MsgWithdraw) ValidateBasic() error {
	return validateAmount("withdrawal", msg.Amount)
}

// MsgDepositInference moves available balance into an inference account.
type MsgDepositInference struct {
	Sender common.Address
	Node   common.Address
	Amount *big.Int
}

func (msg MsgDepositInference) ValidateBasic() error {
	if msg.Node == (common.Address{}) {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node address is zero")
	}
	return validateAmount("inference deposit", msg.Amount)
}

// MsgRetrieveInference returns inference account balances to the sender.
type MsgRetrieveInference struct {
	Sender common.Address
	Nodes  []common.Address
}

func (msg MsgRetrieveInference) ValidateBasic() error {
	if len(msg.Nodes) == 0 {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "no nodes given")
	}
	return nil
}

// MsgSettleFees claims the cost of a request for the sending node.
type MsgSettleFees struct {
	Sender common.Address
	Proof  SettlementProof
}

func (msg MsgSettleFees) ValidateBasic() error {
	if len(msg.Proof.Signature) != signing.SignatureLength {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "node signature length %d", len(msg.Proof.Signature))
	}
	if len(msg.Proof.Data.UserSignature) != signing.SignatureLength {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "user signature length %d", len(msg.Proof.Data.UserSignature))
	}
	if msg.Proof.Data.Nonce == nil || msg.Proof.Data.Nonce.Sign() < 0 {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "nonce must be a non-negative integer")
	}
	return validateAmount("cost", msg.Proof.Data.Cost)
}

// MsgRequestReward releases the reward for a file proof.
type MsgRequestReward struct {
	Sender     common.Address
	FileID     uint64
	ProofIndex uint64
}

func (msg MsgRequestReward) ValidateBasic() error {
	if msg.ProofIndex == 0 {
		return errorsmod.Wrap(sharedtypes.ErrNotFound, "proof index 0")
	}
	return nil
}
