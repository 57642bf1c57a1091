package types

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// MsgRequestProof requests a proof of a file. Value is the escrowed bid.
type MsgRequestProof struct {
	Sender common.Address
	FileID uint64
	Value  *big.Int
}

func (msg MsgRequestProof) ValidateBasic() error {
	if msg.FileID == 0 {
		return errorsmod.Wrap(sharedtypes.ErrNotFound, "file 0")
	}
	if msg.Value != nil && msg.Value.Sign() < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "negative value %s", msg.Value)
	}
	return nil
}

// MsgCompleteJob marks a job completed by its assigned node.
type MsgCompleteJob struct {
	Sender common.Address
	JobID  uint64
}

func (msg MsgCompleteJob) ValidateBasic() error {
	if msg.JobID == 0 {
		return errorsmod.Wrap(sharedtypes.ErrNotFound, "job 0")
	}
	return nil
}
