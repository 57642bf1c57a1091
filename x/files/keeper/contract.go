package keeper

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/files/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

var _ sharedtypes.ContractHandler = ContractHandler{}

// ContractHandler serves the file methods of the data registry contract.
type ContractHandler struct {
	k  Keeper
	ms *msgServer
}

// NewContractHandler returns the contract handler of the file registry
func NewContractHandler(k Keeper) ContractHandler {
	return ContractHandler{k: k, ms: NewMsgServerImpl(k)}
}

func (h ContractHandler) Handles(method string) bool {
	switch method {
	case "addFile", "addFileWithPermissions", "addPermissionForFile", "addProof",
		"getFile", "getFileIdByUrl", "getFilePermission", "getFileProof", "filesCount":
		return true
	}
	return false
}

func (h ContractHandler) Execute(ctx sharedtypes.Context, call sharedtypes.ContractCall) ([]interface{}, error) {
	switch call.Method.Name {
	case "addFile":
		var args struct{ Url string }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		id, err := h.ms.AddFile(ctx, &types.MsgAddFile{Sender: call.Sender, URL: args.Url})
		if err != nil {
			return nil, err
		}
		return []interface{}{sharedtypes.BigFromID(id)}, nil

	case "addFileWithPermissions":
		var args struct {
			Url          string
			OwnerAddress common.Address
			Permissions  []contracts.Permission
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		perms := make([]types.Permission, 0, len(args.Permissions))
		for _, p := range args.Permissions {
			perms = append(perms, types.Permission{Account: p.Account, Key: p.Key})
		}
		id, err := h.ms.AddFileWithPermissions(ctx, &types.MsgAddFileWithPermissions{
			Sender:      call.Sender,
			URL:         args.Url,
			Owner:       args.OwnerAddress,
			Permissions: perms,
		})
		if err != nil {
			return nil, err
		}
		return []interface{}{sharedtypes.BigFromID(id)}, nil

	case "addPermissionForFile":
		var args struct {
			FileId  *big.Int
			Account common.Address
			Key     string
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, ok := sharedtypes.IDFromBig(args.FileId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", args.FileId)
		}
		return nil, h.ms.AddPermission(ctx, &types.MsgAddPermission{
			Sender:       call.Sender,
			FileID:       fileID,
			Account:      args.Account,
			EncryptedKey: args.Key,
		})

	case "addProof":
		var args struct {
			FileId *big.Int
			Proof  contracts.Proof
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, ok := sharedtypes.IDFromBig(args.FileId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", args.FileId)
		}
		_, err := h.ms.AddProof(ctx, &types.MsgAddProof{
			Sender:    call.Sender,
			FileID:    fileID,
			Signature: args.Proof.Signature,
			Data: signing.ProofPayload{
				ID:       args.Proof.Data.ID,
				FileURL:  args.Proof.Data.FileURL,
				ProofURL: args.Proof.Data.ProofURL,
			},
		})
		return nil, err

	case "getFile":
		var args struct{ FileId *big.Int }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, ok := sharedtypes.IDFromBig(args.FileId)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", args.FileId)
		}
		file, err := h.k.GetFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		return []interface{}{file.ToContract()}, nil

	case "getFileIdByUrl":
		var args struct{ Url string }
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		return []interface{}{sharedtypes.BigFromID(h.k.GetFileIDByURL(ctx, args.Url))}, nil

	case "getFilePermission":
		var args struct {
			FileId  *big.Int
			Account common.Address
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, _ := sharedtypes.IDFromBig(args.FileId)
		key, _ := h.k.GetFilePermission(ctx, fileID, args.Account)
		return []interface{}{key}, nil

	case "getFileProof":
		var args struct {
			FileId *big.Int
			Index  *big.Int
		}
		if err := call.CopyArgs(&args); err != nil {
			return nil, err
		}
		fileID, ok := sharedtypes.IDFromBig(args.FileId)
		index, ok2 := sharedtypes.IDFromBig(args.Index)
		if !ok || !ok2 {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "proof %s of file %s", args.Index, args.FileId)
		}
		proof, err := h.k.GetProof(ctx, fileID, index)
		if err != nil {
			return nil, err
		}
		return []interface{}{proof.ToContract()}, nil

	case "filesCount":
		return []interface{}{sharedtypes.BigFromID(h.k.FilesCount(ctx))}, nil
	}

	return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unknown method %s", call.Method.Name)
}
