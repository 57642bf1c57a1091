package keeper

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/files/types"
	"github.com/coolcode/alith/x/shared/codec"
	sharedkeeper "github.com/coolcode/alith/x/shared/keeper"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// Keeper of the file registry
type Keeper struct {
	storeKey    storetypes.StoreKey
	nodesKeeper types.NodesKeeper
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new files Keeper instance
func NewKeeper(key storetypes.StoreKey, nodesKeeper types.NodesKeeper) Keeper {
	return Keeper{storeKey: key, nodesKeeper: nodesKeeper}
}

// getStore returns the KVStore for the files module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}
	return sharedtypes.UnwrapContext(ctx).KVStore(k.storeKey)
}

// AddFile registers url for owner and returns the fresh file id. A url can
// be registered only once.
func (k Keeper) AddFile(ctx context.Context, owner common.Address, url string) (uint64, error) {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	if existing := k.GetFileIDByURL(ctx, url); existing != 0 {
		return 0, errorsmod.Wrapf(sharedtypes.ErrAlreadyExists, "url %q is file %d", url, existing)
	}

	fileID := k.getNextFileID(ctx)
	file := types.File{
		ID:      fileID,
		Owner:   owner,
		URL:     url,
		AddedAt: sdkCtx.BlockTime().Unix(),
	}
	if err := k.SetFile(ctx, file); err != nil {
		return 0, fmt.Errorf("failed to store file: %w", err)
	}
	k.getStore(ctx).Set(FileByURLKey(url), GetIDBytes(fileID))

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"file_added",
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", fileID)),
			sharedtypes.NewAttribute("owner", owner.Hex()),
			sharedtypes.NewAttribute("url", url),
		),
	)
	return fileID, nil
}

// AddFileWithPermissions registers url for owner and grants the given
// permissions in the same transaction.
func (k Keeper) AddFileWithPermissions(ctx context.Context, owner common.Address, url string, permissions []types.Permission) (uint64, error) {
	fileID, err := k.AddFile(ctx, owner, url)
	if err != nil {
		return 0, err
	}
	for _, p := range permissions {
		k.setPermission(ctx, fileID, p)
	}
	return fileID, nil
}

// AddPermission grants account access to a file. Only the file owner may
// grant; granting again replaces the previous key.
func (k Keeper) AddPermission(ctx context.Context, sender common.Address, fileID uint64, account common.Address, encryptedKey string) error {
	file, err := k.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := sharedkeeper.ValidateSelf("grant permission", file.Owner, sender); err != nil {
		return err
	}

	k.setPermission(ctx, fileID, types.Permission{Account: account, Key: encryptedKey})
	return nil
}

func (k Keeper) setPermission(ctx context.Context, fileID uint64, p types.Permission) {
	k.getStore(ctx).Set(PermissionKey(fileID, p.Account), []byte(p.Key))

	sharedtypes.UnwrapContext(ctx).EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"permission_granted",
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", fileID)),
			sharedtypes.NewAttribute("account", p.Account.Hex()),
		),
	)
}

// GetFilePermission returns the encrypted key granted to account, if any
func (k Keeper) GetFilePermission(ctx context.Context, fileID uint64, account common.Address) (string, bool) {
	bz := k.getStore(ctx).Get(PermissionKey(fileID, account))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

// AddProof attaches a proof to a file. The proof must be signed by an
// active node over (file id, file url, proof url). Returns the proof index.
func (k Keeper) AddProof(ctx context.Context, fileID uint64, sig []byte, data signing.ProofPayload) (uint64, error) {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	file, err := k.GetFile(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if id, ok := sharedtypes.IDFromBig(data.ID); !ok || id != fileID {
		return 0, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "proof data id %s does not match file %d", data.ID, fileID)
	}
	if data.FileURL != "" && data.FileURL != file.URL {
		return 0, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "proof file url %q does not match file %d", data.FileURL, fileID)
	}

	signer, err := signing.Recover(data, sig)
	if err != nil {
		return 0, err
	}
	if !k.nodesKeeper.IsActiveNode(ctx, signer) {
		return 0, errorsmod.Wrapf(sharedtypes.ErrUnauthorized, "proof signer %s is not an active node", signer.Hex())
	}

	file.ProofsCount++
	proof := types.Proof{
		FileID:    fileID,
		Index:     file.ProofsCount,
		Signature: sig,
		FileURL:   data.FileURL,
		ProofURL:  data.ProofURL,
		Node:      signer,
		AddedAt:   sdkCtx.BlockTime().Unix(),
	}
	if err := k.SetProof(ctx, proof); err != nil {
		return 0, err
	}
	if err := k.SetFile(ctx, file); err != nil {
		return 0, err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"proof_added",
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", fileID)),
			sharedtypes.NewAttribute("proof_index", fmt.Sprintf("%d", proof.Index)),
			sharedtypes.NewAttribute("node", signer.Hex()),
			sharedtypes.NewAttribute("proof_url", data.ProofURL),
		),
	)
	return proof.Index, nil
}

// GetFile retrieves a file by id
func (k Keeper) GetFile(ctx context.Context, fileID uint64) (types.File, error) {
	bz := k.getStore(ctx).Get(FileKey(fileID))
	if bz == nil {
		return types.File{}, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %d", fileID)
	}

	var file types.File
	if err := codec.Unmarshal(bz, &file); err != nil {
		return types.File{}, err
	}
	return file, nil
}

// SetFile stores a file record
func (k Keeper) SetFile(ctx context.Context, file types.File) error {
	bz, err := codec.Marshal(file)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(FileKey(file.ID), bz)
	return nil
}

// HasFile reports whether a file with the given id exists
func (k Keeper) HasFile(ctx context.Context, fileID uint64) bool {
	return k.getStore(ctx).Has(FileKey(fileID))
}

// GetFileIDByURL returns the id registered for url, or 0 when the url is
// unknown.
func (k Keeper) GetFileIDByURL(ctx context.Context, url string) uint64 {
	return GetIDFromBytes(k.getStore(ctx).Get(FileByURLKey(url)))
}

// FilesCount returns the number of registered files
func (k Keeper) FilesCount(ctx context.Context) uint64 {
	next := GetIDFromBytes(k.getStore(ctx).Get(NextFileIDKey))
	if next == 0 {
		return 0
	}
	return next - 1
}

// GetProof retrieves the index-th proof of a file
func (k Keeper) GetProof(ctx context.Context, fileID, index uint64) (types.Proof, error) {
	bz := k.getStore(ctx).Get(ProofKey(fileID, index))
	if bz == nil {
		return types.Proof{}, errorsmod.Wrapf(sharedtypes.ErrNotFound, "proof %d of file %d", index, fileID)
	}

	var proof types.Proof
	if err := codec.Unmarshal(bz, &proof); err != nil {
		return types.Proof{}, err
	}
	return proof, nil
}

// SetProof stores a proof record
func (k Keeper) SetProof(ctx context.Context, proof types.Proof) error {
	bz, err := codec.Marshal(proof)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(ProofKey(proof.FileID, proof.Index), bz)
	return nil
}

// IterateFiles iterates over all files in id order
func (k Keeper) IterateFiles(ctx context.Context, cb func(file types.File) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, FileKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var file types.File
		if err := codec.Unmarshal(iterator.Value(), &file); err != nil {
			return err
		}

		stop, err := cb(file)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// getNextFileID gets and increments the next file ID
func (k Keeper) getNextFileID(ctx context.Context) uint64 {
	store := k.getStore(ctx)

	nextID := GetIDFromBytes(store.Get(NextFileIDKey))
	if nextID == 0 {
		nextID = 1
	}
	store.Set(NextFileIDKey, GetIDBytes(nextID+1))
	return nextID
}

// MarkProofRewarded flags a proof as rewarded. It fails if the proof was
// already rewarded.
func (k Keeper) MarkProofRewarded(ctx context.Context, fileID, index uint64) (types.Proof, error) {
	proof, err := k.GetProof(ctx, fileID, index)
	if err != nil {
		return types.Proof{}, err
	}
	if proof.Rewarded {
		return types.Proof{}, errorsmod.Wrapf(sharedtypes.ErrInvalidState, "proof %d of file %d already rewarded", index, fileID)
	}
	proof.Rewarded = true
	if err := k.SetProof(ctx, proof); err != nil {
		return types.Proof{}, err
	}
	return proof, nil
}
