package keeper

import (
	"context"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/files/types"
	"github.com/coolcode/alith/x/shared/codec"
)

// InitGenesis loads files, proofs and permissions into the store
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid files genesis: %w", err)
	}

	store := k.getStore(ctx)
	var maxID uint64
	for _, file := range data.Files {
		if err := k.SetFile(ctx, file); err != nil {
			return fmt.Errorf("failed to initialize file %d: %w", file.ID, err)
		}
		store.Set(FileByURLKey(file.URL), GetIDBytes(file.ID))
		if file.ID > maxID {
			maxID = file.ID
		}
	}
	store.Set(NextFileIDKey, GetIDBytes(maxID+1))

	for _, proof := range data.Proofs {
		if err := k.SetProof(ctx, proof); err != nil {
			return fmt.Errorf("failed to initialize proof %d of file %d: %w", proof.Index, proof.FileID, err)
		}
	}
	for _, p := range data.Permissions {
		store.Set(PermissionKey(p.FileID, p.Permission.Account), []byte(p.Permission.Key))
	}
	return nil
}

// ExportGenesis exports the file registry
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gs := types.DefaultGenesis()
	store := k.getStore(ctx)

	err := k.IterateFiles(ctx, func(file types.File) (bool, error) {
		gs.Files = append(gs.Files, file)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	proofIter := storetypes.KVStorePrefixIterator(store, ProofKeyPrefix)
	defer proofIter.Close()
	for ; proofIter.Valid(); proofIter.Next() {
		var proof types.Proof
		if err := codec.Unmarshal(proofIter.Value(), &proof); err != nil {
			return nil, err
		}
		gs.Proofs = append(gs.Proofs, proof)
	}

	permIter := storetypes.KVStorePrefixIterator(store, PermissionKeyPrefix)
	defer permIter.Close()
	for ; permIter.Valid(); permIter.Next() {
		key := permIter.Key()[len(PermissionKeyPrefix):]
		if len(key) != 8+common.AddressLength {
			continue
		}
		gs.Permissions = append(gs.Permissions, types.FilePermission{
			FileID: GetIDFromBytes(key[:8]),
			Permission: types.Permission{
				Account: common.BytesToAddress(key[8:]),
				Key:     string(permIter.Value()),
			},
		})
	}
	return gs, nil
}
