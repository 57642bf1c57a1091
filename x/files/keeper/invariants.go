package keeper

import (
	"fmt"

	"github.com/coolcode/alith/x/files/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// RegisterInvariants registers the files module invariants
func RegisterInvariants(ir sharedtypes.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "url-index", URLIndexInvariant(k))
	ir.RegisterRoute(types.ModuleName, "proofs-count", ProofsCountInvariant(k))
}

// URLIndexInvariant checks that every file is reachable through its url
// and that ids are dense.
func URLIndexInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		var (
			msg    string
			broken bool
			count  uint64
		)

		err := k.IterateFiles(ctx, func(file types.File) (bool, error) {
			count++
			if id := k.GetFileIDByURL(ctx, file.URL); id != file.ID {
				broken = true
				msg += fmt.Sprintf("file %d url %q indexes to %d\n", file.ID, file.URL, id)
			}
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "url-index", err.Error()), true
		}
		if total := k.FilesCount(ctx); total != count {
			broken = true
			msg += fmt.Sprintf("files count %d but %d files stored\n", total, count)
		}

		return sharedtypes.FormatInvariant(types.ModuleName, "url-index", msg), broken
	}
}

// ProofsCountInvariant checks that every proof index up to a file's proofs
// count is stored.
func ProofsCountInvariant(k Keeper) sharedtypes.Invariant {
	return func(ctx sharedtypes.Context) (string, bool) {
		var (
			msg    string
			broken bool
		)

		err := k.IterateFiles(ctx, func(file types.File) (bool, error) {
			for i := uint64(1); i <= file.ProofsCount; i++ {
				if _, err := k.GetProof(ctx, file.ID, i); err != nil {
					broken = true
					msg += fmt.Sprintf("file %d missing proof %d\n", file.ID, i)
				}
			}
			return false, nil
		})
		if err != nil {
			return sharedtypes.FormatInvariant(types.ModuleName, "proofs-count", err.Error()), true
		}

		return sharedtypes.FormatInvariant(types.ModuleName, "proofs-count", msg), broken
	}
}
