package client

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// DefaultProofIndex is the proof rewarded when the caller names none.
const DefaultProofIndex = uint64(1)

// AddFile returns the id of url, registering it first when it is unknown.
// Calling it twice with the same url yields the same id.
func (c *Client) AddFile(ctx context.Context, url string) (uint64, error) {
	id, err := c.GetFileIDByURL(ctx, url)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	if _, err := c.submit(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, nil, "addFile", url); err != nil {
		return 0, err
	}
	return c.fileIDAfterAdd(ctx, url)
}

// AddFileWithPermissions registers url for owner with the given grants.
// Unlike AddFile it fails with ErrAlreadyExists for a known url.
func (c *Client) AddFileWithPermissions(ctx context.Context, url string, owner common.Address, perms []contracts.Permission) (uint64, error) {
	if perms == nil {
		perms = []contracts.Permission{}
	}
	if _, err := c.submit(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, nil, "addFileWithPermissions", url, owner, perms); err != nil {
		return 0, err
	}
	return c.fileIDAfterAdd(ctx, url)
}

func (c *Client) fileIDAfterAdd(ctx context.Context, url string) (uint64, error) {
	id, err := c.GetFileIDByURL(ctx, url)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errorsmod.Wrapf(sharedtypes.ErrLedger, "file %q not visible after registration", url)
	}
	return id, nil
}

// GetFileIDByURL returns the id registered for url, or 0 when none is.
func (c *Client) GetFileIDByURL(ctx context.Context, url string) (uint64, error) {
	return c.callUint(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, "getFileIdByUrl", url)
}

// GetFile returns the file record.
func (c *Client) GetFile(ctx context.Context, fileID uint64) (contracts.File, error) {
	out, err := c.call(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, "getFile", sharedtypes.BigFromID(fileID))
	if err != nil {
		return contracts.File{}, err
	}
	return convert[contracts.File]("getFile", out[0])
}

// FilesCount returns the number of registered files.
func (c *Client) FilesCount(ctx context.Context) (uint64, error) {
	return c.callUint(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, "filesCount")
}

// AddPermission grants account the encrypted key for fileID. Only the file
// owner may grant.
func (c *Client) AddPermission(ctx context.Context, fileID uint64, account common.Address, key string) error {
	_, err := c.submit(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, nil,
		"addPermissionForFile", sharedtypes.BigFromID(fileID), account, key)
	return err
}

// GetPermission returns the key granted to account, or "".
func (c *Client) GetPermission(ctx context.Context, fileID uint64, account common.Address) (string, error) {
	out, err := c.call(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, "getFilePermission", sharedtypes.BigFromID(fileID), account)
	if err != nil {
		return "", err
	}
	key, ok := out[0].(string)
	if !ok {
		return "", errorsmod.Wrapf(sharedtypes.ErrLedger, "getFilePermission returned %T", out[0])
	}
	return key, nil
}

// AddProof signs data with signer and records the proof for fileID. The
// signer must be a registered node; it is usually the gateway's account.
func (c *Client) AddProof(ctx context.Context, signer *signing.Signer, fileID uint64, data signing.ProofPayload) (*ledger.Receipt, error) {
	if data.ID == nil {
		data.ID = sharedtypes.BigFromID(fileID)
	}
	sig, err := signer.Sign(data)
	if err != nil {
		return nil, err
	}
	proof := contracts.Proof{
		Signature: sig,
		Data: contracts.ProofData{
			ID:       data.ID,
			FileURL:  data.FileURL,
			ProofURL: data.ProofURL,
		},
	}
	return c.submit(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, nil, "addProof", sharedtypes.BigFromID(fileID), proof)
}

// GetProof returns the proof at the 1-based index.
func (c *Client) GetProof(ctx context.Context, fileID, index uint64) (contracts.Proof, error) {
	out, err := c.call(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, "getFileProof",
		sharedtypes.BigFromID(fileID), sharedtypes.BigFromID(index))
	if err != nil {
		return contracts.Proof{}, err
	}
	return convert[contracts.Proof]("getFileProof", out[0])
}

// RequestReward releases the reward for a proof of fileID. A zero
// proofIndex selects DefaultProofIndex.
func (c *Client) RequestReward(ctx context.Context, fileID, proofIndex uint64) (*ledger.Receipt, error) {
	if proofIndex == 0 {
		proofIndex = DefaultProofIndex
	}
	return c.submit(ctx, &contracts.DataRegistry, c.contracts.DataRegistry, nil,
		"requestReward", sharedtypes.BigFromID(fileID), new(big.Int).SetUint64(proofIndex))
}
