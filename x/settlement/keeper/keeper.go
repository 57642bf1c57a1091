package keeper

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/settlement/types"
	"github.com/coolcode/alith/x/shared/codec"
	sharedkeeper "github.com/coolcode/alith/x/shared/keeper"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// Keeper of user balances, inference accounts and reward claims. Deposited
// funds are held at the vault address.
type Keeper struct {
	storeKey    storetypes.StoreKey
	vault       common.Address
	bankKeeper  types.BankKeeper
	nodesKeeper types.NodesKeeper
	filesKeeper types.FilesKeeper
	jobsKeeper  types.JobsKeeper
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new settlement Keeper instance
func NewKeeper(
	key storetypes.StoreKey,
	vault common.Address,
	bankKeeper types.BankKeeper,
	nodesKeeper types.NodesKeeper,
	filesKeeper types.FilesKeeper,
	jobsKeeper types.JobsKeeper,
) Keeper {
	return Keeper{
		storeKey:    key,
		vault:       vault,
		bankKeeper:  bankKeeper,
		nodesKeeper: nodesKeeper,
		filesKeeper: filesKeeper,
		jobsKeeper:  jobsKeeper,
	}
}

// VaultAddress returns the account holding deposited funds
func (k Keeper) VaultAddress() common.Address {
	return k.vault
}

// getStore returns the KVStore for the settlement module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}
	return sharedtypes.UnwrapContext(ctx).KVStore(k.storeKey)
}

// AddUser creates a settlement user funded with amount. The amount must
// already be held at the vault.
func (k Keeper) AddUser(ctx context.Context, addr common.Address, amount *big.Int) error {
	if _, found := k.GetUser(ctx, addr); found {
		return errorsmod.Wrapf(sharedtypes.ErrAlreadyExists, "user %s", addr.Hex())
	}
	return k.Deposit(ctx, addr, amount)
}

// Deposit credits amount to the user's available balance, creating the
// user on first use. The amount must already be held at the vault.
func (k Keeper) Deposit(ctx context.Context, addr common.Address, amount *big.Int) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)
	amount, err := checkAmount("deposit", amount)
	if err != nil {
		return err
	}

	user, found := k.GetUser(ctx, addr)
	if !found {
		user = types.NewUser(addr)
	}
	user.AvailableBalance = new(big.Int).Add(user.AvailableBalance, amount)
	user.TotalBalance = new(big.Int).Add(user.TotalBalance, amount)
	if err := k.SetUser(ctx, user); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"deposited",
			sharedtypes.NewAttribute("user", addr.Hex()),
			sharedtypes.NewAttribute("amount", amount.String()),
		),
	)
	return nil
}

// Withdraw pays amount of the user's available balance back to the user.
func (k Keeper) Withdraw(ctx context.Context, addr common.Address, amount *big.Int) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)
	amount, err := checkAmount("withdrawal", amount)
	if err != nil {
		return err
	}

	user, found := k.GetUser(ctx, addr)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "user %s", addr.Hex())
	}
	if user.AvailableBalance.Cmp(amount) < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInsufficientBalance,
			"available %s, requested %s", user.AvailableBalance, amount)
	}

	if err := k.bankKeeper.SendCoins(ctx, k.vault, addr, amount); err != nil {
		return err
	}
	user.AvailableBalance = new(big.Int).Sub(user.AvailableBalance, amount)
	user.TotalBalance = new(big.Int).Sub(user.TotalBalance, amount)
	if err := k.SetUser(ctx, user); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"withdrawn",
			sharedtypes.NewAttribute("user", addr.Hex()),
			sharedtypes.NewAttribute("amount", amount.String()),
		),
	)
	return nil
}

// DepositInference moves amount of the user's available balance into the
// inference account with node. Nothing changes unless the whole transfer
// succeeds.
func (k Keeper) DepositInference(ctx context.Context, addr, node common.Address, amount *big.Int) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)
	amount, err := checkAmount("inference deposit", amount)
	if err != nil {
		return err
	}

	if _, found := k.nodesKeeper.GetNode(ctx, node); !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "node %s", node.Hex())
	}
	user, found := k.GetUser(ctx, addr)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "user %s", addr.Hex())
	}
	if user.AvailableBalance.Cmp(amount) < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInsufficientBalance,
			"available %s, requested %s", user.AvailableBalance, amount)
	}

	account, found := k.GetAccount(ctx, addr, node)
	if !found {
		account = types.NewAccount(addr, node)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	user.AvailableBalance = new(big.Int).Sub(user.AvailableBalance, amount)
	if !user.HasInferenceNode(node) {
		user.InferenceNodes = append(user.InferenceNodes, node)
	}

	if err := k.SetAccount(ctx, account); err != nil {
		return err
	}
	if err := k.SetUser(ctx, user); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"inference_deposited",
			sharedtypes.NewAttribute("user", addr.Hex()),
			sharedtypes.NewAttribute("node", node.Hex()),
			sharedtypes.NewAttribute("amount", amount.String()),
		),
	)
	return nil
}

// RetrieveInference returns the balances of the user's inference accounts
// with nodes to the available balance. Settled nonces are kept so that
// old fee claims stay rejected.
func (k Keeper) RetrieveInference(ctx context.Context, addr common.Address, nodes []common.Address) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	user, found := k.GetUser(ctx, addr)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "user %s", addr.Hex())
	}

	refunded := new(big.Int)
	for _, node := range nodes {
		account, found := k.GetAccount(ctx, addr, node)
		if !found {
			return errorsmod.Wrapf(sharedtypes.ErrNotFound, "inference account %s/%s", addr.Hex(), node.Hex())
		}
		refunded.Add(refunded, account.Balance)
		account.Balance = new(big.Int)
		if err := k.SetAccount(ctx, account); err != nil {
			return err
		}
	}

	user.AvailableBalance = new(big.Int).Add(user.AvailableBalance, refunded)
	var remaining []common.Address
	for _, n := range user.InferenceNodes {
		if !containsAddress(nodes, n) {
			remaining = append(remaining, n)
		}
	}
	user.InferenceNodes = remaining
	if err := k.SetUser(ctx, user); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"inference_retrieved",
			sharedtypes.NewAttribute("user", addr.Hex()),
			sharedtypes.NewAttribute("amount", refunded.String()),
		),
	)
	return nil
}

// SettleFees charges the cost of one inference request to the user's
// account with the sending node. The node must have signed the proof, the
// user must have signed (nonce, user, node), and the nonce must be newer
// than the last one settled for the account.
func (k Keeper) SettleFees(ctx context.Context, sender common.Address, proof types.SettlementProof) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)
	data := proof.Data
	cost, err := checkAmount("cost", data.Cost)
	if err != nil {
		return err
	}
	data.Cost = cost
	data.Nonce = sharedtypes.BigOrZero(data.Nonce)

	if err := signing.Verify(data, proof.Signature, sender); err != nil {
		return err
	}
	userReq := signing.RequestPayload{Nonce: data.Nonce, User: data.User, Node: sender}
	if err := signing.Verify(userReq, data.UserSignature, data.User); err != nil {
		return err
	}

	account, found := k.GetAccount(ctx, data.User, sender)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "inference account %s/%s", data.User.Hex(), sender.Hex())
	}
	if data.Nonce.Cmp(account.Nonce) <= 0 {
		return errorsmod.Wrapf(sharedtypes.ErrUnauthorized,
			"replayed settlement: nonce %s not greater than %s", data.Nonce, account.Nonce)
	}
	if account.Balance.Cmp(data.Cost) < 0 {
		return errorsmod.Wrapf(sharedtypes.ErrInsufficientBalance,
			"inference balance %s, cost %s", account.Balance, data.Cost)
	}
	user, found := k.GetUser(ctx, data.User)
	if !found {
		return errorsmod.Wrapf(sharedtypes.ErrNotFound, "user %s", data.User.Hex())
	}

	if err := k.bankKeeper.SendCoins(ctx, k.vault, sender, data.Cost); err != nil {
		return err
	}
	account.Balance = new(big.Int).Sub(account.Balance, data.Cost)
	account.Nonce = new(big.Int).Set(data.Nonce)
	user.TotalBalance = new(big.Int).Sub(user.TotalBalance, data.Cost)
	if err := k.SetAccount(ctx, account); err != nil {
		return err
	}
	if err := k.SetUser(ctx, user); err != nil {
		return err
	}

	sdkCtx.Logger().Debug("fees settled",
		"user", data.User.Hex(),
		"node", sender.Hex(),
		"cost", data.Cost.String(),
		"nonce", data.Nonce.String(),
	)

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"fees_settled",
			sharedtypes.NewAttribute("user", data.User.Hex()),
			sharedtypes.NewAttribute("node", sender.Hex()),
			sharedtypes.NewAttribute("cost", data.Cost.String()),
			sharedtypes.NewAttribute("nonce", data.Nonce.String()),
		),
	)
	return nil
}

// RequestReward releases the escrowed value of the job the proving node
// completed for the file. Only the file owner may claim, and each proof
// pays out once.
func (k Keeper) RequestReward(ctx context.Context, sender common.Address, fileID, proofIndex uint64) error {
	sdkCtx := sharedtypes.UnwrapContext(ctx)

	file, err := k.filesKeeper.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := sharedkeeper.ValidateSelf("request reward", file.Owner, sender); err != nil {
		return err
	}
	proof, err := k.filesKeeper.GetProof(ctx, fileID, proofIndex)
	if err != nil {
		return err
	}
	if proof.Rewarded {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidState, "proof %d of file %d already rewarded", proofIndex, fileID)
	}

	job, err := k.jobsKeeper.SettleCompletedJob(ctx, fileID, proof.Node)
	if err != nil {
		return err
	}
	if _, err := k.filesKeeper.MarkProofRewarded(ctx, fileID, proofIndex); err != nil {
		return err
	}

	sdkCtx.Logger().Info("reward released",
		"file_id", fileID,
		"proof_index", proofIndex,
		"job_id", job.ID,
		"node", proof.Node.Hex(),
		"amount", sharedtypes.BigOrZero(job.Value).String(),
	)

	sdkCtx.EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"reward_requested",
			sharedtypes.NewAttribute("file_id", fmt.Sprintf("%d", fileID)),
			sharedtypes.NewAttribute("proof_index", fmt.Sprintf("%d", proofIndex)),
			sharedtypes.NewAttribute("job_id", fmt.Sprintf("%d", job.ID)),
			sharedtypes.NewAttribute("node", proof.Node.Hex()),
			sharedtypes.NewAttribute("amount", sharedtypes.BigOrZero(job.Value).String()),
		),
	)
	return nil
}

// GetUser retrieves a settlement user. It panics on a record that does not
// decode.
func (k Keeper) GetUser(ctx context.Context, addr common.Address) (types.User, bool) {
	bz := k.getStore(ctx).Get(UserKey(addr))
	if bz == nil {
		return types.User{}, false
	}

	var user types.User
	if err := codec.Unmarshal(bz, &user); err != nil {
		panic(fmt.Errorf("decode user %s: %w", addr.Hex(), err))
	}
	user.AvailableBalance = sharedtypes.BigOrZero(user.AvailableBalance)
	user.TotalBalance = sharedtypes.BigOrZero(user.TotalBalance)
	return user, true
}

// SetUser stores a settlement user
func (k Keeper) SetUser(ctx context.Context, user types.User) error {
	bz, err := codec.Marshal(user)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(UserKey(user.Address), bz)
	return nil
}

// GetAccount retrieves the inference account of a (user, node) pair. It
// panics on a record that does not decode.
func (k Keeper) GetAccount(ctx context.Context, user, node common.Address) (types.Account, bool) {
	bz := k.getStore(ctx).Get(AccountKey(user, node))
	if bz == nil {
		return types.Account{}, false
	}

	var account types.Account
	if err := codec.Unmarshal(bz, &account); err != nil {
		panic(fmt.Errorf("decode inference account %s/%s: %w", user.Hex(), node.Hex(), err))
	}
	account.Nonce = sharedtypes.BigOrZero(account.Nonce)
	account.Balance = sharedtypes.BigOrZero(account.Balance)
	return account, true
}

// SetAccount stores an inference account
func (k Keeper) SetAccount(ctx context.Context, account types.Account) error {
	bz, err := codec.Marshal(account)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(AccountKey(account.User, account.Node), bz)
	return nil
}

// IterateUsers iterates over all settlement users
func (k Keeper) IterateUsers(ctx context.Context, cb func(user types.User) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, UserKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var user types.User
		if err := codec.Unmarshal(iterator.Value(), &user); err != nil {
			return err
		}
		user.AvailableBalance = sharedtypes.BigOrZero(user.AvailableBalance)
		user.TotalBalance = sharedtypes.BigOrZero(user.TotalBalance)

		stop, err := cb(user)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// IterateAccounts iterates over all inference accounts
func (k Keeper) IterateAccounts(ctx context.Context, cb func(account types.Account) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, AccountKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var account types.Account
		if err := codec.Unmarshal(iterator.Value(), &account); err != nil {
			return err
		}
		account.Nonce = sharedtypes.BigOrZero(account.Nonce)
		account.Balance = sharedtypes.BigOrZero(account.Balance)

		stop, err := cb(account)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// checkAmount returns amount as a uint256, treating nil as zero. Negative
// or oversized amounts are rejected.
func checkAmount(what string, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return new(big.Int), nil
	}
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "%s %s out of range", what, amount)
	}
	return sdkmath.NewUintFromBigInt(amount).BigInt(), nil
}

func containsAddress(addrs []common.Address, addr common.Address) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}
