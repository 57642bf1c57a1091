package keeper

import (
	"context"
	"encoding/binary"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Keeper of the native balances. It also tracks the per-account sequence
// used to order signed transactions.
type Keeper struct {
	storeKey storetypes.StoreKey
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new bank Keeper instance
func NewKeeper(key storetypes.StoreKey) Keeper {
	return Keeper{storeKey: key}
}

// getStore returns the KVStore for the bank module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}
	return sharedtypes.UnwrapContext(ctx).KVStore(k.storeKey)
}

func encodeAmount(v sdkmath.Uint) []byte {
	return v.BigInt().FillBytes(make([]byte, 32))
}

func decodeAmount(bz []byte) sdkmath.Uint {
	if len(bz) == 0 {
		return sdkmath.ZeroUint()
	}
	return sdkmath.NewUintFromBigInt(new(big.Int).SetBytes(bz))
}

func toUint(amount *big.Int) (sdkmath.Uint, error) {
	if amount == nil {
		return sdkmath.ZeroUint(), nil
	}
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return sdkmath.Uint{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "amount %s out of range", amount)
	}
	return sdkmath.NewUintFromBigInt(amount), nil
}

func (k Keeper) balance(ctx context.Context, addr common.Address) sdkmath.Uint {
	return decodeAmount(k.getStore(ctx).Get(BalanceKey(addr)))
}

func (k Keeper) setBalance(ctx context.Context, addr common.Address, amount sdkmath.Uint) {
	store := k.getStore(ctx)
	if amount.IsZero() {
		store.Delete(BalanceKey(addr))
		return
	}
	store.Set(BalanceKey(addr), encodeAmount(amount))
}

// GetBalance returns the native balance of addr
func (k Keeper) GetBalance(ctx context.Context, addr common.Address) *big.Int {
	return k.balance(ctx, addr).BigInt()
}

// SendCoins moves amount from one account to another. The transfer fails
// with ErrInsufficientBalance and leaves both balances untouched when the
// sender cannot cover it.
func (k Keeper) SendCoins(ctx context.Context, from, to common.Address, amount *big.Int) error {
	amt, err := toUint(amount)
	if err != nil {
		return err
	}
	if amt.IsZero() || from == to {
		return nil
	}

	fromBalance := k.balance(ctx, from)
	if fromBalance.LT(amt) {
		return errorsmod.Wrapf(sharedtypes.ErrInsufficientBalance,
			"%s has %s, needs %s", from.Hex(), fromBalance, amt)
	}

	k.setBalance(ctx, from, fromBalance.Sub(amt))
	k.setBalance(ctx, to, k.balance(ctx, to).Add(amt))

	sharedtypes.UnwrapContext(ctx).EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"transfer",
			sharedtypes.NewAttribute("from", from.Hex()),
			sharedtypes.NewAttribute("to", to.Hex()),
			sharedtypes.NewAttribute("amount", amt.String()),
		),
	)
	return nil
}

// MintCoins credits newly created funds to addr and grows the supply.
// Only genesis and the devnet faucet mint.
func (k Keeper) MintCoins(ctx context.Context, to common.Address, amount *big.Int) error {
	amt, err := toUint(amount)
	if err != nil {
		return err
	}
	if amt.IsZero() {
		return nil
	}

	store := k.getStore(ctx)
	supply := decodeAmount(store.Get(SupplyKey))
	store.Set(SupplyKey, encodeAmount(supply.Add(amt)))
	k.setBalance(ctx, to, k.balance(ctx, to).Add(amt))

	sharedtypes.UnwrapContext(ctx).EventManager().EmitEvent(
		sharedtypes.NewEvent(
			"mint",
			sharedtypes.NewAttribute("to", to.Hex()),
			sharedtypes.NewAttribute("amount", amt.String()),
		),
	)
	return nil
}

// GetSupply returns the total minted supply
func (k Keeper) GetSupply(ctx context.Context) *big.Int {
	return decodeAmount(k.getStore(ctx).Get(SupplyKey)).BigInt()
}

// GetSequence returns the next expected transaction sequence of addr
func (k Keeper) GetSequence(ctx context.Context, addr common.Address) uint64 {
	bz := k.getStore(ctx).Get(SequenceKey(addr))
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

// IncrementSequence advances the transaction sequence of addr
func (k Keeper) IncrementSequence(ctx context.Context, addr common.Address) uint64 {
	next := k.GetSequence(ctx, addr) + 1
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, next)
	k.getStore(ctx).Set(SequenceKey(addr), bz)
	return next
}

// IterateBalances iterates over all non-zero balances
func (k Keeper) IterateBalances(ctx context.Context, cb func(addr common.Address, amount *big.Int) (stop bool, err error)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, BalanceKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		addr := common.BytesToAddress(iterator.Key()[len(BalanceKeyPrefix):])
		stop, err := cb(addr, decodeAmount(iterator.Value()).BigInt())
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}
