package keeper

import (
	"context"
	"fmt"

	"github.com/coolcode/alith/x/settlement/types"
)

// InitGenesis loads the settlement users and accounts
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid settlement genesis: %w", err)
	}
	for _, user := range data.Users {
		if err := k.SetUser(ctx, user); err != nil {
			return fmt.Errorf("failed to initialize user %s: %w", user.Address.Hex(), err)
		}
	}
	for _, account := range data.Accounts {
		if err := k.SetAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to initialize account %s/%s: %w", account.User.Hex(), account.Node.Hex(), err)
		}
	}
	return nil
}

// ExportGenesis exports users and inference accounts
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gs := types.DefaultGenesis()
	err := k.IterateUsers(ctx, func(user types.User) (bool, error) {
		gs.Users = append(gs.Users, user)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	err = k.IterateAccounts(ctx, func(account types.Account) (bool, error) {
		gs.Accounts = append(gs.Accounts, account)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}
