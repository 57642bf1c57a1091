package app

import (
	"context"
	"math/big"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/app/ante"
	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// Session is a ledger.Gateway that signs transactions for one account and
// delivers them to an App in process.
type Session struct {
	app    *App
	signer *signing.Signer

	// mu serializes submissions so nonces are assigned in order.
	mu sync.Mutex
}

var _ ledger.Gateway = (*Session)(nil)

// NewSession returns a gateway for signer on app.
func NewSession(app *App, signer *signing.Signer) *Session {
	return &Session{app: app, signer: signer}
}

// Address returns the signing account.
func (s *Session) Address() common.Address { return s.signer.Address() }

// Signer returns the session's signer.
func (s *Session) Signer() *signing.Signer { return s.signer }

// Submit signs tx with the next sequence and delivers it. Failed calls
// return the failed receipt together with the call's error.
func (s *Session) Submit(ctx context.Context, tx ledger.Tx) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrLedger, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	signed, err := ante.Sign(s.signer, ante.Envelope{
		ChainID: s.app.ChainID(),
		Nonce:   s.app.Sequence(s.signer.Address()),
		To:      tx.To,
		Value:   sharedtypes.BigOrZero(tx.Value),
		Data:    tx.Data,
	})
	if err != nil {
		return nil, err
	}
	return s.app.DeliverTx(signed)
}

// Call executes a read-only call.
func (s *Session) Call(ctx context.Context, msg ledger.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrLedger, err.Error())
	}
	if msg.From == (common.Address{}) {
		msg.From = s.signer.Address()
	}
	return s.app.Query(msg)
}

// BalanceAt returns the committed native balance of addr.
func (s *Session) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrLedger, err.Error())
	}
	return s.app.Balance(addr), nil
}
