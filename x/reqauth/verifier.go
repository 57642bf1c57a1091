package reqauth

import (
	"errors"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/store/dbadapter"
	storetypes "cosmossdk.io/store/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/x/shared/nonce"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// replayErrors maps nonce manager failures onto the shared taxonomy.
type replayErrors struct{}

func (replayErrors) InvalidNonceError(msg string) error {
	return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, msg)
}

func (replayErrors) ReplayedNonceError(msg string) error {
	return errorsmod.Wrap(sharedtypes.ErrUnauthorized, "replayed request: "+msg)
}

// OpenReplayStore opens the KV store backing replay detection. An empty dir
// keeps the state in memory. The returned closer releases the database.
func OpenReplayStore(dir string) (storetypes.KVStore, func() error, error) {
	if dir == "" {
		db := dbm.NewMemDB()
		return dbadapter.Store{DB: db}, db.Close, nil
	}
	db, err := dbm.NewGoLevelDB("replay", dir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open replay db in %s: %w", dir, err)
	}
	return dbadapter.Store{DB: db}, db.Close, nil
}

// Verifier authenticates requests addressed to one node. It is safe for
// concurrent use.
type Verifier struct {
	node    common.Address
	nonces  *nonce.Manager
	logger  log.Logger
	metrics *Metrics
}

// NewVerifier returns a verifier for requests to node that records nonces
// in store under the given replay policy.
func NewVerifier(node common.Address, store storetypes.KVStore, policy nonce.Policy, window time.Duration, logger log.Logger) *Verifier {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Verifier{
		node:    node,
		nonces:  nonce.NewManager(store, replayErrors{}, policy, window),
		logger:  logger.With("module", "reqauth"),
		metrics: NewMetrics(),
	}
}

// WithClock replaces the clock used by the replay window.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.nonces.WithClock(now)
	return v
}

// Node returns the address requests must be signed for.
func (v *Verifier) Node() common.Address {
	return v.node
}

// Verify checks that the headers were signed by the claimed user for this
// node and that the nonce has not been used before. A nonce is consumed
// only when the signature is valid.
func (v *Verifier) Verify(h Headers) error {
	err := v.verify(h)
	v.metrics.Verifications.WithLabelValues(sharedtypes.Kind(err)).Inc()
	if err != nil {
		v.logger.Debug("request rejected", "user", h.User.Hex(), "nonce", sharedtypes.BigOrZero(h.Nonce).String(), "error", err)
	}
	return err
}

func (v *Verifier) verify(h Headers) error {
	if h.Nonce == nil {
		return errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "nonce missing")
	}
	if err := signing.Verify(h.Payload(v.node), h.Signature, h.User); err != nil {
		return err
	}
	return v.nonces.Consume(v.node, h.User, h.Nonce)
}

// Prune drops expired nonces under the window policy.
func (v *Verifier) Prune(max int) (int, error) {
	n, err := v.nonces.PruneExpiredNonces(max)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		v.metrics.NoncesPruned.Add(float64(n))
	}
	return n, nil
}

// IsReplay reports whether err is a replay rejection.
func IsReplay(err error) bool {
	var mismatch *sharedtypes.IdentityMismatchError
	return errors.Is(err, sharedtypes.ErrUnauthorized) && !errors.As(err, &mismatch)
}
