// Package nonce provides replay protection for signed request nonces.
// A Manager tracks, per (node, user) pair, which nonces have already been
// accepted and rejects any nonce that would replay an earlier request.
//
// Under the window policy, pruning a nonce raises the pair's floor to it,
// and nonces at or below the floor are rejected. A forgotten nonce
// therefore never becomes acceptable again.
package nonce

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	storetypes "cosmossdk.io/store/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// LastNoncePrefix is the prefix for the highest accepted nonce per pair
	LastNoncePrefix = "nonce"
	// SeenNoncePrefix is the prefix for nonces accepted under the window policy
	SeenNoncePrefix = "nonce_seen"
	// NonceTimestampPrefix is the prefix for the acceptance time of each pair
	NonceTimestampPrefix = "nonce_ts"
	// NonceFloorPrefix is the prefix for the highest pruned nonce per pair
	NonceFloorPrefix = "nonce_floor"

	// DefaultWindow is how long the window policy remembers a nonce
	DefaultWindow = 24 * time.Hour
	// DefaultMaxPrunePerCall bounds the work of a single prune pass
	DefaultMaxPrunePerCall = 100

	nonceLen = 32
)

// Policy selects how replays are detected.
type Policy string

const (
	// PolicyMonotonic requires each nonce to exceed the last accepted one
	// for the same (node, user) pair.
	PolicyMonotonic Policy = "monotonic"
	// PolicyWindow requires each nonce to be unique among the nonces the
	// pair used within the freshness window and above the highest nonce
	// already pruned. Ordering is not enforced inside the window.
	PolicyWindow Policy = "window"
)

// ParsePolicy parses a policy name. An empty name selects PolicyMonotonic.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyMonotonic:
		return PolicyMonotonic, nil
	case PolicyWindow:
		return PolicyWindow, nil
	default:
		return "", fmt.Errorf("unknown nonce policy %q", s)
	}
}

// ErrorProvider allows callers to supply their own error types while using
// the shared nonce logic.
type ErrorProvider interface {
	// InvalidNonceError returns an error for a malformed nonce
	InvalidNonceError(msg string) error
	// ReplayedNonceError returns an error for a nonce that was already used
	ReplayedNonceError(msg string) error
}

// Manager handles nonce validation. It is safe for concurrent use.
type Manager struct {
	mu            sync.Mutex
	store         storetypes.KVStore
	errorProvider ErrorProvider
	policy        Policy
	window        time.Duration
	now           func() time.Time
}

// NewManager creates a nonce manager persisting its state in store.
// window only applies to PolicyWindow; zero selects DefaultWindow.
func NewManager(store storetypes.KVStore, errorProvider ErrorProvider, policy Policy, window time.Duration) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if policy == "" {
		policy = PolicyMonotonic
	}
	return &Manager{
		store:         store,
		errorProvider: errorProvider,
		policy:        policy,
		window:        window,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for timestamps and pruning.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// Policy returns the configured replay policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// encodeNonce encodes a nonce as a fixed 32-byte big-endian value so that
// byte order matches numeric order.
func encodeNonce(n *big.Int) []byte {
	bz := make([]byte, nonceLen)
	return n.FillBytes(bz)
}

// decodeNonce decodes a 32-byte nonce; anything else decodes to zero.
func decodeNonce(bz []byte) *big.Int {
	if len(bz) != nonceLen {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(bz)
}

func encodeTimestamp(ts int64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(ts))
	return bz
}

func decodeTimestamp(bz []byte) int64 {
	if len(bz) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(bz))
}

func pairKey(prefix string, node, user common.Address) []byte {
	key := make([]byte, 0, len(prefix)+1+2*common.AddressLength)
	key = append(key, prefix...)
	key = append(key, '/')
	key = append(key, node.Bytes()...)
	key = append(key, user.Bytes()...)
	return key
}

func (m *Manager) lastNonceKey(node, user common.Address) []byte {
	return pairKey(LastNoncePrefix, node, user)
}

func (m *Manager) nonceTimestampKey(node, user common.Address) []byte {
	return pairKey(NonceTimestampPrefix, node, user)
}

func (m *Manager) nonceFloorKey(node, user common.Address) []byte {
	return pairKey(NonceFloorPrefix, node, user)
}

// floor returns the highest pruned nonce of the pair, or nil.
func (m *Manager) floor(node, user common.Address) *big.Int {
	bz := m.store.Get(m.nonceFloorKey(node, user))
	if bz == nil {
		return nil
	}
	return decodeNonce(bz)
}

func (m *Manager) seenNonceKey(node, user common.Address, n *big.Int) []byte {
	return append(pairKey(SeenNoncePrefix, node, user), encodeNonce(n)...)
}

// validate checks that n is representable as a uint256.
func (m *Manager) validate(n *big.Int) error {
	if n == nil {
		return m.errorProvider.InvalidNonceError("nonce missing")
	}
	if n.Sign() < 0 {
		return m.errorProvider.InvalidNonceError("nonce must not be negative")
	}
	if n.BitLen() > 8*nonceLen {
		return m.errorProvider.InvalidNonceError("nonce exceeds uint256")
	}
	return nil
}

// Consume validates the nonce for the (node, user) pair and, if it does not
// replay an earlier request, records it. A nonce is accepted at most once.
func (m *Manager) Consume(node, user common.Address, n *big.Int) error {
	if err := m.validate(n); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().Unix()
	switch m.policy {
	case PolicyWindow:
		if floor := m.floor(node, user); floor != nil && n.Cmp(floor) <= 0 {
			return m.errorProvider.ReplayedNonceError(fmt.Sprintf(
				"nonce %s not greater than expired nonce %s", n, floor))
		}
		key := m.seenNonceKey(node, user, n)
		if m.store.Has(key) {
			return m.errorProvider.ReplayedNonceError(fmt.Sprintf(
				"nonce %s already used by %s for node %s", n, user.Hex(), node.Hex()))
		}
		m.store.Set(key, encodeTimestamp(now))
	default:
		key := m.lastNonceKey(node, user)
		if bz := m.store.Get(key); bz != nil {
			stored := decodeNonce(bz)
			if n.Cmp(stored) <= 0 {
				return m.errorProvider.ReplayedNonceError(fmt.Sprintf(
					"nonce %s not greater than last accepted %s", n, stored))
			}
		}
		m.store.Set(key, encodeNonce(n))
	}

	m.store.Set(m.nonceTimestampKey(node, user), encodeTimestamp(now))
	return nil
}

// Last returns the highest nonce accepted for the pair under the monotonic
// policy, and whether one exists.
func (m *Manager) Last(node, user common.Address) (*big.Int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bz := m.store.Get(m.lastNonceKey(node, user))
	if bz == nil {
		return nil, false
	}
	return decodeNonce(bz), true
}

// Seen reports whether the nonce has already been accepted for the pair.
func (m *Manager) Seen(node, user common.Address, n *big.Int) bool {
	if m.validate(n) != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.policy == PolicyWindow {
		if floor := m.floor(node, user); floor != nil && n.Cmp(floor) <= 0 {
			return true
		}
		return m.store.Has(m.seenNonceKey(node, user, n))
	}
	bz := m.store.Get(m.lastNonceKey(node, user))
	return bz != nil && n.Cmp(decodeNonce(bz)) <= 0
}

// PruneExpiredNonces removes window-policy nonces older than the window and
// raises each affected pair's floor to the highest nonce removed.
// Returns the number of nonces pruned. The monotonic policy never prunes.
//
// Work is bounded by maxPrunePerCall so callers can amortize cleanup.
func (m *Manager) PruneExpiredNonces(maxPrunePerCall int) (int, error) {
	if m.policy != PolicyWindow {
		return 0, nil
	}
	if maxPrunePerCall <= 0 {
		maxPrunePerCall = DefaultMaxPrunePerCall
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.window).Unix()

	keysToDelete := make([][]byte, 0, maxPrunePerCall)
	iterator := storetypes.KVStorePrefixIterator(m.store, []byte(SeenNoncePrefix+"/"))
	for ; iterator.Valid() && len(keysToDelete) < maxPrunePerCall; iterator.Next() {
		if decodeTimestamp(iterator.Value()) > cutoff {
			continue
		}
		keysToDelete = append(keysToDelete, append([]byte(nil), iterator.Key()...))
	}
	if err := iterator.Close(); err != nil {
		return 0, err
	}

	seenPrefixLen := len(SeenNoncePrefix) + 1
	floors := make(map[string]*big.Int)
	for _, key := range keysToDelete {
		m.store.Delete(key)
		if len(key) != seenPrefixLen+2*common.AddressLength+nonceLen {
			continue
		}
		pair := string(key[seenPrefixLen : seenPrefixLen+2*common.AddressLength])
		n := decodeNonce(key[seenPrefixLen+2*common.AddressLength:])
		if cur, ok := floors[pair]; !ok || n.Cmp(cur) > 0 {
			floors[pair] = n
		}
	}
	for pair, n := range floors {
		node := common.BytesToAddress([]byte(pair[:common.AddressLength]))
		user := common.BytesToAddress([]byte(pair[common.AddressLength:]))
		if cur := m.floor(node, user); cur != nil && cur.Cmp(n) >= 0 {
			continue
		}
		m.store.Set(m.nonceFloorKey(node, user), encodeNonce(n))
	}
	return len(keysToDelete), nil
}
