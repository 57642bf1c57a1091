package nonce_test

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"cosmossdk.io/store/dbadapter"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/coolcode/alith/x/shared/nonce"
)

// MockErrorProvider implements ErrorProvider for testing.
type MockErrorProvider struct{}

func (m *MockErrorProvider) InvalidNonceError(msg string) error {
	return &testError{msg: "invalid nonce: " + msg}
}

func (m *MockErrorProvider) ReplayedNonceError(msg string) error {
	return &testError{msg: "replayed nonce: " + msg}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

var (
	nodeA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	nodeB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	user1 = common.HexToAddress("0x0000000000000000000000000000000000000001")
	user2 = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func setupManager(t *testing.T, policy nonce.Policy) *nonce.Manager {
	t.Helper()
	store := dbadapter.Store{DB: dbm.NewMemDB()}
	return nonce.NewManager(store, &MockErrorProvider{}, policy, time.Hour)
}

func TestConsume_Monotonic(t *testing.T) {
	manager := setupManager(t, nonce.PolicyMonotonic)

	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(1)))
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(5)))

	// Same nonce twice is a replay
	err := manager.Consume(nodeA, user1, big.NewInt(5))
	require.Error(t, err)
	require.Contains(t, err.Error(), "replayed nonce")

	// Lower nonce is a replay
	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(3)))

	// Pairs are independent
	require.NoError(t, manager.Consume(nodeA, user2, big.NewInt(1)))
	require.NoError(t, manager.Consume(nodeB, user1, big.NewInt(1)))

	last, ok := manager.Last(nodeA, user1)
	require.True(t, ok)
	require.Equal(t, int64(5), last.Int64())

	_, ok = manager.Last(nodeB, user2)
	require.False(t, ok)
}

func TestConsume_ZeroNonceAcceptedOnce(t *testing.T) {
	manager := setupManager(t, nonce.PolicyMonotonic)

	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(0)))
	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(0)))
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(1)))
}

func TestConsume_InvalidNonce(t *testing.T) {
	manager := setupManager(t, nonce.PolicyMonotonic)

	err := manager.Consume(nodeA, user1, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid nonce")

	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(-1)))

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.Error(t, manager.Consume(nodeA, user1, tooLarge))

	maxUint256 := new(big.Int).Sub(tooLarge, big.NewInt(1))
	require.NoError(t, manager.Consume(nodeA, user1, maxUint256))
}

func TestConsume_Window(t *testing.T) {
	manager := setupManager(t, nonce.PolicyWindow)

	// Ordering is not enforced
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(10)))
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(3)))
	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(10)))
	require.True(t, manager.Seen(nodeA, user1, big.NewInt(3)))
	require.False(t, manager.Seen(nodeA, user1, big.NewInt(4)))
}

func TestPruneExpiredNonces(t *testing.T) {
	manager := setupManager(t, nonce.PolicyWindow)
	now := time.Unix(1_700_000_000, 0)
	manager.WithClock(func() time.Time { return now })

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(i)))
	}

	// Nothing is older than the window yet
	pruned, err := manager.PruneExpiredNonces(0)
	require.NoError(t, err)
	require.Zero(t, pruned)

	now = now.Add(2 * time.Hour)
	pruned, err = manager.PruneExpiredNonces(2)
	require.NoError(t, err)
	require.Equal(t, 2, pruned)

	pruned, err = manager.PruneExpiredNonces(10)
	require.NoError(t, err)
	require.Equal(t, 3, pruned)

	// Pruned nonces stay rejected
	require.True(t, manager.Seen(nodeA, user1, big.NewInt(1)))
	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(5)))
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(6)))
}

func TestPruneExpiredNonces_RaisesFloorPerPair(t *testing.T) {
	manager := setupManager(t, nonce.PolicyWindow)
	now := time.Unix(1_700_000_000, 0)
	manager.WithClock(func() time.Time { return now })

	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(10)))
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(3)))
	require.NoError(t, manager.Consume(nodeB, user1, big.NewInt(2)))

	now = now.Add(2 * time.Hour)
	require.NoError(t, manager.Consume(nodeA, user2, big.NewInt(50)))
	pruned, err := manager.PruneExpiredNonces(10)
	require.NoError(t, err)
	require.Equal(t, 3, pruned)

	for _, n := range []int64{3, 7, 10} {
		err := manager.Consume(nodeA, user1, big.NewInt(n))
		require.Error(t, err, n)
		require.Contains(t, err.Error(), "replayed nonce")
	}
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(11)))

	// Floors are per pair
	require.Error(t, manager.Consume(nodeB, user1, big.NewInt(2)))
	require.NoError(t, manager.Consume(nodeB, user1, big.NewInt(3)))
	// Unpruned nonces of other pairs keep their own uniqueness check
	require.Error(t, manager.Consume(nodeA, user2, big.NewInt(50)))
	require.NoError(t, manager.Consume(nodeA, user2, big.NewInt(1)))
}

func TestPruneExpiredNonces_MonotonicNeverPrunes(t *testing.T) {
	manager := setupManager(t, nonce.PolicyMonotonic)
	require.NoError(t, manager.Consume(nodeA, user1, big.NewInt(1)))

	pruned, err := manager.PruneExpiredNonces(10)
	require.NoError(t, err)
	require.Zero(t, pruned)
	require.Error(t, manager.Consume(nodeA, user1, big.NewInt(1)))
}

func TestParsePolicy(t *testing.T) {
	p, err := nonce.ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, nonce.PolicyMonotonic, p)

	p, err = nonce.ParsePolicy("window")
	require.NoError(t, err)
	require.Equal(t, nonce.PolicyWindow, p)

	_, err = nonce.ParsePolicy("random")
	require.Error(t, err)
}

// Property: a nonce is accepted at most once per pair, under either policy,
// however pruning interleaves with consumption.
func TestConsume_AtMostOnceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		policy := rapid.SampledFrom([]nonce.Policy{nonce.PolicyMonotonic, nonce.PolicyWindow}).Draw(rt, "policy")
		manager := nonce.NewManager(dbadapter.Store{DB: dbm.NewMemDB()}, &MockErrorProvider{}, policy, time.Hour)
		now := time.Unix(1_700_000_000, 0)
		manager.WithClock(func() time.Time { return now })

		nonces := rapid.SliceOfN(rapid.Uint64Max(64), 1, 50).Draw(rt, "nonces")
		accepted := make(map[uint64]bool)
		for i, n := range nonces {
			if rapid.Bool().Draw(rt, fmt.Sprintf("prune%d", i)) {
				now = now.Add(2 * time.Hour)
				if _, err := manager.PruneExpiredNonces(rapid.IntRange(1, 10).Draw(rt, fmt.Sprintf("max%d", i))); err != nil {
					rt.Fatal(err)
				}
			}
			err := manager.Consume(nodeA, user1, new(big.Int).SetUint64(n))
			if err == nil {
				if accepted[n] {
					rt.Fatalf("nonce %d accepted twice", n)
				}
				accepted[n] = true
			}
		}
	})
}
