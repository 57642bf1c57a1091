package reqauth_test

import (
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/x/reqauth"
	"github.com/coolcode/alith/x/shared/nonce"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

var node = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newVerifier(t *testing.T, policy nonce.Policy) *reqauth.Verifier {
	t.Helper()
	store, closer, err := reqauth.OpenReplayStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })
	return reqauth.NewVerifier(node, store, policy, time.Hour, nil)
}

func mustSigner(t *testing.T) *signing.Signer {
	t.Helper()
	s, err := signing.GenerateSigner()
	require.NoError(t, err)
	return s
}

func TestHeadersRoundTrip(t *testing.T) {
	user := mustSigner(t)
	h, err := reqauth.Build(user, node, big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, user.Address(), h.User)

	header := http.Header{}
	h.Apply(header, reqauth.HeaderNames{})
	require.Equal(t, "42", header.Get(reqauth.DefaultNonceHeader))
	require.Equal(t, user.Address().Hex(), header.Get(reqauth.DefaultUserHeader))

	parsed, err := reqauth.Parse(header, reqauth.DefaultHeaderNames())
	require.NoError(t, err)
	require.Equal(t, h.User, parsed.User)
	require.Equal(t, 0, h.Nonce.Cmp(parsed.Nonce))
	require.Equal(t, h.Signature, parsed.Signature)
}

func TestHeadersCustomNames(t *testing.T) {
	names := reqauth.HeaderNames{User: "X-User", Nonce: "X-Nonce"}
	h, err := reqauth.Build(mustSigner(t), node, big.NewInt(1))
	require.NoError(t, err)

	header := http.Header{}
	h.Apply(header, names)
	require.NotEmpty(t, header.Get("X-User"))
	require.NotEmpty(t, header.Get("X-Nonce"))
	require.NotEmpty(t, header.Get(reqauth.DefaultSignatureHeader))
	require.Empty(t, header.Get(reqauth.DefaultUserHeader))

	_, err = reqauth.Parse(header, names)
	require.NoError(t, err)
}

func TestBuildRejectsNegativeNonce(t *testing.T) {
	_, err := reqauth.Build(mustSigner(t), node, big.NewInt(-1))
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)

	_, err = reqauth.Build(mustSigner(t), node, nil)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
}

func TestParseErrors(t *testing.T) {
	h, err := reqauth.Build(mustSigner(t), node, big.NewInt(3))
	require.NoError(t, err)
	valid := http.Header{}
	h.Apply(valid, reqauth.HeaderNames{})

	cases := []struct {
		name   string
		mutate func(http.Header)
		want   error
	}{
		{"missing user", func(h http.Header) { h.Del(reqauth.DefaultUserHeader) }, sharedtypes.ErrUnauthorized},
		{"missing nonce", func(h http.Header) { h.Del(reqauth.DefaultNonceHeader) }, sharedtypes.ErrUnauthorized},
		{"missing signature", func(h http.Header) { h.Del(reqauth.DefaultSignatureHeader) }, sharedtypes.ErrUnauthorized},
		{"bad user", func(h http.Header) { h.Set(reqauth.DefaultUserHeader, "alice") }, sharedtypes.ErrInvalidRequest},
		{"bad nonce", func(h http.Header) { h.Set(reqauth.DefaultNonceHeader, "abc") }, sharedtypes.ErrInvalidRequest},
		{"negative nonce", func(h http.Header) { h.Set(reqauth.DefaultNonceHeader, "-5") }, sharedtypes.ErrInvalidRequest},
		{"hex nonce", func(h http.Header) { h.Set(reqauth.DefaultNonceHeader, "0x10") }, sharedtypes.ErrInvalidRequest},
		{"binary nonce", func(h http.Header) { h.Set(reqauth.DefaultNonceHeader, "0b11") }, sharedtypes.ErrInvalidRequest},
		{"underscored nonce", func(h http.Header) { h.Set(reqauth.DefaultNonceHeader, "1_0") }, sharedtypes.ErrInvalidRequest},
		{"short signature", func(h http.Header) { h.Set(reqauth.DefaultSignatureHeader, "0x1234") }, sharedtypes.ErrInvalidSignature},
		{"non hex signature", func(h http.Header) { h.Set(reqauth.DefaultSignatureHeader, "zz") }, sharedtypes.ErrInvalidSignature},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			header := valid.Clone()
			tc.mutate(header)
			_, err := reqauth.Parse(header, reqauth.HeaderNames{})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseDecimalNonce(t *testing.T) {
	h, err := reqauth.Build(mustSigner(t), node, big.NewInt(10))
	require.NoError(t, err)
	header := http.Header{}
	h.Apply(header, reqauth.HeaderNames{})

	header.Set(reqauth.DefaultNonceHeader, "010")
	parsed, err := reqauth.Parse(header, reqauth.HeaderNames{})
	require.NoError(t, err)
	require.Equal(t, int64(10), parsed.Nonce.Int64())
}

func TestVerify(t *testing.T) {
	v := newVerifier(t, nonce.PolicyMonotonic)
	user := mustSigner(t)

	h, err := reqauth.Build(user, node, big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, v.Verify(h))

	// the identical headers are a replay
	err = v.Verify(h)
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)
	require.True(t, reqauth.IsReplay(err))

	h2, err := reqauth.Build(user, node, big.NewInt(2))
	require.NoError(t, err)
	require.NoError(t, v.Verify(h2))
}

func TestVerifyWrongUser(t *testing.T) {
	v := newVerifier(t, nonce.PolicyMonotonic)
	alice, mallory := mustSigner(t), mustSigner(t)

	// mallory signs a request claiming to be alice
	h := reqauth.Headers{User: alice.Address(), Nonce: big.NewInt(1)}
	sig, err := mallory.Sign(h.Payload(node))
	require.NoError(t, err)
	h.Signature = sig

	err = v.Verify(h)
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)
	require.False(t, reqauth.IsReplay(err))

	var mismatch *sharedtypes.IdentityMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, alice.Address(), mismatch.Expected)
	require.Equal(t, mallory.Address(), mismatch.Actual)

	// the rejected request did not burn alice's nonce
	good, err := reqauth.Build(alice, node, big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, v.Verify(good))
}

func TestVerifyOtherNode(t *testing.T) {
	v := newVerifier(t, nonce.PolicyMonotonic)
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	h, err := reqauth.Build(mustSigner(t), other, big.NewInt(1))
	require.NoError(t, err)
	require.ErrorIs(t, v.Verify(h), sharedtypes.ErrUnauthorized)
}

func TestVerifyMalformedSignature(t *testing.T) {
	v := newVerifier(t, nonce.PolicyMonotonic)
	h, err := reqauth.Build(mustSigner(t), node, big.NewInt(1))
	require.NoError(t, err)

	h.Signature = append(signing.Signature{}, h.Signature...)
	h.Signature[64] = 5
	require.ErrorIs(t, v.Verify(h), sharedtypes.ErrInvalidSignature)
}

func TestVerifyWindowPolicy(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, nonce.PolicyWindow).WithClock(func() time.Time { return now })
	user := mustSigner(t)

	h5, err := reqauth.Build(user, node, big.NewInt(5))
	require.NoError(t, err)
	h3, err := reqauth.Build(user, node, big.NewInt(3))
	require.NoError(t, err)

	// ordering is not enforced, uniqueness is
	require.NoError(t, v.Verify(h5))
	require.NoError(t, v.Verify(h3))
	require.True(t, reqauth.IsReplay(v.Verify(h5)))

	now = now.Add(2 * time.Hour)
	pruned, err := v.Prune(0)
	require.NoError(t, err)
	require.Equal(t, 2, pruned)
	// expired nonces are not forgotten
	require.True(t, reqauth.IsReplay(v.Verify(h5)))
	require.True(t, reqauth.IsReplay(v.Verify(h3)))

	h6, err := reqauth.Build(user, node, big.NewInt(6))
	require.NoError(t, err)
	require.NoError(t, v.Verify(h6))
}

func TestReplayStorePersists(t *testing.T) {
	dir := t.TempDir()
	user := mustSigner(t)
	h, err := reqauth.Build(user, node, big.NewInt(9))
	require.NoError(t, err)

	store, closer, err := reqauth.OpenReplayStore(dir)
	require.NoError(t, err)
	v := reqauth.NewVerifier(node, store, nonce.PolicyMonotonic, 0, nil)
	require.NoError(t, v.Verify(h))
	require.NoError(t, closer())

	store, closer, err = reqauth.OpenReplayStore(dir)
	require.NoError(t, err)
	defer closer()
	v = reqauth.NewVerifier(node, store, nonce.PolicyMonotonic, 0, nil)
	require.True(t, reqauth.IsReplay(v.Verify(h)))
}
