package signing_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

func mustSigner(t require.TestingT) *signing.Signer {
	s, err := signing.GenerateSigner()
	require.NoError(t, err)
	return s
}

func TestRequestPayloadLayout(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	node := common.HexToAddress("0x2222222222222222222222222222222222222222")

	bz, err := signing.RequestPayload{Nonce: big.NewInt(1), User: user, Node: node}.CanonicalBytes()
	require.NoError(t, err)
	require.Len(t, bz, 96)

	require.Equal(t, math.U256Bytes(big.NewInt(1)), bz[0:32])
	require.Equal(t, common.LeftPadBytes(user.Bytes(), 32), bz[32:64])
	require.Equal(t, common.LeftPadBytes(node.Bytes(), 32), bz[64:96])
}

func TestProofPayloadLayout(t *testing.T) {
	bz, err := signing.ProofPayload{ID: big.NewInt(7), FileURL: "ipfs://file", ProofURL: ""}.CanonicalBytes()
	require.NoError(t, err)

	// Tuples with dynamic members are encoded behind a head offset.
	require.Equal(t, math.U256Bytes(big.NewInt(32)), bz[0:32])
	require.Equal(t, math.U256Bytes(big.NewInt(7)), bz[32:64])
	require.True(t, bytes.Contains(bz, []byte("ipfs://file")))
	require.Zero(t, len(bz)%32)
}

func TestSignRecoverRoundTrip(t *testing.T) {
	signer := mustSigner(t)
	payload := signing.RequestPayload{Nonce: big.NewInt(42), User: signer.Address(), Node: common.HexToAddress("0x03")}

	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	require.Len(t, sig, signing.SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := signing.Recover(payload, sig)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)
	require.NoError(t, signing.Verify(payload, sig, signer.Address()))
}

func TestRecoverAcceptsZeroBasedRecoveryID(t *testing.T) {
	signer := mustSigner(t)
	payload := signing.ProofPayload{ID: big.NewInt(1), FileURL: "a", ProofURL: "b"}

	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	raw := append([]byte(nil), sig...)
	raw[64] -= 27
	recovered, err := signing.Recover(payload, raw)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)
}

func TestRecoverMalformed(t *testing.T) {
	payload := signing.RequestPayload{Nonce: big.NewInt(1)}

	_, err := signing.Recover(payload, []byte{1, 2, 3})
	require.ErrorIs(t, err, sharedtypes.ErrInvalidSignature)

	bad := make([]byte, signing.SignatureLength)
	bad[64] = 5
	_, err = signing.Recover(payload, bad)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidSignature)

	// r = s = 0 is not a valid signature
	zero := make([]byte, signing.SignatureLength)
	_, err = signing.Recover(payload, zero)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidSignature)
}

func TestVerifyWrongSigner(t *testing.T) {
	signer := mustSigner(t)
	other := mustSigner(t)
	payload := signing.RequestPayload{Nonce: big.NewInt(9), User: other.Address(), Node: signer.Address()}

	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	err = signing.Verify(payload, sig, other.Address())
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)

	var mismatch *sharedtypes.IdentityMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, other.Address(), mismatch.Expected)
	require.Equal(t, signer.Address(), mismatch.Actual)
}

func TestPrefixedDigestMatchesPersonalMessage(t *testing.T) {
	payload := signing.RequestPayload{Nonce: big.NewInt(5), User: common.HexToAddress("0x05"), Node: common.HexToAddress("0x06")}

	digest, err := signing.Digest(payload)
	require.NoError(t, err)
	prefixed, err := signing.PrefixedDigest(payload)
	require.NoError(t, err)

	want := crypto.Keccak256Hash([]byte("\x19Ethereum Signed Message:\n32"), digest.Bytes())
	require.Equal(t, want, prefixed)
}

func TestParseSignature(t *testing.T) {
	signer := mustSigner(t)
	sig, err := signer.Sign(signing.RequestPayload{Nonce: big.NewInt(1)})
	require.NoError(t, err)

	parsed, err := signing.ParseSignature(sig.Hex())
	require.NoError(t, err)
	require.Equal(t, sig, parsed)

	parsed, err = signing.ParseSignature(sig.Hex()[2:])
	require.NoError(t, err)
	require.Equal(t, sig, parsed)

	_, err = signing.ParseSignature("0x1234")
	require.ErrorIs(t, err, sharedtypes.ErrInvalidSignature)
	_, err = signing.ParseSignature("zz")
	require.ErrorIs(t, err, sharedtypes.ErrInvalidSignature)
}

func TestSignerFromHex(t *testing.T) {
	signer := mustSigner(t)

	loaded, err := signing.SignerFromHex("0x" + signer.PrivateKeyHex())
	require.NoError(t, err)
	require.Equal(t, signer.Address(), loaded.Address())

	_, err = signing.SignerFromHex("")
	require.Error(t, err)
	_, err = signing.SignerFromHex("not-hex")
	require.Error(t, err)
}

func genRequestPayload() *rapid.Generator[signing.RequestPayload] {
	return rapid.Custom(func(t *rapid.T) signing.RequestPayload {
		nonce := new(big.Int).SetBytes(rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "nonce"))
		var user, node common.Address
		copy(user[:], rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "user"))
		copy(node[:], rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "node"))
		return signing.RequestPayload{Nonce: nonce, User: user, Node: node}
	})
}

// Property: distinct (nonce, user, node) triples have distinct encodings.
func TestCanonicalEncodingInjective(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := genRequestPayload().Draw(rt, "a")
		b := genRequestPayload().Draw(rt, "b")

		ea, err := a.CanonicalBytes()
		require.NoError(rt, err)
		eb, err := b.CanonicalBytes()
		require.NoError(rt, err)

		same := a.Nonce.Cmp(b.Nonce) == 0 && a.User == b.User && a.Node == b.Node
		require.Equal(rt, same, bytes.Equal(ea, eb))
	})
}

// Property: recover(sign(k, p), p) == address(k).
func TestSignRecoverProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		signer := mustSigner(rt)
		payload := genRequestPayload().Draw(rt, "payload")

		sig, err := signer.Sign(payload)
		require.NoError(rt, err)
		recovered, err := signing.Recover(payload, sig)
		require.NoError(rt, err)
		require.Equal(rt, signer.Address(), recovered)
	})
}

// Property: a signature over nonce n does not recover to the signer for n' != n.
func TestNonceBindingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		signer := mustSigner(rt)
		payload := genRequestPayload().Draw(rt, "payload")
		delta := rapid.Int64Range(1, 1<<40).Draw(rt, "delta")

		sig, err := signer.Sign(payload)
		require.NoError(rt, err)

		shifted := payload
		shifted.Nonce = new(big.Int).Add(payload.Nonce, big.NewInt(delta))
		recovered, err := signing.Recover(shifted, sig)
		if err == nil {
			require.NotEqual(rt, signer.Address(), recovered)
		}
	})
}
