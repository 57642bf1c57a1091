package signing

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// SignatureLength is the length of a recoverable signature [R || S || V].
const SignatureLength = crypto.SignatureLength

// messagePrefix is the personal-message envelope for a 32-byte digest.
var messagePrefix = []byte("\x19Ethereum Signed Message:\n32")

// Digest returns keccak256 of the payload's canonical encoding.
func Digest(p Signable) (common.Hash, error) {
	bz, err := p.CanonicalBytes()
	if err != nil {
		return common.Hash{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "encode payload: %s", err)
	}
	return crypto.Keccak256Hash(bz), nil
}

// PrefixHash wraps a digest in the personal-message envelope.
func PrefixHash(digest common.Hash) common.Hash {
	return crypto.Keccak256Hash(messagePrefix, digest.Bytes())
}

// PrefixedDigest returns the hash that is actually signed for p.
func PrefixedDigest(p Signable) (common.Hash, error) {
	digest, err := Digest(p)
	if err != nil {
		return common.Hash{}, err
	}
	return PrefixHash(digest), nil
}

// Signature is a 65-byte recoverable secp256k1 signature.
type Signature []byte

// Hex returns the 0x-prefixed hex encoding.
func (s Signature) Hex() string {
	return hexutil.Encode(s)
}

func (s Signature) String() string {
	return s.Hex()
}

// ParseSignature decodes a hex signature with or without the 0x prefix.
func ParseSignature(s string) (Signature, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	bz, err := hexutil.Decode(s)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "decode hex: %s", err)
	}
	if len(bz) != SignatureLength {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "length %d, want %d", len(bz), SignatureLength)
	}
	return Signature(bz), nil
}

// Signer signs payloads with a secp256k1 private key. It is safe for
// concurrent use.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}

// SignerFromHex loads a hex private key, with or without the 0x prefix.
func SignerFromHex(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(key), nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// PrivateKeyHex returns the hex private key without the 0x prefix.
func (s *Signer) PrivateKeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSA(s.key))
}

// Sign signs the prefixed digest of p. V is 27 or 28.
func (s *Signer) Sign(p Signable) (Signature, error) {
	hash, err := PrefixedDigest(p)
	if err != nil {
		return nil, err
	}
	return s.SignHash(hash)
}

// SignHash signs an already prefixed 32-byte hash. V is 27 or 28.
func (s *Signer) SignHash(hash common.Hash) (Signature, error) {
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return Signature(sig), nil
}

// Recover returns the address that signed p.
func Recover(p Signable, sig []byte) (common.Address, error) {
	hash, err := PrefixedDigest(p)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverHash(hash, sig)
}

// RecoverHash returns the address that signed an already prefixed hash.
func RecoverHash(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "length %d, want %d", len(sig), SignatureLength)
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	switch v := normalized[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		normalized[crypto.RecoveryIDOffset] = v - 27
	default:
		return common.Address{}, errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "recovery id %d", v)
	}

	pub, err := crypto.SigToPub(hash.Bytes(), normalized)
	if err != nil {
		return common.Address{}, errorsmod.Wrapf(sharedtypes.ErrInvalidSignature, "recover: %s", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks that p was signed by expected. A recoverable signature from
// anyone else fails with an IdentityMismatchError (ErrUnauthorized); a
// malformed one fails with ErrInvalidSignature.
func Verify(p Signable, sig []byte, expected common.Address) error {
	actual, err := Recover(p, sig)
	if err != nil {
		return err
	}
	if actual != expected {
		return sharedtypes.NewIdentityMismatch("signature signer", expected, actual)
	}
	return nil
}
