// Package reqauth implements signed request authentication between users
// and compute nodes. A user signs (nonce, user, node) and sends the result
// as three HTTP headers; the node recovers the signer, checks it against the
// claimed user and rejects replayed nonces.
package reqauth

import (
	"math/big"
	"net/http"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

const (
	DefaultUserHeader      = "X-LazAI-User"
	DefaultNonceHeader     = "X-LazAI-Nonce"
	DefaultSignatureHeader = "X-LazAI-Signature"
)

// HeaderNames are the HTTP header names carrying the request credentials.
type HeaderNames struct {
	User      string
	Nonce     string
	Signature string
}

// DefaultHeaderNames returns the standard header names.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		User:      DefaultUserHeader,
		Nonce:     DefaultNonceHeader,
		Signature: DefaultSignatureHeader,
	}
}

// WithDefaults fills empty names with the defaults.
func (n HeaderNames) WithDefaults() HeaderNames {
	def := DefaultHeaderNames()
	if n.User == "" {
		n.User = def.User
	}
	if n.Nonce == "" {
		n.Nonce = def.Nonce
	}
	if n.Signature == "" {
		n.Signature = def.Signature
	}
	return n
}

// Headers are the credentials of one request.
type Headers struct {
	User      common.Address
	Nonce     *big.Int
	Signature signing.Signature
}

// Payload returns what the user signed for a request to node.
func (h Headers) Payload(node common.Address) signing.RequestPayload {
	return signing.RequestPayload{Nonce: h.Nonce, User: h.User, Node: node}
}

// Build signs a request from the signer's address to node.
func Build(signer *signing.Signer, node common.Address, nonce *big.Int) (Headers, error) {
	if nonce == nil || nonce.Sign() < 0 {
		return Headers{}, errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "nonce must be a non-negative integer")
	}
	h := Headers{User: signer.Address(), Nonce: new(big.Int).Set(nonce)}
	sig, err := signer.Sign(h.Payload(node))
	if err != nil {
		return Headers{}, err
	}
	h.Signature = sig
	return h, nil
}

// Map returns the headers keyed by name. The nonce is rendered in decimal.
func (h Headers) Map(names HeaderNames) map[string]string {
	names = names.WithDefaults()
	return map[string]string{
		names.User:      h.User.Hex(),
		names.Nonce:     sharedtypes.BigOrZero(h.Nonce).String(),
		names.Signature: h.Signature.Hex(),
	}
}

// Apply sets the headers on an outgoing request.
func (h Headers) Apply(header http.Header, names HeaderNames) {
	for k, v := range h.Map(names) {
		header.Set(k, v)
	}
}

// Parse reads the credentials from request headers. Missing or malformed
// values are rejected; the signature is not checked.
func Parse(header http.Header, names HeaderNames) (Headers, error) {
	names = names.WithDefaults()

	userHex := strings.TrimSpace(header.Get(names.User))
	if userHex == "" {
		return Headers{}, errorsmod.Wrapf(sharedtypes.ErrUnauthorized, "missing %s header", names.User)
	}
	if !common.IsHexAddress(userHex) {
		return Headers{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "invalid %s header %q", names.User, userHex)
	}

	nonceStr := strings.TrimSpace(header.Get(names.Nonce))
	if nonceStr == "" {
		return Headers{}, errorsmod.Wrapf(sharedtypes.ErrUnauthorized, "missing %s header", names.Nonce)
	}
	// Decimal only, matching Apply. Prefixes and underscores would let one
	// signed nonce have several spellings.
	nonce, ok := new(big.Int).SetString(nonceStr, 10)
	if !ok || nonce.Sign() < 0 {
		return Headers{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "invalid %s header %q", names.Nonce, nonceStr)
	}

	sigStr := header.Get(names.Signature)
	if strings.TrimSpace(sigStr) == "" {
		return Headers{}, errorsmod.Wrapf(sharedtypes.ErrUnauthorized, "missing %s header", names.Signature)
	}
	sig, err := signing.ParseSignature(sigStr)
	if err != nil {
		return Headers{}, err
	}

	return Headers{User: common.HexToAddress(userHex), Nonce: nonce, Signature: sig}, nil
}
