package signing

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Signable is a payload with a canonical byte encoding.
type Signable interface {
	CanonicalBytes() ([]byte, error)
}

// Tuple returns ABI arguments describing a single tuple parameter with the
// given components, e.g. Tuple(Field("nonce", "uint256"), ...).
func Tuple(components ...abi.ArgumentMarshaling) (abi.Arguments, error) {
	ty, err := abi.NewType("tuple", "", components)
	if err != nil {
		return nil, fmt.Errorf("build tuple type: %w", err)
	}
	return abi.Arguments{{Type: ty}}, nil
}

// MustTuple is Tuple for static component lists.
func MustTuple(components ...abi.ArgumentMarshaling) abi.Arguments {
	args, err := Tuple(components...)
	if err != nil {
		panic(err)
	}
	return args
}

// Field describes one tuple component.
func Field(name, ty string) abi.ArgumentMarshaling {
	return abi.ArgumentMarshaling{Name: name, Type: ty}
}

var (
	requestTuple = MustTuple(
		Field("nonce", "uint256"),
		Field("user", "address"),
		Field("node", "address"),
	)

	proofTuple = MustTuple(
		Field("id", "uint256"),
		Field("fileUrl", "string"),
		Field("proofUrl", "string"),
	)

	settlementTuple = MustTuple(
		Field("id", "uint256"),
		Field("user", "address"),
		Field("cost", "uint256"),
		Field("nonce", "uint256"),
		Field("userSignature", "bytes"),
	)
)

// bigOrZero keeps nil amounts encodable.
func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// RequestPayload binds a nonce to a (user, node) pair. It is what a user
// signs for request authentication and for settlement requests.
type RequestPayload struct {
	Nonce *big.Int
	User  common.Address
	Node  common.Address
}

// CanonicalBytes encodes the payload as abi.encode((uint256,address,address)).
func (p RequestPayload) CanonicalBytes() ([]byte, error) {
	return requestTuple.Pack(struct {
		Nonce *big.Int
		User  common.Address
		Node  common.Address
	}{bigOrZero(p.Nonce), p.User, p.Node})
}

// ProofPayload is what a node signs when attaching a proof to a file.
type ProofPayload struct {
	ID       *big.Int `json:"id"`
	FileURL  string   `json:"file_url"`
	ProofURL string   `json:"proof_url"`
}

// CanonicalBytes encodes the payload as abi.encode((uint256,string,string)).
func (p ProofPayload) CanonicalBytes() ([]byte, error) {
	return proofTuple.Pack(struct {
		Id       *big.Int
		FileUrl  string
		ProofUrl string
	}{bigOrZero(p.ID), p.FileURL, p.ProofURL})
}

// SettlementPayload is what a node signs when claiming inference fees. It
// embeds the user's signature over the matching RequestPayload.
type SettlementPayload struct {
	ID            *big.Int       `json:"id"`
	User          common.Address `json:"user"`
	Cost          *big.Int       `json:"cost"`
	Nonce         *big.Int       `json:"nonce"`
	UserSignature []byte         `json:"user_signature"`
}

// CanonicalBytes encodes the payload as
// abi.encode((uint256,address,uint256,uint256,bytes)).
func (p SettlementPayload) CanonicalBytes() ([]byte, error) {
	return settlementTuple.Pack(struct {
		Id            *big.Int
		User          common.Address
		Cost          *big.Int
		Nonce         *big.Int
		UserSignature []byte
	}{bigOrZero(p.ID), p.User, bigOrZero(p.Cost), bigOrZero(p.Nonce), p.UserSignature})
}
