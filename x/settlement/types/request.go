package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/reqauth"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

// SettlementRequest is a user's authorisation for a node to charge one
// request against their inference account.
type SettlementRequest struct {
	Nonce *big.Int
	User  common.Address
	Node  common.Address
}

// Payload returns the signed form of the request.
func (r SettlementRequest) Payload() signing.RequestPayload {
	return signing.RequestPayload{Nonce: r.Nonce, User: r.User, Node: r.Node}
}

// Sign signs the request. The signer must be the request's user.
func (r SettlementRequest) Sign(signer *signing.Signer) (SettlementSignature, error) {
	if signer.Address() != r.User {
		return SettlementSignature{}, sharedtypes.NewIdentityMismatch("settlement request signer", r.User, signer.Address())
	}
	sig, err := signer.Sign(r.Payload())
	if err != nil {
		return SettlementSignature{}, err
	}
	return SettlementSignature{User: r.User, Nonce: sharedtypes.CloneBig(r.Nonce), Signature: sig}, nil
}

// SettlementSignature is a signed SettlementRequest.
type SettlementSignature struct {
	User      common.Address
	Nonce     *big.Int
	Signature signing.Signature
}

// ToRequestHeaders returns the request headers carrying the signature.
func (s SettlementSignature) ToRequestHeaders() reqauth.Headers {
	return reqauth.Headers{User: s.User, Nonce: sharedtypes.CloneBig(s.Nonce), Signature: s.Signature}
}

// SettlementProof is a node's claim for the cost of one request, signed by
// the node over Data.
type SettlementProof struct {
	Signature signing.Signature
	Data      signing.SettlementPayload
}

// NewSettlementProof builds and signs a fee claim for a request the user
// authorised with sig.
func NewSettlementProof(node *signing.Signer, id, cost *big.Int, sig SettlementSignature) (SettlementProof, error) {
	data := signing.SettlementPayload{
		ID:            sharedtypes.CloneBig(id),
		User:          sig.User,
		Cost:          sharedtypes.CloneBig(cost),
		Nonce:         sharedtypes.CloneBig(sig.Nonce),
		UserSignature: sig.Signature,
	}
	nodeSig, err := node.Sign(data)
	if err != nil {
		return SettlementProof{}, err
	}
	return SettlementProof{Signature: nodeSig, Data: data}, nil
}

// ToContract converts the proof to its contract tuple.
func (p SettlementProof) ToContract() contracts.SettlementProof {
	return contracts.SettlementProof{
		Signature: p.Signature,
		Data: contracts.SettlementData{
			ID:            sharedtypes.BigOrZero(p.Data.ID),
			User:          p.Data.User,
			Cost:          sharedtypes.BigOrZero(p.Data.Cost),
			Nonce:         sharedtypes.BigOrZero(p.Data.Nonce),
			UserSignature: p.Data.UserSignature,
		},
	}
}

// SettlementProofFromContract converts a contract tuple to a proof.
func SettlementProofFromContract(p contracts.SettlementProof) SettlementProof {
	return SettlementProof{
		Signature: p.Signature,
		Data: signing.SettlementPayload{
			ID:            p.Data.ID,
			User:          p.Data.User,
			Cost:          p.Data.Cost,
			Nonce:         p.Data.Nonce,
			UserSignature: p.Data.UserSignature,
		},
	}
}
