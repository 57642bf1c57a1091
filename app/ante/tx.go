package ante

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

var envelopeTuple = signing.MustTuple(
	signing.Field("chainId", "uint256"),
	signing.Field("from", "address"),
	signing.Field("nonce", "uint64"),
	signing.Field("to", "address"),
	signing.Field("value", "uint256"),
	signing.Field("data", "bytes"),
)

// Envelope is an unsigned ledger transaction.
type Envelope struct {
	ChainID *big.Int
	From    common.Address
	Nonce   uint64
	To      common.Address
	Value   *big.Int
	Data    []byte
}

// CanonicalBytes encodes the envelope as
// abi.encode((uint256,address,uint64,address,uint256,bytes)).
func (e Envelope) CanonicalBytes() ([]byte, error) {
	return envelopeTuple.Pack(struct {
		ChainId *big.Int
		From    common.Address
		Nonce   uint64
		To      common.Address
		Value   *big.Int
		Data    []byte
	}{sharedtypes.BigOrZero(e.ChainID), e.From, e.Nonce, e.To, sharedtypes.BigOrZero(e.Value), e.Data})
}

// SignedTx is an envelope with the sender's signature.
type SignedTx struct {
	Envelope  Envelope
	Signature signing.Signature
}

// Sign signs env with signer. The envelope's From is set to the signer.
func Sign(signer *signing.Signer, env Envelope) (SignedTx, error) {
	env.From = signer.Address()
	sig, err := signer.Sign(env)
	if err != nil {
		return SignedTx{}, err
	}
	return SignedTx{Envelope: env, Signature: sig}, nil
}

// Hash identifies the transaction.
func (tx SignedTx) Hash() common.Hash {
	bz, err := tx.Envelope.CanonicalBytes()
	if err != nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(bz, tx.Signature)
}
