package client

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"

	errorsmod "cosmossdk.io/errors"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// ParseRSAPublicKey parses a PEM encoded RSA public key in either PKCS#1
// ("RSA PUBLIC KEY") or PKIX ("PUBLIC KEY") form.
func ParseRSAPublicKey(pemKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "node public key is not PEM")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "parse PKCS#1 key: %s", err)
		}
		return pub, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "parse PKIX key: %s", err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "node public key is %T, not RSA", key)
		}
		return pub, nil
	default:
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "unexpected PEM block %q", block.Type)
	}
}

// EncryptForNode encrypts secret to the node's PEM public key with RSA
// PKCS#1 v1.5 and returns it hex encoded, the form ProofRequest carries.
func EncryptForNode(pemKey string, secret []byte) (string, error) {
	pub, err := ParseRSAPublicKey(pemKey)
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, secret)
	if err != nil {
		return "", errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "encrypt for node: %s", err)
	}
	return hex.EncodeToString(ct), nil
}

// DecryptFromClient reverses EncryptForNode with the node's private key.
func DecryptFromClient(key *rsa.PrivateKey, hexCiphertext string) ([]byte, error) {
	ct, err := hex.DecodeString(hexCiphertext)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "encryption key is not hex: %s", err)
	}
	secret, err := rsa.DecryptPKCS1v15(rand.Reader, key, ct)
	if err != nil {
		return nil, errorsmod.Wrap(sharedtypes.ErrInvalidRequest, "cannot decrypt encryption key")
	}
	return secret, nil
}

// MarshalRSAPublicKey encodes pub as a PKCS#1 PEM block, the form nodes
// register.
func MarshalRSAPublicKey(pub *rsa.PublicKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	}))
}
