package client_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/x/reqauth"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

func TestSendProofRequest(t *testing.T) {
	user, err := signing.GenerateSigner()
	require.NoError(t, err)
	node, err := signing.GenerateSigner()
	require.NoError(t, err)

	var got client.ProofRequest
	var gotHeaders reqauth.Headers
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, client.ProofPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		parsed, perr := reqauth.Parse(r.Header, reqauth.HeaderNames{})
		require.NoError(t, perr)
		gotHeaders = parsed
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"request_id":"r-1","job_id":3,"status":"accepted"}`))
	}))
	defer srv.Close()

	auth, err := reqauth.Build(user, node.Address(), big.NewInt(9))
	require.NoError(t, err)
	seed := "Sign to retrieve your encryption key"

	nc := client.NewNodeClient(srv.Client(), reqauth.HeaderNames{})
	resp, err := nc.SendProofRequest(context.Background(), srv.URL+"/", client.ProofRequest{
		JobID:          3,
		FileID:         7,
		FileURL:        "ipfs://data",
		EncryptionKey:  "abcd",
		EncryptionSeed: &seed,
	}, &auth)
	require.NoError(t, err)
	require.Equal(t, "accepted", resp.Status)
	require.Equal(t, uint64(3), resp.JobID)

	require.Equal(t, uint64(7), got.FileID)
	require.Equal(t, seed, *got.EncryptionSeed)
	require.Nil(t, got.ProofURL)
	require.Equal(t, user.Address(), gotHeaders.User)
	require.NoError(t, signing.Verify(gotHeaders.Payload(node.Address()), gotHeaders.Signature, user.Address()))
}

func TestSendProofRequestSurfacesRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("replayed request"))
	}))
	defer srv.Close()

	nc := client.NewNodeClient(nil, reqauth.HeaderNames{})
	_, err := nc.SendProofRequest(context.Background(), srv.URL, client.ProofRequest{JobID: 1}, nil)

	var nodeErr *client.NodeError
	require.ErrorAs(t, err, &nodeErr)
	require.Equal(t, http.StatusUnauthorized, nodeErr.StatusCode)
	require.Equal(t, "replayed request", nodeErr.Body)
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)
}

func TestSendProofRequestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := client.NewNodeClient(nil, reqauth.HeaderNames{}).
		SendProofRequest(context.Background(), srv.URL, client.ProofRequest{}, nil)
	var nodeErr *client.NodeError
	require.ErrorAs(t, err, &nodeErr)
	require.Contains(t, nodeErr.Body, "boom")
	require.NotErrorIs(t, err, sharedtypes.ErrLedger)
}

func TestEncryptForNode(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	secret := []byte("0xsigned-password")

	pkcs1 := client.MarshalRSAPublicKey(&key.PublicKey)
	ct, err := client.EncryptForNode(pkcs1, secret)
	require.NoError(t, err)
	plain, err := client.DecryptFromClient(key, ct)
	require.NoError(t, err)
	require.Equal(t, secret, plain)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pkix := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	ct, err = client.EncryptForNode(pkix, secret)
	require.NoError(t, err)
	plain, err = client.DecryptFromClient(key, ct)
	require.NoError(t, err)
	require.Equal(t, secret, plain)

	_, err = client.EncryptForNode("not a key", secret)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
	_, err = client.DecryptFromClient(key, "zz")
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
}
