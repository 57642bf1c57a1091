package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/app"
	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/reqauth"
	"github.com/coolcode/alith/x/shared/nonce"
	"github.com/coolcode/alith/x/signing"
)

const (
	nodeFee  = 10
	fileBody = "contributed data"
)

type party struct {
	signer *signing.Signer
	client *client.Client
}

type fixture struct {
	node, owner, stranger party
	files                 *httptest.Server
	pool                  *Pool
	server                *Server
}

// setupTestServer builds an in-memory ledger with a registered node, a
// file server and the node API in front of them. Workers run only when
// start is set.
func setupTestServer(t *testing.T, poolCfg PoolConfig, start bool) *fixture {
	t.Helper()
	ctx := context.Background()

	signers := make([]*signing.Signer, 3)
	addrs := make([]common.Address, 3)
	for i := range signers {
		s, err := signing.GenerateSigner()
		require.NoError(t, err)
		signers[i] = s
		addrs[i] = s.Address()
	}

	ledger, err := app.NewMemApp(log.NewNopLogger(), app.WithInvariantCheck(true))
	require.NoError(t, err)
	require.NoError(t, ledger.InitChain(app.NewGenesisStateFromConfig(app.GenesisConfig{
		Accounts:       addrs,
		AccountBalance: big.NewInt(1_000_000),
	})))

	parties := make([]party, 3)
	for i, s := range signers {
		c, err := client.New(app.NewSession(ledger, s), ledger.Contracts(), nil)
		require.NoError(t, err)
		parties[i] = party{signer: s, client: c}
	}
	f := &fixture{node: parties[0], owner: parties[1], stranger: parties[2]}

	require.NoError(t, f.node.client.AddNode(ctx, f.node.signer.Address(), "http://node", "pem"))
	require.NoError(t, f.node.client.UpdateNodeFee(ctx, big.NewInt(nodeFee)))

	f.files = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(fileBody))
	}))
	t.Cleanup(f.files.Close)

	store, closeStore, err := reqauth.OpenReplayStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore() })
	verifier := reqauth.NewVerifier(f.node.signer.Address(), store, nonce.PolicyMonotonic, 0, nil)

	prover := NewDigestProver(NewHTTPFetcher(5*time.Second), 0, nil)
	f.pool = NewPool(poolCfg, prover, f.node.client, f.node.signer, nil)

	cfg := DefaultConfig()
	cfg.RateLimitRPS = 1000
	cfg.CORSOrigins = []string{"https://app.example"}
	f.server, err = NewServer(cfg, verifier, f.pool, nil, nil)
	require.NoError(t, err)

	if start {
		runCtx, cancel := context.WithCancel(context.Background())
		f.pool.Start(runCtx)
		t.Cleanup(func() {
			cancel()
			f.pool.Stop()
		})
	}
	return f
}

// openJob registers the file server's file and requests a proof for it.
func (f *fixture) openJob(t *testing.T, requester party) (uint64, uint64) {
	t.Helper()
	ctx := context.Background()
	fileID, err := f.owner.client.AddFile(ctx, f.files.URL+"/data")
	require.NoError(t, err)
	jobID, err := requester.client.RequestProof(ctx, fileID, big.NewInt(nodeFee))
	require.NoError(t, err)
	return fileID, jobID
}

func (f *fixture) postProof(t *testing.T, signer *signing.Signer, n int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, client.ProofPath, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if signer != nil {
		headers, err := reqauth.Build(signer, f.node.signer.Address(), big.NewInt(n))
		require.NoError(t, err)
		headers.Apply(req.Header, reqauth.DefaultHeaderNames())
	}

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (f *fixture) waitFinished(t *testing.T, jobID uint64) TaskStatus {
	t.Helper()
	var status TaskStatus
	require.Eventually(t, func() bool {
		s, ok := f.pool.Status(jobID)
		status = s
		return ok && (s.Status == TaskCompleted || s.Status == TaskFailed)
	}, 10*time.Second, 10*time.Millisecond)
	return status
}

func proofRequest(jobID, fileID uint64, url string) client.ProofRequest {
	return client.ProofRequest{JobID: jobID, FileID: fileID, FileURL: url, EncryptionKey: "key"}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// TestHealthCheck tests the health check endpoints
func TestHealthCheck(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), false)

	w := f.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotNil(t, response["timestamp"])

	w = f.get("/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proof_queue")

	w = f.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alith_node_proof_queue_depth")
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), false)

	w := f.get("/health")
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), false)

	req := httptest.NewRequest(http.MethodOptions, client.ProofPath, nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-lazai-signature")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, w.Code, http.StatusBadRequest)
}

func TestProofAuthentication(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), false)
	body := proofRequest(1, 1, "https://files.example/data")

	t.Run("missing headers", func(t *testing.T) {
		w := f.postProof(t, nil, 0, body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeError(t, w).Code)
	})

	t.Run("signed for another node", func(t *testing.T) {
		headers, err := reqauth.Build(f.owner.signer, f.stranger.signer.Address(), big.NewInt(1))
		require.NoError(t, err)
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, client.ProofPath, bytes.NewReader(raw))
		headers.Apply(req.Header, reqauth.DefaultHeaderNames())
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed nonce", func(t *testing.T) {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, client.ProofPath, bytes.NewReader(raw))
		req.Header.Set(reqauth.DefaultUserHeader, f.owner.signer.Address().Hex())
		req.Header.Set(reqauth.DefaultNonceHeader, "not-a-number")
		req.Header.Set(reqauth.DefaultSignatureHeader, "0x00")
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decodeError(t, w).Code)
	})

	t.Run("replayed nonce", func(t *testing.T) {
		w := f.postProof(t, f.owner.signer, 7, body)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.postProof(t, f.owner.signer, 7, proofRequest(2, 1, "https://files.example/data"))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, decodeError(t, w).Error, "replayed")
	})
}

func TestProofValidation(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), false)
	bodyNonce := uint64(99)

	tests := []struct {
		name  string
		body  client.ProofRequest
		field string
	}{
		{"zero job", proofRequest(0, 1, "https://files.example/data"), "job_id"},
		{"zero file", proofRequest(1, 0, "https://files.example/data"), "file_id"},
		{"bad scheme", proofRequest(1, 1, "ftp://files.example/data"), "file_url"},
		{"missing key", client.ProofRequest{JobID: 1, FileID: 1, FileURL: "https://files.example/data"}, "encryption_key"},
		{"nonce mismatch", client.ProofRequest{JobID: 1, FileID: 1, FileURL: "https://files.example/data", EncryptionKey: "k", Nonce: &bodyNonce}, "nonce"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.postProof(t, f.owner.signer, int64(i+1), tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "invalid_request", resp.Code)
			assert.Contains(t, resp.Error, tt.field)
		})
	}

	w := f.postProof(t, f.owner.signer, 100, json.RawMessage(`{"job_id": "one"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProofQueueLimits(t *testing.T) {
	f := setupTestServer(t, PoolConfig{Workers: 1, QueueSize: 1}, false)

	w := f.postProof(t, f.owner.signer, 1, proofRequest(1, 1, "https://files.example/data"))
	require.Equal(t, http.StatusOK, w.Code)
	var accepted client.ProofResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, uint64(1), accepted.JobID)
	assert.Equal(t, TaskQueued, accepted.Status)
	assert.Equal(t, w.Header().Get("X-Request-ID"), accepted.RequestID)

	w = f.postProof(t, f.owner.signer, 2, proofRequest(1, 1, "https://files.example/data"))
	require.Equal(t, http.StatusConflict, w.Code)

	w = f.postProof(t, f.owner.signer, 3, proofRequest(2, 1, "https://files.example/data"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "QUEUE_FULL", decodeError(t, w).Code)

	w = f.get("/proof/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), TaskQueued)

	assert.Equal(t, http.StatusNotFound, f.get("/proof/2").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/proof/zero").Code)
}

func TestProofEndToEnd(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), true)
	ctx := context.Background()
	fileID, jobID := f.openJob(t, f.owner)

	w := f.postProof(t, f.owner.signer, 1, proofRequest(jobID, fileID, f.files.URL+"/data"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	status := f.waitFinished(t, jobID)
	require.Equal(t, TaskCompleted, status.Status, status.Error)
	require.True(t, strings.HasPrefix(status.ProofURL, ProofScheme))

	job, err := f.owner.client.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, contracts.JobStatusCompleted, job.Status)

	proof, err := f.owner.client.GetProof(ctx, fileID, 1)
	require.NoError(t, err)
	require.Equal(t, status.ProofURL, proof.Data.ProofURL)
	require.Equal(t, f.files.URL+"/data", proof.Data.FileURL)

	w = f.get("/proof/" + new(big.Int).SetUint64(jobID).String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), TaskCompleted)
}

func TestProofForForeignJobFails(t *testing.T) {
	f := setupTestServer(t, DefaultPoolConfig(), true)
	ctx := context.Background()
	fileID, jobID := f.openJob(t, f.stranger)

	// accepted at the edge; the worker sees the job belongs to someone else
	w := f.postProof(t, f.owner.signer, 1, proofRequest(jobID, fileID, f.files.URL+"/data"))
	require.Equal(t, http.StatusOK, w.Code)

	status := f.waitFinished(t, jobID)
	require.Equal(t, TaskFailed, status.Status)
	require.Equal(t, "unauthorized", status.ErrorKind)

	job, err := f.owner.client.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, contracts.JobStatusRequested, job.Status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{errQueueFull, http.StatusServiceUnavailable},
		{errPoolStopped, http.StatusServiceUnavailable},
		{&ValidationErrors{Errors: []ValidationError{{Field: "x", Message: "y"}}}, http.StatusBadRequest},
		{missingHeadersErr(), http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), "%v", tt.err)
	}
}

func missingHeadersErr() error {
	_, err := reqauth.Parse(http.Header{}, reqauth.HeaderNames{})
	return err
}
