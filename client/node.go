package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/coolcode/alith/x/reqauth"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

const (
	// ProofPath is the node endpoint that accepts proof requests.
	ProofPath = "/proof"

	// DefaultNodeTimeout bounds one request to a node.
	DefaultNodeTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// ProofRequest asks a node to prove a file for a job.
type ProofRequest struct {
	JobID          uint64  `json:"job_id"`
	FileID         uint64  `json:"file_id"`
	FileURL        string  `json:"file_url"`
	EncryptionKey  string  `json:"encryption_key"`
	ProofURL       *string `json:"proof_url,omitempty"`
	EncryptionSeed *string `json:"encryption_seed,omitempty"`
	Nonce          *uint64 `json:"nonce,omitempty"`
}

// ProofResponse is the node's acknowledgement of a proof request.
type ProofResponse struct {
	RequestID string `json:"request_id"`
	JobID     uint64 `json:"job_id"`
	Status    string `json:"status"`
}

// NodeError is a non-200 answer from a node. Body is the raw response.
type NodeError struct {
	StatusCode int
	Body       string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node responded %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps the status code to an error kind so callers can use
// errors.Is. Server errors have no kind.
func (e *NodeError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return sharedtypes.ErrInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return sharedtypes.ErrUnauthorized
	case http.StatusNotFound:
		return sharedtypes.ErrNotFound
	case http.StatusConflict:
		return sharedtypes.ErrInvalidState
	case http.StatusPaymentRequired:
		return sharedtypes.ErrInsufficientBalance
	default:
		return nil
	}
}

// NodeClient sends requests to compute nodes over HTTP.
type NodeClient struct {
	httpClient *http.Client
	headers    reqauth.HeaderNames
}

// NewNodeClient returns a node client. A nil httpClient uses one with
// DefaultNodeTimeout.
func NewNodeClient(httpClient *http.Client, headers reqauth.HeaderNames) *NodeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultNodeTimeout}
	}
	return &NodeClient{httpClient: httpClient, headers: headers.WithDefaults()}
}

// SendProofRequest POSTs req to {nodeURL}/proof, attaching auth when it is
// not nil. Any status other than 200 returns a *NodeError carrying the raw
// response body.
func (c *NodeClient) SendProofRequest(ctx context.Context, nodeURL string, req ProofRequest, auth *reqauth.Headers) (ProofResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ProofResponse{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "encode proof request: %s", err)
	}

	endpoint := strings.TrimRight(nodeURL, "/") + ProofPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ProofResponse{}, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "node url %q: %s", nodeURL, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if auth != nil {
		auth.Apply(httpReq.Header, c.headers)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ProofResponse{}, fmt.Errorf("send proof request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ProofResponse{}, fmt.Errorf("read node response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ProofResponse{}, &NodeError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out ProofResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return ProofResponse{}, fmt.Errorf("decode node response: %w", err)
		}
	}
	return out, nil
}
