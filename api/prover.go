package api

import (
	"context"
	"crypto/rsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/zeebo/blake3"

	"github.com/coolcode/alith/client"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

const (
	// DefaultMaxFileBytes caps the file a prover will read.
	DefaultMaxFileBytes = 256 << 20

	// DefaultIPFSGateway resolves ipfs:// URLs.
	DefaultIPFSGateway = "https://ipfs.io"

	// ProofScheme prefixes proof URLs produced by DigestProver.
	ProofScheme = "blake3:"
)

// proofDomainKey separates proof digests from any other BLAKE3 use. The
// bytes are the ASCII domain name zero-padded to 32 bytes.
var proofDomainKey = [32]byte{
	'a', 'l', 'i', 't', 'h', '.', 'p', 'r', 'o', 'o', 'f', '.',
	'f', 'i', 'l', 'e', '.', 'v', '1',
}

// Prover turns a proof request into a proof URL.
type Prover interface {
	Prove(ctx context.Context, req client.ProofRequest) (string, error)
}

// Fetcher opens the content behind a file URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher fetches http(s) URLs and resolves ipfs:// through a gateway.
type HTTPFetcher struct {
	Client  *http.Client
	Gateway string
}

// NewHTTPFetcher returns a fetcher with the default gateway and a timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: timeout},
		Gateway: DefaultIPFSGateway,
	}
}

// Fetch GETs url. Any status other than 200 is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	if cid, ok := strings.CutPrefix(url, "ipfs://"); ok {
		gateway := f.Gateway
		if gateway == "" {
			gateway = DefaultIPFSGateway
		}
		url = strings.TrimRight(gateway, "/") + "/ipfs/" + cid
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "file url %q: %s", url, err)
	}
	httpClient := f.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, errorsmod.Wrapf(sharedtypes.ErrNotFound, "file %s", url)
		}
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// DigestProver proves possession of a file by hashing its content with a
// domain-separated keyed BLAKE3 bound to the job and file ids.
type DigestProver struct {
	fetcher  Fetcher
	maxBytes int64
	key      *rsa.PrivateKey
}

// NewDigestProver returns a prover reading at most maxBytes per file. When
// key is set, the request's encryption key must decrypt with it and the
// plaintext is folded into the digest.
func NewDigestProver(fetcher Fetcher, maxBytes int64, key *rsa.PrivateKey) *DigestProver {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &DigestProver{fetcher: fetcher, maxBytes: maxBytes, key: key}
}

// Prove returns "blake3:<hex>", anchored at the requested proof URL when
// one was given.
func (p *DigestProver) Prove(ctx context.Context, req client.ProofRequest) (string, error) {
	hasher, err := blake3.NewKeyed(proofDomainKey[:])
	if err != nil {
		panic("api: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var ids [16]byte
	binary.BigEndian.PutUint64(ids[:8], req.JobID)
	binary.BigEndian.PutUint64(ids[8:], req.FileID)
	hasher.Write(ids[:])

	if p.key != nil {
		secret, err := client.DecryptFromClient(p.key, req.EncryptionKey)
		if err != nil {
			return "", err
		}
		hasher.Write(secret)
	}

	body, err := p.fetcher.Fetch(ctx, req.FileURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	n, err := io.Copy(hasher, io.LimitReader(body, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", req.FileURL, err)
	}
	if n > p.maxBytes {
		return "", errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "file %s exceeds %d bytes", req.FileURL, p.maxBytes)
	}

	proof := ProofScheme + hex.EncodeToString(hasher.Sum(nil))
	if req.ProofURL != nil && *req.ProofURL != "" {
		return *req.ProofURL + "#" + proof, nil
	}
	return proof, nil
}
