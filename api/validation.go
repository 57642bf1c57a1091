package api

import (
	"fmt"
	"net/url"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/coolcode/alith/client"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// Validation constants
const (
	MaxRequestSize      = 1 << 20 // 1 MB
	MaxURLLength        = 2048
	MaxEncryptionKeyLen = 8192
)

// allowedSchemes are the file and proof URL schemes a node accepts.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ipfs":  true,
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ""
	}
	var sb strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return sb.String()
}

// Unwrap classifies validation failures as invalid requests.
func (v *ValidationErrors) Unwrap() error {
	return sharedtypes.ErrInvalidRequest
}

// SanitizeURL validates a file or proof URL and returns it trimmed.
func SanitizeURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("URL is required")
	}
	if len(input) > MaxURLLength {
		return "", fmt.Errorf("URL exceeds %d characters", MaxURLLength)
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format")
	}
	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return "", fmt.Errorf("scheme %q is not allowed", parsed.Scheme)
	}
	return input, nil
}

// ValidateProofRequest checks a proof request and normalizes its URLs.
// headerNonce is the authenticated nonce; a body nonce must match it.
func ValidateProofRequest(req *client.ProofRequest, headerNonce uint64, hasHeaderNonce bool) error {
	errs := &ValidationErrors{}

	if req.JobID == 0 {
		errs.Add("job_id", "must be positive")
	}
	if req.FileID == 0 {
		errs.Add("file_id", "must be positive")
	}
	if fileURL, err := SanitizeURL(req.FileURL); err != nil {
		errs.Add("file_url", err.Error())
	} else {
		req.FileURL = fileURL
	}
	if strings.TrimSpace(req.EncryptionKey) == "" {
		errs.Add("encryption_key", "is required")
	} else if len(req.EncryptionKey) > MaxEncryptionKeyLen {
		errs.Add("encryption_key", fmt.Sprintf("exceeds %d characters", MaxEncryptionKeyLen))
	}
	if req.ProofURL != nil {
		if proofURL, err := SanitizeURL(*req.ProofURL); err != nil {
			errs.Add("proof_url", err.Error())
		} else {
			req.ProofURL = &proofURL
		}
	}
	if req.Nonce != nil && hasHeaderNonce && *req.Nonce != headerNonce {
		errs.Add("nonce", "does not match the signed request nonce")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateAndBindJSON validates and binds JSON with size limit
func ValidateAndBindJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength > MaxRequestSize {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "request body too large (max %d bytes)", MaxRequestSize)
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		return errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "invalid JSON: %s", err)
	}
	return nil
}

// GetUserFromContext returns the authenticated caller set by
// RequestAuthMiddleware.
func GetUserFromContext(c *gin.Context) (common.Address, error) {
	v, exists := c.Get(contextUserKey)
	if !exists {
		return common.Address{}, errorsmod.Wrap(sharedtypes.ErrUnauthorized, "user not authenticated")
	}
	user, ok := v.(common.Address)
	if !ok {
		return common.Address{}, errorsmod.Wrap(sharedtypes.ErrUnauthorized, "invalid user context")
	}
	return user, nil
}
