package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Task states reported by GET /proof/:job_id.
const (
	TaskQueued     = "queued"
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// TaskStatus is the node-side progress of one proof request.
type TaskStatus struct {
	RequestID string `json:"request_id"`
	JobID     uint64 `json:"job_id"`
	FileID    uint64 `json:"file_id"`
	Status    string `json:"status"`
	ProofURL  string `json:"proof_url,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

var errQueueFull = errors.New("proof queue is full")

// statusFor maps an error to the HTTP status the node answers with.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errQueueFull), errors.Is(err, errPoolStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, sharedtypes.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, sharedtypes.ErrUnauthorized), errors.Is(err, sharedtypes.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, sharedtypes.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedtypes.ErrInvalidState), errors.Is(err, sharedtypes.ErrAlreadyExists),
		errors.Is(err, sharedtypes.ErrNodeAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, sharedtypes.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, sharedtypes.ErrLedger):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as an ErrorResponse and stops the chain.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: sharedtypes.Kind(err)}
	switch {
	case errors.Is(err, errQueueFull):
		resp.Code = "QUEUE_FULL"
	case errors.Is(err, errPoolStopped):
		resp.Code = "UNAVAILABLE"
	}
	if status == http.StatusInternalServerError {
		resp.Error = "Internal server error"
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}
