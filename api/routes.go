package api

import (
	"net/http"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coolcode/alith/client"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.health.RegisterRoutes(s.router)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	proof := s.router.Group(client.ProofPath)
	{
		proof.GET("/:job_id", s.handleProofStatus)

		authenticated := proof.Group("")
		authenticated.Use(RequestAuthMiddleware(s.verifier, s.config.Headers))
		{
			authenticated.POST("", s.handleProof)
		}
	}
}

// handleProof accepts a signed proof request and queues it.
func (s *Server) handleProof(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req client.ProofRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	nonce, hasNonce := authenticatedNonce(c)
	if err := ValidateProofRequest(&req, nonce, hasNonce); err != nil {
		abortWithError(c, err)
		return
	}

	requestID := c.GetString(contextRequestIDKey)
	status, err := s.pool.Submit(ProofTask{
		RequestID: requestID,
		User:      user,
		Request:   req,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	s.logger.Info("proof request accepted",
		"request_id", requestID, "job_id", req.JobID, "file_id", req.FileID, "user", user.Hex())
	c.JSON(http.StatusOK, client.ProofResponse{
		RequestID: requestID,
		JobID:     req.JobID,
		Status:    status.Status,
	})
}

// handleProofStatus reports the node-side progress of a job.
func (s *Server) handleProofStatus(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("job_id"), 10, 64)
	if err != nil || jobID == 0 {
		abortWithError(c, errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "invalid job id %q", c.Param("job_id")))
		return
	}
	status, ok := s.pool.Status(jobID)
	if !ok {
		abortWithError(c, errorsmod.Wrapf(sharedtypes.ErrNotFound, "no proof task for job %d", jobID))
		return
	}
	c.JSON(http.StatusOK, status)
}
