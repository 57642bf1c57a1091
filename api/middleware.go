package api

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/coolcode/alith/x/reqauth"
)

const (
	contextRequestIDKey = "request_id"
	contextUserKey      = "auth_user"
	contextNonceKey     = "auth_nonce"

	requestIDHeader = "X-Request-ID"
)

// RequestAuthMiddleware authenticates signed requests addressed to the
// verifier's node. Rejected requests never reach the handler and consume no
// nonce.
func RequestAuthMiddleware(verifier *reqauth.Verifier, names reqauth.HeaderNames) gin.HandlerFunc {
	names = names.WithDefaults()
	return func(c *gin.Context) {
		headers, err := reqauth.Parse(c.Request.Header, names)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := verifier.Verify(headers); err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(contextUserKey, headers.User)
		c.Set(contextNonceKey, headers.Nonce)
		c.Next()
	}
}

// authenticatedNonce returns the verified header nonce when it fits in a
// uint64.
func authenticatedNonce(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(contextNonceKey)
	if !ok {
		return 0, false
	}
	n, ok := v.(*big.Int)
	if !ok || n == nil || !n.IsUint64() {
		return 0, false
	}
	return n.Uint64(), true
}

const (
	rateLimitMaxClients = 10000
	rateLimitIdleTTL    = 10 * time.Minute
)

// RateLimitMiddleware implements per-IP rate limiting. A non-positive rps
// disables it.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return newIPRateLimiter(rps, rateLimitMaxClients, rateLimitIdleTTL).handle
}

// ipRateLimiter keeps one token bucket per client IP. At most maxClients
// buckets are kept and a bucket idle for ttl is dropped.
type ipRateLimiter struct {
	rps     int
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
}

func newIPRateLimiter(rps, maxClients int, ttl time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		rps:     rps,
		clients: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, ttl),
	}
}

func (l *ipRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.clients.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), l.rps*2)
	}
	// Add refreshes the entry's expiry.
	l.clients.Add(ip, limiter)
	return limiter
}

func (l *ipRateLimiter) handle(c *gin.Context) {
	if !l.limiter(c.ClientIP()).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Rate limit exceeded",
			Code:  "RATE_LIMIT",
		})
		return
	}
	c.Next()
}

// LoggerMiddleware logs HTTP requests and records them in the request
// metrics.
func LoggerMiddleware(logger log.Logger, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(statusCode)).Inc()

		keyvals := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(contextRequestIDKey),
		}
		switch {
		case statusCode >= http.StatusInternalServerError:
			logger.Error("request failed", keyvals...)
		case statusCode >= http.StatusBadRequest:
			logger.Info("request rejected", keyvals...)
		default:
			logger.Debug("request served", keyvals...)
		}
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(contextRequestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimitMiddleware caps request bodies at max bytes.
func RequestSizeLimitMiddleware(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "Request body too large",
				Code:  "REQUEST_TOO_LARGE",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// TimeoutMiddleware bounds the request context. Handlers observe the
// deadline through c.Request.Context().
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
