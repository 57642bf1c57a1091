// Package api serves the compute node's HTTP interface: signed proof
// requests are authenticated against the node's address, queued on a
// bounded worker pool and settled on the ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/coolcode/alith/app/health"
	"github.com/coolcode/alith/x/reqauth"
)

// Server represents the node API server
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	config   *Config
	verifier *reqauth.Verifier
	pool     *Pool
	health   *health.Checker
	logger   log.Logger
	metrics  *Metrics
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            string
	CORSOrigins     []string
	RateLimitRPS    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MaxRequestSize  int64
	Headers         reqauth.HeaderNames
	Version         string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            "8000",
		RateLimitRPS:    100,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RequestTimeout:  30 * time.Second,
		MaxRequestSize:  MaxRequestSize,
		Headers:         reqauth.DefaultHeaderNames(),
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewServer creates a node API server. A nil checker gets a default one;
// the proof queue is always registered with it.
func NewServer(config *Config, verifier *reqauth.Verifier, pool *Pool, checker *health.Checker, logger log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if verifier == nil {
		return nil, errors.New("request verifier is required")
	}
	if pool == nil {
		return nil, errors.New("proof pool is required")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = MaxRequestSize
	}
	config.Headers = config.Headers.WithDefaults()
	if checker == nil {
		checker = health.NewChecker(logger, health.Config{Version: config.Version})
	}
	checker.Register("proof_queue", health.CapacityCheck(pool.Usage, 0.8), false)

	server := &Server{
		config:   config,
		verifier: verifier,
		pool:     pool,
		health:   checker,
		logger:   logger.With("module", "api"),
		metrics:  NewMetrics(),
	}
	server.setupRouter()
	return server, nil
}

// setupRouter configures the Gin router with all routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Global middleware - ORDER MATTERS!
	// 1. Recovery (must be first to catch panics)
	s.router.Use(gin.Recovery())

	// 2. Security headers (set early)
	s.router.Use(SecurityHeadersMiddleware())

	// 3. Request size limiting (prevent DOS)
	s.router.Use(RequestSizeLimitMiddleware(s.config.MaxRequestSize))

	// 4. Request ID (for tracing)
	s.router.Use(RequestIDMiddleware())

	// 5. Logging
	s.router.Use(LoggerMiddleware(s.logger, s.metrics))

	// 6. Rate limiting (before expensive operations)
	s.router.Use(RateLimitMiddleware(s.config.RateLimitRPS))

	// 7. Timeout (prevent hanging requests)
	s.router.Use(TimeoutMiddleware(s.config.RequestTimeout))

	s.registerRoutes()

	// CORS wraps the router so preflight requests never reach it.
	s.handler = s.router
	if len(s.config.CORSOrigins) > 0 {
		names := s.config.Headers
		s.handler = cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", requestIDHeader, names.User, names.Nonce, names.Signature},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         86400,
		}).Handler(s.router)
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the checker serving /health.
func (s *Server) Health() *health.Checker {
	return s.health
}

// Start serves HTTP until ctx is done, then shuts down gracefully and
// stops the proof workers.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:           s.config.Addr(),
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	s.pool.Start(ctx)
	defer s.pool.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting node API server", "addr", srv.Addr, "node", s.verifier.Node().Hex())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down node API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited")
	return nil
}
