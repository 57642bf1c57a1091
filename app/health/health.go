// Package health provides health checks for an alith node.
//
// Components register a CheckFunc with a Checker. The checker runs the
// checks in parallel, caches the aggregate for a short period and serves
// three endpoints:
// - /health - Basic liveness check
// - /health/ready - Readiness check for load balancers
// - /health/detailed - Every registered component with metrics
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// ComponentHealth represents the health status of a single component
type ComponentHealth struct {
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// CheckFunc reports the health of one component. It must honor ctx.
type CheckFunc func(ctx context.Context) ComponentHealth

type namedCheck struct {
	name     string
	fn       CheckFunc
	detailed bool
}

// Config holds configuration for the health checker
type Config struct {
	// Version is reported in every response
	Version string

	// CheckTimeout bounds a single component check
	CheckTimeout time.Duration

	// CacheDuration is how long to cache health check results
	CacheDuration time.Duration
}

// DefaultConfig returns the default health check configuration
func DefaultConfig() Config {
	return Config{
		CheckTimeout:  5 * time.Second,
		CacheDuration: 5 * time.Second,
	}
}

// Checker performs health checks on registered components
type Checker struct {
	logger        log.Logger
	version       string
	checkTimeout  time.Duration
	cacheDuration time.Duration
	now           func() time.Time

	mu           sync.RWMutex
	checks       []namedCheck
	lastCheck    time.Time
	cachedHealth *HealthCheck
}

// NewChecker creates a new health checker
func NewChecker(logger log.Logger, cfg Config) *Checker {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	def := DefaultConfig()
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if cfg.CacheDuration < 0 {
		cfg.CacheDuration = 0
	}
	return &Checker{
		logger:        logger.With("module", "health"),
		version:       cfg.Version,
		checkTimeout:  cfg.CheckTimeout,
		cacheDuration: cfg.CacheDuration,
		now:           time.Now,
	}
}

// WithClock replaces the checker's clock.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Register adds a component check. Detailed checks only run for
// /health/detailed.
func (c *Checker) Register(name string, fn CheckFunc, detailed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, namedCheck{name: name, fn: fn, detailed: detailed})
	c.cachedHealth = nil
}

// Check performs a health check over the registered components
func (c *Checker) Check(ctx context.Context, detailed bool) *HealthCheck {
	// Return cached result if still valid
	if !detailed {
		if cached := c.cached(); cached != nil {
			return cached
		}
	}

	c.mu.RLock()
	checks := make([]namedCheck, 0, len(c.checks))
	for _, check := range c.checks {
		if check.detailed && !detailed {
			continue
		}
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	health := &HealthCheck{
		Timestamp:  c.now(),
		Version:    c.version,
		Components: make(map[string]ComponentHealth, len(checks)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, check := range checks {
		wg.Add(1)
		go func(check namedCheck) {
			defer wg.Done()
			result := c.run(ctx, check)
			mu.Lock()
			health.Components[check.name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	health.Status = calculateOverallStatus(health.Components)

	if !detailed {
		c.mu.Lock()
		c.lastCheck = c.now()
		c.cachedHealth = health
		c.mu.Unlock()
	}
	return health
}

func (c *Checker) run(ctx context.Context, check namedCheck) (result ComponentHealth) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("health check panicked", "component", check.name, "panic", r)
			result = ComponentHealth{
				Status:    StatusUnhealthy,
				Message:   fmt.Sprintf("check panicked: %v", r),
				Timestamp: c.now(),
			}
		}
	}()

	result = check.fn(timeoutCtx)
	if result.Status == "" {
		result.Status = StatusUnknown
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = c.now()
	}
	return result
}

// calculateOverallStatus determines the overall health status based on component statuses
func calculateOverallStatus(components map[string]ComponentHealth) Status {
	hasUnhealthy := false
	hasDegraded := false

	for _, component := range components {
		switch component.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded, StatusUnknown:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (c *Checker) cached() *HealthCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cachedHealth == nil || c.now().Sub(c.lastCheck) >= c.cacheDuration {
		return nil
	}
	return c.cachedHealth
}

// RegisterRoutes registers health check endpoints on a gin router
func (c *Checker) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", c.handleHealth)
	r.GET("/health/ready", c.handleHealthReady)
	r.GET("/health/detailed", c.handleHealthDetailed)
}

// handleHealth handles the basic liveness check endpoint
func (c *Checker) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": c.now().Format(time.RFC3339),
		"version":   c.version,
	})
}

// handleHealthReady handles the readiness check endpoint. A degraded node
// is still ready.
func (c *Checker) handleHealthReady(ctx *gin.Context) {
	c.respond(ctx, c.Check(ctx.Request.Context(), false))
}

func (c *Checker) handleHealthDetailed(ctx *gin.Context) {
	c.respond(ctx, c.Check(ctx.Request.Context(), true))
}

func (c *Checker) respond(ctx *gin.Context, health *HealthCheck) {
	statusCode := http.StatusOK
	if health.Status == StatusUnhealthy {
		c.logger.Warn("node unhealthy", "components", len(health.Components))
		statusCode = http.StatusServiceUnavailable
	}
	ctx.JSON(statusCode, health)
}
