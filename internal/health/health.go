// Package health checks credentials and backend reachability and serves the
// results over HTTP.
package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/esql"
)

// Status is the outcome of a check and of the check set as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Backend probe limits. A probe slower than SlowProbeThreshold degrades.
const (
	ProbeTimeout       = 5 * time.Second
	SlowProbeThreshold = 3 * time.Second
)

// Check is one named probe result.
type Check struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// CredentialValidator reports whether configured credentials are usable.
type CredentialValidator interface {
	Validate() error
}

// Checker probes credentials and the ES|QL backend.
type Checker struct {
	runner    esql.Runner
	validator CredentialValidator
	logger    *zap.Logger
}

// New creates a checker over runner and validator.
func New(runner esql.Runner, validator CredentialValidator, logger *zap.Logger) *Checker {
	return &Checker{runner: runner, validator: validator, logger: logger}
}

// CheckAll runs every probe and returns the worst status among them.
func (c *Checker) CheckAll(ctx context.Context) (Status, []Check) {
	checks := []Check{
		timed("credentials", c.checkCredentials),
		timed("esql_backend", func() (Status, string) { return c.checkBackend(ctx) }),
	}

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status.rank() > overall.rank() {
			overall = check.Status
		}
	}
	return overall, checks
}

func timed(name string, probe func() (Status, string)) Check {
	start := time.Now()
	status, msg := probe()
	return Check{
		Name:      name,
		Status:    status,
		Message:   msg,
		Timestamp: start,
		Duration:  time.Since(start),
	}
}

func (c *Checker) checkCredentials() (Status, string) {
	if err := c.validator.Validate(); err != nil {
		c.logger.Error("Health check failed: credentials", zap.Error(err))
		return StatusUnhealthy, fmt.Sprintf("Credentials invalid: %v", err)
	}
	return StatusHealthy, "Credentials configured"
}

// checkBackend runs a zero-row ES|QL query against traces-*.
func (c *Checker) checkBackend(ctx context.Context) (Status, string) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	start := time.Now()
	result := c.runner.Execute(ctx, esql.Probe())
	elapsed := time.Since(start)

	switch {
	case result.Failed():
		c.logger.Warn("Health check failed: ES|QL backend",
			zap.String("error", result.Error),
			zap.Duration("duration", elapsed),
		)
		return StatusUnhealthy, "ES|QL endpoint unreachable: " + result.Error
	case elapsed > SlowProbeThreshold:
		return StatusDegraded, "ES|QL endpoint responding slowly"
	}
	c.logger.Debug("Health check passed: ES|QL backend", zap.Duration("duration", elapsed))
	return StatusHealthy, "ES|QL endpoint reachable"
}
