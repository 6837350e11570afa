// Package client is the HTTP transport to the Elastic _query endpoint.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tracing"
)

// Authenticator sets credentials on an outgoing request.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Request is one call against the deployment. Body is JSON-encoded.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   interface{}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Client sends requests to one Elastic deployment with rate limiting and
// retries.
type Client struct {
	httpClient    *http.Client
	config        *config.Config
	logger        *zap.Logger
	rateLimiter   *rate.Limiter
	authenticator Authenticator
	backoff       backoff
	userAgent     string
}

// New builds a client for cfg.Endpoint. The rate limiter is installed only
// when cfg.EnableRateLimit is set.
func New(cfg *config.Config, authenticator Authenticator, logger *zap.Logger, version string) (*Client, error) {
	if authenticator == nil {
		return nil, errors.New("authenticator is required")
	}
	if version == "" {
		version = "dev"
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: newTransport(cfg, logger),
			Timeout:   cfg.Timeout,
		},
		config:        cfg,
		logger:        logger,
		authenticator: authenticator,
		backoff:       newBackoff(cfg),
		userAgent:     "elastic-otel-mcp/" + version,
	}
	if cfg.EnableRateLimit {
		c.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
	}
	return c, nil
}

func newTransport(cfg *config.Config, logger *zap.Logger) *http.Transport {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if !cfg.TLSVerify {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for self-signed clusters
		logger.Warn("TLS certificate verification is disabled",
			zap.String("endpoint", security.MaskURL(cfg.Endpoint)),
		)
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}
}

// Do sends req, retrying transport errors and overload statuses up to
// MaxRetries times. A retryable status on the last attempt comes back as a
// normal response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var (
		lastErr  error
		lastResp *Response
	)

	for attempt := 0; attempt <= c.backoff.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff.wait(attempt, lastResp)
			c.logger.Debug("Retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
			)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		resp, err := c.send(ctx, req)
		switch {
		case err != nil && isRetryable(err):
			lastErr, lastResp = err, nil
		case err != nil:
			return nil, err
		case shouldRetry(resp.StatusCode) && attempt < c.backoff.retries:
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Body)
			lastResp = resp
		default:
			return resp, nil
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// newRequest encodes req and sets the fixed headers.
func (c *Client) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target := strings.TrimRight(c.config.Endpoint, "/") + req.Path
	if len(req.Query) > 0 {
		params := make(url.Values, len(req.Query))
		for k, v := range req.Query {
			params.Set(k, v)
		}
		target += "?" + params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	h := httpReq.Header
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	// required by Kibana for non-GET requests
	h.Set("kbn-xsrf", "true")
	h.Set("User-Agent", c.userAgent)
	if info := tracing.FromContext(ctx); info.TraceID != "" {
		h.Set(tracing.OpaqueIDHeader, info.TraceID)
	}

	if err := c.authenticator.Authenticate(httpReq); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return httpReq, nil
}

// send performs a single attempt.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	log := c.logger.With(
		zap.String("method", req.Method),
		zap.String("url", security.MaskURL(httpReq.URL.String())),
	)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error("HTTP request failed",
			zap.String("error", security.SanitizeError(err)),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			log.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if ce := log.Check(zap.DebugLevel, "HTTP request completed"); ce != nil {
		ce.Write(
			zap.Int("status", httpResp.StatusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_size", len(body)),
			zap.Any("request_headers", security.MaskSensitiveHeaders(httpReq.Header)),
		)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
