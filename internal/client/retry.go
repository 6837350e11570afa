package client

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
)

// maxRetryAfter caps how long a server-provided Retry-After can stall a request.
const maxRetryAfter = time.Hour

// backoff spaces retries: Retry-After on 429, otherwise doubling from min
// up to max. Every wait gets up to 25% jitter.
type backoff struct {
	retries int
	min     time.Duration
	max     time.Duration
}

func newBackoff(cfg *config.Config) backoff {
	return backoff{retries: cfg.MaxRetries, min: cfg.RetryWaitMin, max: cfg.RetryWaitMax}
}

func (b backoff) wait(attempt int, last *Response) time.Duration {
	if last != nil && last.StatusCode == http.StatusTooManyRequests {
		if d := parseRetryAfter(last.Headers); d > 0 {
			return d + jitter(d)
		}
	}

	d := b.min << min(attempt-1, 30)
	if d <= 0 || d > b.max {
		d = b.max
	}
	return d + jitter(d)
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Zero means absent
// or unusable.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds <= 0 {
			return 0
		}
		return min(time.Duration(seconds*float64(time.Second)), maxRetryAfter)
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(0, min(time.Until(when), maxRetryAfter))
	}
	return 0
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)/4 + 1)) //nolint:gosec // jitter only
}

var transientErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
}

// Matched against wrapped errors that lost their type.
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"network is unreachable",
	"i/o timeout",
	"tls handshake timeout",
	"eof",
}

// isRetryable reports whether a transport error is worth another attempt.
// Cancellation never is.
func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// shouldRetry lists the statuses that signal an overloaded or restarting
// cluster. A plain 500 is a query failure and is not retried.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
