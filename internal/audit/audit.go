// Package audit records every tool call for later inspection.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/tracing"
)

// DefaultCapacity is how many entries the in-memory buffer keeps.
const DefaultCapacity = 500

// Entry represents a single audit log entry
type Entry struct {
	Timestamp time.Time     `json:"timestamp"`
	TraceID   string        `json:"trace_id,omitempty"`
	SpanID    string        `json:"span_id,omitempty"`
	Tool      string        `json:"tool"`
	InputHash string        `json:"input_hash,omitempty"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ns"`
	ErrorCode string        `json:"error_code,omitempty"`
	ErrorMsg  string        `json:"error_message,omitempty"`
}

// Logger writes audit entries to zap and keeps the most recent ones in a
// ring buffer.
type Logger struct {
	enabled bool
	logger  *zap.Logger

	mu    sync.RWMutex
	ring  []Entry
	next  int
	count int
}

// NewLogger creates a new audit logger. capacity <= 0 uses DefaultCapacity.
func NewLogger(logger *zap.Logger, enabled bool, capacity int) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Logger{
		enabled: enabled,
		logger:  logger.Named("audit"),
		ring:    make([]Entry, capacity),
	}
}

// HashInput returns a short digest of raw tool arguments so calls can be
// correlated without storing their contents.
func HashInput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

// Log records an audit entry
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if !l.enabled {
		return
	}

	traceInfo := tracing.FromContext(ctx)
	if traceInfo.TraceID != "" {
		entry.TraceID = traceInfo.TraceID
		entry.SpanID = traceInfo.SpanID
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("tool", entry.Tool),
		zap.Bool("success", entry.Success),
		zap.Duration("duration", entry.Duration),
	}
	if entry.TraceID != "" {
		fields = append(fields, zap.String("trace_id", entry.TraceID))
	}
	if entry.InputHash != "" {
		fields = append(fields, zap.String("input_hash", entry.InputHash))
	}
	if entry.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", entry.ErrorCode))
	}
	if entry.ErrorMsg != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMsg))
	}
	l.logger.Info("tool call", fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = entry
	l.next = (l.next + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
}

// GetRecentEntries returns up to limit entries, newest first. limit <= 0
// returns everything buffered.
func (l *Logger) GetRecentEntries(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.count {
		limit = l.count
	}

	result := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		result = append(result, l.ring[idx])
	}
	return result
}

// Stats contains aggregated audit statistics
type Stats struct {
	TotalEntries    int            `json:"total_entries"`
	SuccessRate     float64        `json:"success_rate_pct"`
	AverageDuration time.Duration  `json:"average_duration_ns"`
	ToolUsage       map[string]int `json:"tool_usage"`
	ErrorCounts     map[string]int `json:"error_counts"`
}

// GetStats summarizes the buffered entries
func (l *Logger) GetStats() Stats {
	entries := l.GetRecentEntries(0)

	stats := Stats{
		TotalEntries: len(entries),
		ToolUsage:    make(map[string]int),
		ErrorCounts:  make(map[string]int),
	}

	var (
		successCount  int
		totalDuration time.Duration
	)
	for _, entry := range entries {
		stats.ToolUsage[entry.Tool]++
		if entry.Success {
			successCount++
		} else if entry.ErrorCode != "" {
			stats.ErrorCounts[entry.ErrorCode]++
		}
		totalDuration += entry.Duration
	}

	if len(entries) > 0 {
		stats.SuccessRate = float64(successCount) / float64(len(entries)) * 100
		stats.AverageDuration = totalDuration / time.Duration(len(entries))
	}

	return stats
}

// IsEnabled returns whether audit logging is enabled
func (l *Logger) IsEnabled() bool {
	return l.enabled
}
