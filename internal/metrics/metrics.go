// Package metrics tracks query and tool activity for the MCP server.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "elastic_otel_mcp"

// Prometheus metric labels
const (
	labelTool    = "tool"
	labelKind    = "kind"
	labelDataset = "dataset"
	labelOutcome = "outcome"
	labelStatus  = "status"
)

// Query outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics tracks operational metrics with both internal counters and Prometheus metrics
type Metrics struct {
	totalQueries  atomic.Uint64
	failedQueries atomic.Uint64
	rowsReturned  atomic.Uint64

	totalLatency atomic.Int64 // microseconds
	maxLatency   atomic.Int64

	errorsMu       sync.RWMutex
	errorsByStatus map[int]uint64

	toolsMu    sync.RWMutex
	toolUsage  map[string]uint64
	toolErrors map[string]uint64

	registry *prometheus.Registry
	logger   *zap.Logger

	promQueries        *prometheus.CounterVec
	promQueryLatency   *prometheus.HistogramVec
	promQueryRows      *prometheus.HistogramVec
	promErrorsByStatus *prometheus.CounterVec
	promToolCalls      *prometheus.CounterVec
	promToolErrors     *prometheus.CounterVec
	promToolLatency    *prometheus.HistogramVec
}

// New creates a metrics tracker backed by its own Prometheus registry.
func New(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		errorsByStatus: make(map[int]uint64),
		toolUsage:      make(map[string]uint64),
		toolErrors:     make(map[string]uint64),
		registry:       registry,
		logger:         logger,

		promQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "esql_queries_total",
			Help:      "ES|QL queries sent to the backend, labeled by query kind, dataset and outcome",
		}, []string{labelKind, labelDataset, labelOutcome}),
		promQueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "esql_query_latency_seconds",
			Help:      "ES|QL query latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{labelKind}),
		promQueryRows: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "esql_query_rows",
			Help:      "Rows returned per ES|QL query",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500},
		}, []string{labelKind}),
		promErrorsByStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_by_status_total",
			Help:      "Failed backend requests by HTTP status code (0 for transport failures)",
		}, []string{labelStatus}),
		promToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls, labeled by tool name",
		}, []string{labelTool}),
		promToolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_errors_total",
			Help:      "Total number of tool errors, labeled by tool name",
		}, []string{labelTool}),
		promToolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_latency_seconds",
			Help:      "Tool execution latency in seconds, labeled by tool name",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{labelTool}),
	}

	return m
}

// RecordQuery records one ES|QL round trip. statusCode is 0 when the request
// never produced an HTTP response.
func (m *Metrics) RecordQuery(kind, dataset string, success bool, latency time.Duration, rows, statusCode int) {
	m.totalQueries.Add(1)
	m.recordLatency(latency)

	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
		m.failedQueries.Add(1)
		m.recordErrorStatus(statusCode)
	} else if rows > 0 {
		m.rowsReturned.Add(uint64(rows))
	}

	m.promQueries.WithLabelValues(kind, dataset, outcome).Inc()
	m.promQueryLatency.WithLabelValues(kind).Observe(latency.Seconds())
	if success {
		m.promQueryRows.WithLabelValues(kind).Observe(float64(rows))
	}
}

// RecordToolExecution records tool usage (both internal counters and Prometheus)
func (m *Metrics) RecordToolExecution(toolName string, success bool, latency time.Duration) {
	m.toolsMu.Lock()
	m.toolUsage[toolName]++
	if !success {
		m.toolErrors[toolName]++
	}
	m.toolsMu.Unlock()

	m.promToolCalls.WithLabelValues(toolName).Inc()
	m.promToolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
	if !success {
		m.promToolErrors.WithLabelValues(toolName).Inc()
	}
}

func (m *Metrics) recordLatency(latency time.Duration) {
	latencyUs := latency.Microseconds()
	m.totalLatency.Add(latencyUs)

	for {
		currentMax := m.maxLatency.Load()
		if latencyUs <= currentMax {
			break
		}
		if m.maxLatency.CompareAndSwap(currentMax, latencyUs) {
			break
		}
	}
}

func (m *Metrics) recordErrorStatus(statusCode int) {
	m.errorsMu.Lock()
	m.errorsByStatus[statusCode]++
	m.errorsMu.Unlock()

	m.promErrorsByStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Stats represents current metrics
type Stats struct {
	TotalQueries   uint64            `json:"total_queries"`
	FailedQueries  uint64            `json:"failed_queries"`
	RowsReturned   uint64            `json:"rows_returned"`
	AverageLatency time.Duration     `json:"average_latency_ns"`
	MaxLatency     time.Duration     `json:"max_latency_ns"`
	ErrorsByStatus map[int]uint64    `json:"errors_by_status"`
	ToolUsage      map[string]uint64 `json:"tool_usage"`
	ToolErrors     map[string]uint64 `json:"tool_errors"`
}

// GetStats returns a snapshot of the internal counters
func (m *Metrics) GetStats() Stats {
	m.errorsMu.RLock()
	errorsByStatus := make(map[int]uint64, len(m.errorsByStatus))
	for k, v := range m.errorsByStatus {
		errorsByStatus[k] = v
	}
	m.errorsMu.RUnlock()

	m.toolsMu.RLock()
	toolUsage := make(map[string]uint64, len(m.toolUsage))
	toolErrors := make(map[string]uint64, len(m.toolErrors))
	for k, v := range m.toolUsage {
		toolUsage[k] = v
	}
	for k, v := range m.toolErrors {
		toolErrors[k] = v
	}
	m.toolsMu.RUnlock()

	total := m.totalQueries.Load()
	var avgLatency time.Duration
	if total > 0 {
		avgLatency = time.Duration(float64(m.totalLatency.Load())/float64(total)) * time.Microsecond
	}

	return Stats{
		TotalQueries:   total,
		FailedQueries:  m.failedQueries.Load(),
		RowsReturned:   m.rowsReturned.Load(),
		AverageLatency: avgLatency,
		MaxLatency:     time.Duration(m.maxLatency.Load()) * time.Microsecond,
		ErrorsByStatus: errorsByStatus,
		ToolUsage:      toolUsage,
		ToolErrors:     toolErrors,
	}
}

// LogStats logs current statistics
func (m *Metrics) LogStats() {
	stats := m.GetStats()

	var errorRate float64
	if stats.TotalQueries > 0 {
		errorRate = float64(stats.FailedQueries) / float64(stats.TotalQueries) * 100
	}

	m.logger.Info("Operational metrics",
		zap.Uint64("total_queries", stats.TotalQueries),
		zap.Uint64("failed_queries", stats.FailedQueries),
		zap.Float64("error_rate_pct", errorRate),
		zap.Uint64("rows_returned", stats.RowsReturned),
		zap.Duration("avg_latency", stats.AverageLatency),
		zap.Duration("max_latency", stats.MaxLatency),
		zap.Any("errors_by_status", stats.ErrorsByStatus),
		zap.Any("tool_usage", stats.ToolUsage),
	)
}

// Registry returns the Prometheus registry the metrics are registered with,
// for use with promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
