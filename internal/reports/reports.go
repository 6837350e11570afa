// Package reports turns ES|QL results into typed diagnostic reports.
package reports

import (
	"github.com/tareqmamari/elastic-otel-mcp/internal/diagnostics"
)

// HealthReport summarizes per-service error rates.
type HealthReport struct {
	Timestamp     string                   `json:"timestamp"`
	TimeRange     string                   `json:"time_range"`
	OverallStatus diagnostics.Status       `json:"overall_status"`
	Services      map[string]ServiceHealth `json:"services"`
	Alerts        []string                 `json:"alerts"`
}

// ServiceHealth is the error-rate classification of one service.
type ServiceHealth struct {
	ErrorRate float64            `json:"error_rate"`
	Status    diagnostics.Status `json:"status"`
}

// ServiceMetricsReport holds transaction and resource statistics for one service.
type ServiceMetricsReport struct {
	Service   string         `json:"service"`
	Timestamp string         `json:"timestamp"`
	TimeRange string         `json:"time_range"`
	Metrics   ServiceMetrics `json:"metrics"`
}

// ServiceMetrics sections are omitted when their query returned nothing.
type ServiceMetrics struct {
	Transactions *TransactionStats `json:"transactions,omitempty"`
	Resources    *ResourceStats    `json:"resources,omitempty"`
}

// TransactionStats are durations in milliseconds.
type TransactionStats struct {
	Count         int64   `json:"count"`
	Errors        int64   `json:"errors"`
	ErrorRate     float64 `json:"error_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	P95DurationMs float64 `json:"p95_duration_ms"`
	P99DurationMs float64 `json:"p99_duration_ms"`
}

// ResourceStats are percentages.
type ResourceStats struct {
	AvgCPUPercent    float64 `json:"avg_cpu_percent"`
	AvgMemoryPercent float64 `json:"avg_memory_percent"`
}

// ErrorReport lists the most frequent log messages at a severity.
type ErrorReport struct {
	Timestamp string       `json:"timestamp"`
	TimeRange string       `json:"time_range"`
	Severity  string       `json:"severity"`
	Errors    []ErrorEntry `json:"errors"`
}

// ErrorEntry is one (service, message) group.
type ErrorEntry struct {
	Service string `json:"service"`
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// PerformanceReport lists operations slower than a threshold.
type PerformanceReport struct {
	Timestamp      string          `json:"timestamp"`
	TimeRange      string          `json:"time_range"`
	ThresholdMs    int64           `json:"threshold_ms"`
	SlowOperations []SlowOperation `json:"slow_operations"`
}

// SlowOperation is one (service, transaction) group. Durations in milliseconds.
type SlowOperation struct {
	Service       string  `json:"service"`
	Operation     string  `json:"operation"`
	Count         int64   `json:"count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MaxDurationMs float64 `json:"max_duration_ms"`
}

// ResourceReport holds per-host utilization for one resource type.
type ResourceReport struct {
	Timestamp    string                 `json:"timestamp"`
	TimeRange    string                 `json:"time_range"`
	ResourceType string                 `json:"resource_type"`
	Utilization  map[string]Utilization `json:"utilization"`

	// Hosts lists the keys of Utilization in backend order (highest first).
	Hosts []string `json:"-"`
}

// Utilization of one host.
type Utilization struct {
	Value  float64            `json:"value"`
	Unit   string             `json:"unit"`
	Status diagnostics.Status `json:"status"`
}

// UnitPercent is the only utilization unit reported.
const UnitPercent = "percent"

// TraceReport maps each calling service to the services it calls.
type TraceReport struct {
	Timestamp           string                  `json:"timestamp"`
	TimeRange           string                  `json:"time_range"`
	ServiceFilter       *string                 `json:"service_filter"`
	ServiceDependencies map[string][]Dependency `json:"service_dependencies"`
	Bottlenecks         []string                `json:"bottlenecks"`
}

// Dependency is one outgoing edge of the service graph.
type Dependency struct {
	Target    string `json:"target"`
	CallCount int64  `json:"call_count"`
}
