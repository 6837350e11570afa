// Package esql builds ES|QL queries for the diagnostic tools and executes
// them against an Elastic _query endpoint.
package esql

import (
	"fmt"
	"regexp"
	"strings"

	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
)

// Dataset is the index pattern a query targets.
type Dataset string

// Telemetry datasets
const (
	Metrics Dataset = "metrics-*"
	Logs    Dataset = "logs-*"
	Traces  Dataset = "traces-*"
)

// Kind names a query template. It labels spans and metrics.
type Kind string

// Query kinds
const (
	KindHealthErrorRate     Kind = "health_error_rate"
	KindHealthResponseTime  Kind = "health_response_time"
	KindServiceTransactions Kind = "service_transactions"
	KindServiceResources    Kind = "service_resources"
	KindErrorsBySeverity    Kind = "errors_by_severity"
	KindSlowOperations      Kind = "slow_operations"
	KindResourceUtilization Kind = "resource_utilization"
	KindServiceDependencies Kind = "service_dependencies"
	KindProbe               Kind = "probe"
)

// ListLimit caps list-shaped reports.
const ListLimit = 20

// Spec is one query against one dataset. Build it with the constructors
// below; the zero value is not a valid query.
type Spec struct {
	Kind    Kind
	Query   string
	Dataset Dataset
}

var fieldSegment = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// Quote renders s as an ES|QL double-quoted string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func since(timeRange string) string {
	return "@timestamp >= NOW() - " + timeRange
}

func pipeline(stages ...string) string {
	return strings.Join(stages, "\n| ")
}

// HealthErrorRate returns per-service error rates, highest first.
// Columns: service.name, error_rate.
func HealthErrorRate(timeRange string) Spec {
	return Spec{
		Kind:    KindHealthErrorRate,
		Dataset: Traces,
		Query: pipeline(
			"FROM traces-*",
			"WHERE "+since(timeRange),
			`STATS error_rate = AVG(CASE(transaction.result == "error", 1, 0)) BY service.name`,
			"KEEP service.name, error_rate",
			"SORT error_rate DESC",
		),
	}
}

// HealthResponseTime returns per-service average transaction duration in
// microseconds. Columns: service.name, avg_response_time.
func HealthResponseTime(timeRange string) Spec {
	return Spec{
		Kind:    KindHealthResponseTime,
		Dataset: Traces,
		Query: pipeline(
			"FROM traces-*",
			"WHERE "+since(timeRange),
			"STATS avg_response_time = AVG(transaction.duration.us) BY service.name",
			"KEEP service.name, avg_response_time",
			"SORT avg_response_time DESC",
		),
	}
}

// ServiceTransactions returns transaction statistics for one service.
// Columns: transaction_count, error_count, avg_duration, p95_duration, p99_duration.
func ServiceTransactions(serviceName, timeRange string) Spec {
	return Spec{
		Kind:    KindServiceTransactions,
		Dataset: Traces,
		Query: pipeline(
			"FROM traces-*",
			"WHERE "+since(timeRange)+" AND service.name == "+Quote(serviceName),
			"STATS transaction_count = COUNT(*),"+
				` error_count = COUNT(CASE(transaction.result == "error", 1, null)),`+
				" avg_duration = AVG(transaction.duration.us),"+
				" p95_duration = PERCENTILE(transaction.duration.us, 95),"+
				" p99_duration = PERCENTILE(transaction.duration.us, 99)",
		),
	}
}

// ServiceResources returns average CPU and memory utilization fractions for
// one service. Columns: avg_cpu, avg_memory.
func ServiceResources(serviceName, timeRange string) Spec {
	return Spec{
		Kind:    KindServiceResources,
		Dataset: Metrics,
		Query: pipeline(
			"FROM metrics-*",
			"WHERE "+since(timeRange)+" AND service.name == "+Quote(serviceName),
			"STATS avg_cpu = AVG(system.cpu.utilization), avg_memory = AVG(system.memory.utilization)",
		),
	}
}

// ErrorsBySeverity returns the most frequent log messages at a level.
// Columns: service.name, message, error_count.
func ErrorsBySeverity(timeRange, severity string) Spec {
	return Spec{
		Kind:    KindErrorsBySeverity,
		Dataset: Logs,
		Query: pipeline(
			"FROM logs-*",
			"WHERE "+since(timeRange)+" AND log.level == "+Quote(severity),
			"STATS error_count = COUNT(*) BY service.name, message",
			"KEEP service.name, message, error_count",
			"SORT error_count DESC",
			fmt.Sprintf("LIMIT %d", ListLimit),
		),
	}
}

// SlowOperations returns operations whose transactions exceed thresholdMs.
// Columns: service.name, transaction.name, count, avg_duration, max_duration.
func SlowOperations(timeRange string, thresholdMs int64) Spec {
	return Spec{
		Kind:    KindSlowOperations,
		Dataset: Traces,
		Query: pipeline(
			"FROM traces-*",
			fmt.Sprintf("WHERE %s AND transaction.duration.us > %d", since(timeRange), thresholdMs*1000),
			"STATS count = COUNT(*),"+
				" avg_duration = AVG(transaction.duration.us),"+
				" max_duration = MAX(transaction.duration.us)"+
				" BY service.name, transaction.name",
			"KEEP service.name, transaction.name, count, avg_duration, max_duration",
			"SORT avg_duration DESC",
			fmt.Sprintf("LIMIT %d", ListLimit),
		),
	}
}

// ResourceUtilization returns the average utilization fraction per host.
// cpu and memory use fixed field paths; any other type is substituted into
// system.<type>.utilization and must be a plain dotted identifier.
// Columns: host.name, <stat>.
func ResourceUtilization(timeRange, resourceType string) (Spec, error) {
	var stat, field string
	switch resourceType {
	case "cpu":
		stat, field = "avg_cpu", "system.cpu.utilization"
	case "memory":
		stat, field = "avg_memory", "system.memory.utilization"
	default:
		if !fieldSegment.MatchString(resourceType) {
			return Spec{}, mcperrors.NewInvalidInput(fmt.Sprintf("invalid resource_type %q", resourceType)).
				WithSuggestion("Use cpu, memory, or a metric name made of letters, digits, underscores and dots")
		}
		stat, field = "avg_utilization", "system."+resourceType+".utilization"
	}

	return Spec{
		Kind:    KindResourceUtilization,
		Dataset: Metrics,
		Query: pipeline(
			"FROM metrics-*",
			"WHERE "+since(timeRange),
			fmt.Sprintf("STATS %s = AVG(%s) BY host.name", stat, field),
			"KEEP host.name, "+stat,
			fmt.Sprintf("SORT %s DESC", stat),
		),
	}, nil
}

// ServiceDependencies returns call counts between services, optionally
// restricted to one source service. Rows without a target are dropped.
// Columns: service.name, service.target.name, call_count.
func ServiceDependencies(timeRange, serviceName string) Spec {
	where := "WHERE " + since(timeRange)
	if serviceName != "" {
		where += " AND service.name == " + Quote(serviceName)
	}

	return Spec{
		Kind:    KindServiceDependencies,
		Dataset: Traces,
		Query: pipeline(
			"FROM traces-*",
			where,
			"STATS call_count = COUNT(*) BY service.name, service.target.name",
			"WHERE service.target.name IS NOT NULL",
			"KEEP service.name, service.target.name, call_count",
			"SORT call_count DESC",
		),
	}
}

// Probe is a zero-row query used to check connectivity and credentials.
func Probe() Spec {
	return Spec{
		Kind:    KindProbe,
		Dataset: Traces,
		Query:   pipeline("FROM traces-*", "LIMIT 0"),
	}
}
