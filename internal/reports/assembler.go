package reports

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tareqmamari/elastic-otel-mcp/internal/diagnostics"
	"github.com/tareqmamari/elastic-otel-mcp/internal/esql"
)

// Defaults applied by the tools when an argument is omitted.
const (
	DefaultTimeRange    = "15m"
	DefaultSeverity     = "ERROR"
	DefaultThresholdMs  = 1000
	DefaultResourceType = "cpu"
)

// Assembler builds reports from query results. It keeps no state between
// calls; every report is freshly allocated.
type Assembler struct {
	runner esql.Runner
	logger *zap.Logger
	now    func() time.Time
}

// NewAssembler creates an assembler over runner.
func NewAssembler(runner esql.Runner, logger *zap.Logger) *Assembler {
	return &Assembler{runner: runner, logger: logger, now: time.Now}
}

func (a *Assembler) timestamp() string {
	return a.now().Format(time.RFC3339)
}

// runAll executes specs concurrently and returns results in spec order once
// every query has finished.
func (a *Assembler) runAll(ctx context.Context, specs ...esql.Spec) []*esql.Result {
	results := make([]*esql.Result, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = a.runner.Execute(ctx, spec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Health classifies every service by error rate. The response-time query is
// issued alongside but its rows are not merged into the report.
func (a *Assembler) Health(ctx context.Context, timeRange string) *HealthReport {
	report := &HealthReport{
		Timestamp: a.timestamp(),
		TimeRange: timeRange,
		Services:  map[string]ServiceHealth{},
		Alerts:    []string{},
	}

	results := a.runAll(ctx, esql.HealthErrorRate(timeRange), esql.HealthResponseTime(timeRange))
	errorRates, responseTimes := results[0], results[1]

	a.logger.Debug("Response times fetched for health report",
		zap.Int("services", len(responseTimes.Rows)),
		zap.Bool("failed", responseTimes.Failed()),
	)

	statuses := make([]diagnostics.Status, 0, len(errorRates.Rows))
	if !errorRates.Empty() {
		for _, row := range errorRates.Rows {
			service := diagnostics.String(diagnostics.Column(row, 0))
			rate := diagnostics.Float(diagnostics.Column(row, 1))
			status := diagnostics.ErrorRateStatus(rate)

			report.Services[service] = ServiceHealth{ErrorRate: rate, Status: status}
			statuses = append(statuses, status)

			if alert, ok := diagnostics.ErrorRateAlert(service, rate); ok {
				report.Alerts = append(report.Alerts, alert)
			}
		}
	}
	report.OverallStatus = diagnostics.WorstStatus(statuses...)

	return report
}

// ServiceMetrics reports transaction and resource statistics for one service.
func (a *Assembler) ServiceMetrics(ctx context.Context, service, timeRange string) *ServiceMetricsReport {
	report := &ServiceMetricsReport{
		Service:   service,
		Timestamp: a.timestamp(),
		TimeRange: timeRange,
	}

	results := a.runAll(ctx,
		esql.ServiceTransactions(service, timeRange),
		esql.ServiceResources(service, timeRange),
	)
	transactions, resources := results[0], results[1]

	if !transactions.Empty() {
		row := transactions.Rows[0]
		count := diagnostics.Int(diagnostics.Column(row, 0))
		errs := diagnostics.Int(diagnostics.Column(row, 1))
		report.Metrics.Transactions = &TransactionStats{
			Count:         count,
			Errors:        errs,
			ErrorRate:     diagnostics.Ratio(float64(errs), float64(count)),
			AvgDurationMs: diagnostics.MicrosToMillis(diagnostics.Column(row, 2)),
			P95DurationMs: diagnostics.MicrosToMillis(diagnostics.Column(row, 3)),
			P99DurationMs: diagnostics.MicrosToMillis(diagnostics.Column(row, 4)),
		}
	}

	if !resources.Empty() {
		row := resources.Rows[0]
		report.Metrics.Resources = &ResourceStats{
			AvgCPUPercent:    diagnostics.Percent(diagnostics.Column(row, 0)),
			AvgMemoryPercent: diagnostics.Percent(diagnostics.Column(row, 1)),
		}
	}

	return report
}

// ErrorAnalysis lists the most frequent messages at severity, highest count first.
func (a *Assembler) ErrorAnalysis(ctx context.Context, timeRange, severity string) *ErrorReport {
	report := &ErrorReport{
		Timestamp: a.timestamp(),
		TimeRange: timeRange,
		Severity:  severity,
		Errors:    []ErrorEntry{},
	}

	result := a.runner.Execute(ctx, esql.ErrorsBySeverity(timeRange, severity))
	if result.Empty() {
		return report
	}

	for _, row := range result.Rows {
		report.Errors = append(report.Errors, ErrorEntry{
			Service: diagnostics.String(diagnostics.Column(row, 0)),
			Message: diagnostics.String(diagnostics.Column(row, 1)),
			Count:   diagnostics.Int(diagnostics.Column(row, 2)),
		})
	}

	return report
}

// PerformanceIssues lists operations averaging above thresholdMs, slowest first.
func (a *Assembler) PerformanceIssues(ctx context.Context, timeRange string, thresholdMs int64) *PerformanceReport {
	report := &PerformanceReport{
		Timestamp:      a.timestamp(),
		TimeRange:      timeRange,
		ThresholdMs:    thresholdMs,
		SlowOperations: []SlowOperation{},
	}

	result := a.runner.Execute(ctx, esql.SlowOperations(timeRange, thresholdMs))
	if result.Empty() {
		return report
	}

	for _, row := range result.Rows {
		report.SlowOperations = append(report.SlowOperations, SlowOperation{
			Service:       diagnostics.String(diagnostics.Column(row, 0)),
			Operation:     diagnostics.String(diagnostics.Column(row, 1)),
			Count:         diagnostics.Int(diagnostics.Column(row, 2)),
			AvgDurationMs: diagnostics.MicrosToMillis(diagnostics.Column(row, 3)),
			MaxDurationMs: diagnostics.MicrosToMillis(diagnostics.Column(row, 4)),
		})
	}

	return report
}

// ResourceUtilization reports per-host utilization for resourceType. The only
// error is an unusable resource type.
func (a *Assembler) ResourceUtilization(ctx context.Context, timeRange, resourceType string) (*ResourceReport, error) {
	spec, err := esql.ResourceUtilization(timeRange, resourceType)
	if err != nil {
		return nil, err
	}

	report := &ResourceReport{
		Timestamp:    a.timestamp(),
		TimeRange:    timeRange,
		ResourceType: resourceType,
		Utilization:  map[string]Utilization{},
	}

	result := a.runner.Execute(ctx, spec)
	if result.Empty() {
		return report, nil
	}

	for _, row := range result.Rows {
		host := diagnostics.String(diagnostics.Column(row, 0))
		fraction := diagnostics.Float(diagnostics.Column(row, 1))
		if _, seen := report.Utilization[host]; !seen {
			report.Hosts = append(report.Hosts, host)
		}
		report.Utilization[host] = Utilization{
			Value:  diagnostics.Percent(fraction),
			Unit:   UnitPercent,
			Status: diagnostics.UtilizationStatus(fraction),
		}
	}

	return report, nil
}

// TraceAnalysis groups service-to-service call counts by caller. An empty
// serviceFilter means all services.
func (a *Assembler) TraceAnalysis(ctx context.Context, timeRange, serviceFilter string) *TraceReport {
	report := &TraceReport{
		Timestamp:           a.timestamp(),
		TimeRange:           timeRange,
		ServiceDependencies: map[string][]Dependency{},
		Bottlenecks:         []string{},
	}
	if serviceFilter != "" {
		report.ServiceFilter = &serviceFilter
	}

	result := a.runner.Execute(ctx, esql.ServiceDependencies(timeRange, serviceFilter))
	if result.Empty() {
		return report
	}

	for _, row := range result.Rows {
		source := diagnostics.String(diagnostics.Column(row, 0))
		report.ServiceDependencies[source] = append(report.ServiceDependencies[source], Dependency{
			Target:    diagnostics.String(diagnostics.Column(row, 1)),
			CallCount: diagnostics.Int(diagnostics.Column(row, 2)),
		})
	}

	return report
}
