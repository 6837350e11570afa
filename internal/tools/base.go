package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/recommend"
	"github.com/tareqmamari/elastic-otel-mcp/internal/reports"
)

// Reports is the report assembler as seen by the tools.
type Reports interface {
	Health(ctx context.Context, timeRange string) *reports.HealthReport
	ServiceMetrics(ctx context.Context, service, timeRange string) *reports.ServiceMetricsReport
	ErrorAnalysis(ctx context.Context, timeRange, severity string) *reports.ErrorReport
	PerformanceIssues(ctx context.Context, timeRange string, thresholdMs int64) *reports.PerformanceReport
	ResourceUtilization(ctx context.Context, timeRange, resourceType string) (*reports.ResourceReport, error)
	TraceAnalysis(ctx context.Context, timeRange, serviceFilter string) *reports.TraceReport
}

// Recommender produces code recommendations.
type Recommender interface {
	Recommend(ctx context.Context, analysisType recommend.AnalysisType, timeRange string) (*recommend.Report, error)
}

// BaseTool holds what every diagnostic tool needs.
type BaseTool struct {
	reports Reports
	logger  *zap.Logger
}

// NewBaseTool creates a new base tool
func NewBaseTool(r Reports, logger *zap.Logger) *BaseTool {
	return &BaseTool{reports: r, logger: logger}
}

const timeRangeDescription = "Time range for analysis (e.g., '15m', '1h', '1d')"

// timeRangeProperty is the schema shared by every time_range argument.
func timeRangeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": timeRangeDescription,
		"default":     reports.DefaultTimeRange,
		"examples":    []string{"15m", "1h", "1d"},
	}
}

func timeRangeArg(arguments map[string]interface{}) (string, error) {
	return GetStringParamDefault(arguments, "time_range", reports.DefaultTimeRange)
}
