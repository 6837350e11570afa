package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
	"github.com/tareqmamari/elastic-otel-mcp/internal/reports"
)

// ErrorAnalysisTool lists the most frequent log messages at a severity.
type ErrorAnalysisTool struct {
	*BaseTool
}

// NewErrorAnalysisTool creates a new tool instance
func NewErrorAnalysisTool(r Reports, logger *zap.Logger) *ErrorAnalysisTool {
	return &ErrorAnalysisTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *ErrorAnalysisTool) Name() string {
	return "get_error_analysis"
}

// Annotations returns tool hints for LLMs
func (t *ErrorAnalysisTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Error Analysis")
}

// Description returns the tool description
func (t *ErrorAnalysisTool) Description() string {
	return `Analyze errors and exceptions in your applications.

Groups logs at the given severity by service and message and returns the 20 most frequent, highest count first.`
}

// InputSchema returns the input schema
func (t *ErrorAnalysisTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
			"severity": map[string]interface{}{
				"type":        "string",
				"description": "Error severity level (ERROR, WARN, INFO)",
				"default":     reports.DefaultSeverity,
				"examples":    []string{"ERROR", "WARN", "INFO"},
			},
		},
	}
}

// Run executes the tool
func (t *ErrorAnalysisTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	severity, err := GetStringParamDefault(arguments, "severity", reports.DefaultSeverity)
	if err != nil {
		return nil, err
	}
	return t.reports.ErrorAnalysis(ctx, timeRange, severity), nil
}

// PerformanceIssuesTool lists operations slower than a threshold.
type PerformanceIssuesTool struct {
	*BaseTool
}

// NewPerformanceIssuesTool creates a new tool instance
func NewPerformanceIssuesTool(r Reports, logger *zap.Logger) *PerformanceIssuesTool {
	return &PerformanceIssuesTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *PerformanceIssuesTool) Name() string {
	return "get_performance_issues"
}

// Annotations returns tool hints for LLMs
func (t *PerformanceIssuesTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Performance Issues")
}

// Description returns the tool description
func (t *PerformanceIssuesTool) Description() string {
	return `Identify performance bottlenecks and slow operations.

Returns up to 20 (service, transaction) pairs whose transactions exceeded threshold_ms,
slowest average first, with count and avg/max durations in milliseconds.`
}

// InputSchema returns the input schema
func (t *PerformanceIssuesTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
			"threshold_ms": map[string]interface{}{
				"type":        "integer",
				"description": "Response time threshold in milliseconds",
				"default":     reports.DefaultThresholdMs,
				"minimum":     0,
			},
		},
	}
}

// Run executes the tool
func (t *PerformanceIssuesTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	threshold, err := GetIntParamDefault(arguments, "threshold_ms", reports.DefaultThresholdMs)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, mcperrors.NewInvalidInput(fmt.Sprintf("threshold_ms must not be negative, got %d", threshold))
	}
	return t.reports.PerformanceIssues(ctx, timeRange, threshold), nil
}

// ResourceUtilizationTool reports per-host utilization of one resource.
type ResourceUtilizationTool struct {
	*BaseTool
}

// NewResourceUtilizationTool creates a new tool instance
func NewResourceUtilizationTool(r Reports, logger *zap.Logger) *ResourceUtilizationTool {
	return &ResourceUtilizationTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *ResourceUtilizationTool) Name() string {
	return "get_resource_utilization"
}

// Annotations returns tool hints for LLMs
func (t *ResourceUtilizationTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Resource Utilization")
}

// Description returns the tool description
func (t *ResourceUtilizationTool) Description() string {
	return `Get CPU, memory, and resource utilization across hosts.

Returns per-host utilization in percent, most utilized first. Status is critical above 90%, warning above 80%, healthy otherwise.
Other resource types read the system.<type>.utilization metric.`
}

// InputSchema returns the input schema
func (t *ResourceUtilizationTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
			"resource_type": map[string]interface{}{
				"type":        "string",
				"description": "Resource type (cpu, memory, disk, network)",
				"default":     reports.DefaultResourceType,
				"pattern":     `^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`,
				"examples":    []string{"cpu", "memory", "disk", "network"},
			},
		},
	}
}

// Run executes the tool
func (t *ResourceUtilizationTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	resourceType, err := GetStringParamDefault(arguments, "resource_type", reports.DefaultResourceType)
	if err != nil {
		return nil, err
	}
	report, err := t.reports.ResourceUtilization(ctx, timeRange, resourceType)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TraceAnalysisTool maps service-to-service call counts.
type TraceAnalysisTool struct {
	*BaseTool
}

// NewTraceAnalysisTool creates a new tool instance
func NewTraceAnalysisTool(r Reports, logger *zap.Logger) *TraceAnalysisTool {
	return &TraceAnalysisTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *TraceAnalysisTool) Name() string {
	return "get_trace_analysis"
}

// Annotations returns tool hints for LLMs
func (t *TraceAnalysisTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Trace Analysis")
}

// Description returns the tool description
func (t *TraceAnalysisTool) Description() string {
	return `Analyze distributed traces for service dependencies and bottlenecks.

Returns service_dependencies: for each calling service, the services it called (service.target.name)
with call counts, busiest edges first. service_name restricts the graph to edges from that service.`
}

// InputSchema returns the input schema
func (t *TraceAnalysisTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
			"service_name": map[string]interface{}{
				"type":        "string",
				"description": "Optional service name to filter traces",
			},
		},
	}
}

// Run executes the tool
func (t *TraceAnalysisTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	service, err := GetStringParam(arguments, "service_name", false)
	if err != nil {
		return nil, err
	}
	return t.reports.TraceAnalysis(ctx, timeRange, service), nil
}
