package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ApplicationHealthTool reports per-service error rates and an overall status.
type ApplicationHealthTool struct {
	*BaseTool
}

// NewApplicationHealthTool creates a new tool instance
func NewApplicationHealthTool(r Reports, logger *zap.Logger) *ApplicationHealthTool {
	return &ApplicationHealthTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *ApplicationHealthTool) Name() string {
	return "get_application_health"
}

// Annotations returns tool hints for LLMs
func (t *ApplicationHealthTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Application Health")
}

// Description returns the tool description
func (t *ApplicationHealthTool) Description() string {
	return `Get overall application health status from OTEL data.

Classifies every service by transaction error rate over the time range:
- healthy: below 5%
- degraded: 5% to 20%
- critical: 20% and above

Returns overall_status (worst service status), per-service error rates and alerts for services above 20%.

**Related tools:** get_service_metrics, get_error_analysis`
}

// InputSchema returns the input schema
func (t *ApplicationHealthTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
		},
	}
}

// Run executes the tool
func (t *ApplicationHealthTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	return t.reports.Health(ctx, timeRange), nil
}

// ServiceMetricsTool reports transaction and resource statistics for one service.
type ServiceMetricsTool struct {
	*BaseTool
}

// NewServiceMetricsTool creates a new tool instance
func NewServiceMetricsTool(r Reports, logger *zap.Logger) *ServiceMetricsTool {
	return &ServiceMetricsTool{BaseTool: NewBaseTool(r, logger)}
}

// Name returns the tool name
func (t *ServiceMetricsTool) Name() string {
	return "get_service_metrics"
}

// Annotations returns tool hints for LLMs
func (t *ServiceMetricsTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Service Metrics")
}

// Description returns the tool description
func (t *ServiceMetricsTool) Description() string {
	return `Get metrics for specific services (CPU, memory, response time, error rate).

Returns transaction count, errors, error rate and avg/p95/p99 durations in milliseconds from traces,
plus average CPU and memory utilization in percent from metrics. Sections with no data are omitted.`
}

// InputSchema returns the input schema
func (t *ServiceMetricsTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"service_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the service to analyze (OTEL service.name)",
				"minLength":   1,
			},
			"time_range": timeRangeProperty(),
		},
		"required": []string{"service_name"},
	}
}

// Run executes the tool
func (t *ServiceMetricsTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	service, err := GetStringParam(arguments, "service_name", true)
	if err != nil {
		return nil, err
	}
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	return t.reports.ServiceMetrics(ctx, service, timeRange), nil
}
