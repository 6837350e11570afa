// Package prompts provides pre-built investigation prompts that chain the
// diagnostic tools.
package prompts

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// PromptDefinition represents a prompt with its metadata and handler
type PromptDefinition struct {
	// Prompt is the MCP prompt metadata
	Prompt *mcp.Prompt
	// Handler is the function that generates the prompt content
	Handler mcp.PromptHandler
}

// Registry holds all registered prompts
type Registry struct {
	logger  *zap.Logger
	prompts []*PromptDefinition
}

// NewRegistry creates a new prompt registry with all available prompts
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		logger: logger,
	}
	r.prompts = []*PromptDefinition{
		r.diagnoseApplicationPrompt(),
		r.investigateSlownessPrompt(),
		r.capacityReviewPrompt(),
	}
	return r
}

// GetPrompts returns all registered prompt definitions
func (r *Registry) GetPrompts() []*PromptDefinition {
	return r.prompts
}

// Helper to create a prompt result with user role
func createPromptResult(description, content string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: content,
				},
			},
		},
	}
}

// getStringArg safely extracts a string argument with a default value
func getStringArg(req *mcp.GetPromptRequest, key, defaultVal string) string {
	if req == nil || req.Params == nil {
		return defaultVal
	}
	if val, ok := req.Params.Arguments[key]; ok && val != "" {
		return val
	}
	return defaultVal
}

func timeRangeArgument() *mcp.PromptArgument {
	return &mcp.PromptArgument{
		Name:        "time_range",
		Description: "Time range to investigate (e.g., '15m', '1h', '1d')",
		Required:    false,
	}
}

func (r *Registry) diagnoseApplicationPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "diagnose_application",
			Title:       "Diagnose Application",
			Description: "Walk from overall health to the failing services and their top errors",
			Arguments:   []*mcp.PromptArgument{timeRangeArgument()},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			timeRange := getStringArg(req, "time_range", "15m")

			content := fmt.Sprintf(`Diagnose the application from its OpenTelemetry data over the last %[1]s.

1. Run get_application_health with time_range "%[1]s" and note overall_status and alerts.
2. For every service that is degraded or critical, run get_service_metrics with that service_name.
3. Run get_error_analysis with time_range "%[1]s" to find the dominant error messages.
4. Run get_code_recommendations with analysis_type "errors".

Summarize which services are failing, the likely root cause for each, and the fixes to try first.`, timeRange)

			return createPromptResult("Application diagnosis workflow", content), nil
		},
	}
}

func (r *Registry) investigateSlownessPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "investigate_slowness",
			Title:       "Investigate Slowness",
			Description: "Find slow operations and the downstream calls behind them",
			Arguments: []*mcp.PromptArgument{
				timeRangeArgument(),
				{
					Name:        "threshold_ms",
					Description: "Response time threshold in milliseconds (default 1000)",
					Required:    false,
				},
				{
					Name:        "service_name",
					Description: "Service to focus on",
					Required:    false,
				},
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			timeRange := getStringArg(req, "time_range", "15m")
			threshold := getStringArg(req, "threshold_ms", "1000")
			service := getStringArg(req, "service_name", "")

			traceStep := fmt.Sprintf(`Run get_trace_analysis with time_range "%s" to see which downstream services the slow operations call.`, timeRange)
			if service != "" {
				traceStep = fmt.Sprintf(`Run get_trace_analysis with time_range "%s" and service_name "%s" to see what %s calls.`, timeRange, service, service)
			}

			content := fmt.Sprintf(`Investigate slow requests over the last %s.

1. Run get_performance_issues with time_range "%s" and threshold_ms %s.
2. %s
3. Run get_code_recommendations with analysis_type "performance".

For each slow operation, say whether the time is spent in the service itself or in a dependency, and what to change.`,
				timeRange, timeRange, threshold, traceStep)

			return createPromptResult("Slowness investigation workflow", content), nil
		},
	}
}

func (r *Registry) capacityReviewPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "capacity_review",
			Title:       "Capacity Review",
			Description: "Review CPU and memory headroom across hosts",
			Arguments:   []*mcp.PromptArgument{timeRangeArgument()},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			timeRange := getStringArg(req, "time_range", "1h")

			content := fmt.Sprintf(`Review host capacity over the last %[1]s.

1. Run get_resource_utilization with time_range "%[1]s" and resource_type "cpu".
2. Run get_resource_utilization with time_range "%[1]s" and resource_type "memory".
3. Run get_code_recommendations with analysis_type "resources".

List hosts at warning (above 80%%) or critical (above 90%%) and recommend scaling or optimization for each.`, timeRange)

			return createPromptResult("Capacity review workflow", content), nil
		},
	}
}
