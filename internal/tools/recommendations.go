package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/recommend"
)

// CodeRecommendationsTool turns diagnostic findings into prioritized suggestions.
type CodeRecommendationsTool struct {
	recommender Recommender
	logger      *zap.Logger
}

// NewCodeRecommendationsTool creates a new tool instance
func NewCodeRecommendationsTool(rec Recommender, logger *zap.Logger) *CodeRecommendationsTool {
	return &CodeRecommendationsTool{recommender: rec, logger: logger}
}

// Name returns the tool name
func (t *CodeRecommendationsTool) Name() string {
	return "get_code_recommendations"
}

// Annotations returns tool hints for LLMs
func (t *CodeRecommendationsTool) Annotations() *mcp.ToolAnnotations {
	return DiagnosticAnnotations("Code Recommendations")
}

// Description returns the tool description
func (t *CodeRecommendationsTool) Description() string {
	return `Get specific code recommendations based on OTEL data analysis.

- performance: operations averaging above 500ms (high priority above 2s)
- errors: the 5 most frequent ERROR messages
- resources: hosts above 90% CPU or memory
- traces: no recommendations yet

**Related tools:** get_performance_issues, get_error_analysis, get_resource_utilization`
}

// InputSchema returns the input schema
func (t *CodeRecommendationsTool) InputSchema() interface{} {
	types := make([]string, 0, len(recommend.AnalysisTypes))
	for _, at := range recommend.AnalysisTypes {
		types = append(types, string(at))
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"analysis_type": map[string]interface{}{
				"type":        "string",
				"description": "Type of analysis (performance, errors, resources, traces)",
				"enum":        types,
			},
			"time_range": timeRangeProperty(),
		},
		"required": []string{"analysis_type"},
	}
}

// Run executes the tool
func (t *CodeRecommendationsTool) Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error) {
	raw, err := GetStringParam(arguments, "analysis_type", true)
	if err != nil {
		return nil, err
	}
	analysisType, err := recommend.ParseAnalysisType(raw)
	if err != nil {
		return nil, err
	}
	timeRange, err := timeRangeArg(arguments)
	if err != nil {
		return nil, err
	}
	return t.recommender.Recommend(ctx, analysisType, timeRange)
}
