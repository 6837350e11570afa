package tools

import (
	"go.uber.org/zap"
)

// GetAllTools returns every diagnostic tool in catalog order.
func GetAllTools(r Reports, rec Recommender, logger *zap.Logger) []Tool {
	return []Tool{
		NewApplicationHealthTool(r, logger),
		NewServiceMetricsTool(r, logger),
		NewErrorAnalysisTool(r, logger),
		NewPerformanceIssuesTool(r, logger),
		NewResourceUtilizationTool(r, logger),
		NewTraceAnalysisTool(r, logger),
		NewCodeRecommendationsTool(rec, logger),
	}
}

// ToolNames returns the names of ts in order.
func ToolNames(ts []Tool) []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name())
	}
	return names
}
