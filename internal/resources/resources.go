// Package resources provides MCP resource handlers for the diagnostics server.
// Resources expose read-only data to MCP clients for context and status information.
package resources

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/audit"
	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
	"github.com/tareqmamari/elastic-otel-mcp/internal/health"
	"github.com/tareqmamari/elastic-otel-mcp/internal/metrics"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tools"
)

// recentAuditEntries is how many entries audit://recent returns.
const recentAuditEntries = 50

// Registry holds all registered resources and their handlers
type Registry struct {
	config  *config.Config
	metrics *metrics.Metrics
	audit   *audit.Logger
	checker *health.Checker
	catalog []tools.CatalogEntry
	logger  *zap.Logger
	version string
}

// Options carries what the resources read from.
type Options struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Audit   *audit.Logger
	Checker *health.Checker
	Catalog []tools.CatalogEntry
	Version string
}

// NewRegistry creates a new resource registry
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		config:  opts.Config,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		checker: opts.Checker,
		catalog: opts.Catalog,
		logger:  logger,
		version: opts.Version,
	}
}

// RegisteredResource represents a resource with its definition and handler
type RegisteredResource struct {
	Resource *mcp.Resource
	Handler  mcp.ResourceHandler
}

// GetResources returns all registered resources with their handlers
func (r *Registry) GetResources() []RegisteredResource {
	return []RegisteredResource{
		r.aboutResource(),
		r.configResource(),
		r.metricsResource(),
		r.toolsResource(),
		r.auditResource(),
		r.healthResource(),
	}
}

func jsonResource(uri, title, description string, build func(ctx context.Context) (interface{}, error), logger *zap.Logger) RegisteredResource {
	return RegisteredResource{
		Resource: &mcp.Resource{
			URI:         uri,
			Name:        uri,
			Title:       title,
			Description: description,
			MIMEType:    "application/json",
		},
		Handler: func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			data, err := build(ctx)
			if err != nil {
				return nil, err
			}

			content, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				logger.Error("Failed to marshal resource", zap.String("uri", uri), zap.Error(err))
				return nil, err
			}

			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{
						URI:      uri,
						MIMEType: "application/json",
						Text:     string(content),
					},
				},
			}, nil
		},
	}
}

func (r *Registry) aboutResource() RegisteredResource {
	return jsonResource("about://service", "About Elastic OTEL Diagnostics",
		"Service information, data sources, and capabilities",
		func(context.Context) (interface{}, error) {
			return map[string]interface{}{
				"service": map[string]interface{}{
					"name":        "Elastic OTEL Diagnostics",
					"description": "Application health, errors, performance, resources and service dependencies from OpenTelemetry data in Elastic",
				},
				"query_language": map[string]interface{}{
					"name":     "ES|QL",
					"endpoint": "POST /_query",
					"example":  "FROM traces-*\n| WHERE @timestamp >= NOW() - 15m\n| STATS COUNT(*) BY service.name",
				},
				"data_sources": map[string]string{
					"traces-*":  "transactions and spans: error rates, durations, service dependencies",
					"logs-*":    "log messages grouped by severity",
					"metrics-*": "host CPU and memory utilization",
				},
				"thresholds": map[string]interface{}{
					"error_rate": map[string]string{
						"healthy":  "< 5%",
						"degraded": "5% to 20%",
						"critical": ">= 20%",
					},
					"utilization": map[string]string{
						"warning":  "> 80%",
						"critical": "> 90%",
					},
				},
				"mcp_server": map[string]interface{}{
					"version":      r.version,
					"tool_count":   len(r.catalog),
					"capabilities": []string{"tools", "prompts", "resources"},
				},
			}, nil
		}, r.logger)
}

func (r *Registry) configResource() RegisteredResource {
	return jsonResource("config://current", "Server Configuration",
		"Current server configuration (credentials masked)",
		func(context.Context) (interface{}, error) {
			safe := r.config.Redact()
			safe.Endpoint = security.MaskURL(safe.Endpoint)
			return map[string]interface{}{
				"config":             safe,
				"server_version":     r.version,
				"api_key_configured": r.config.APIKey != "",
			}, nil
		}, r.logger)
}

func (r *Registry) metricsResource() RegisteredResource {
	return jsonResource("metrics://server", "Server Metrics",
		"Query counts, latency, backend errors, and tool usage statistics",
		func(context.Context) (interface{}, error) {
			stats := r.metrics.GetStats()
			data := map[string]interface{}{
				"queries": map[string]interface{}{
					"total":         stats.TotalQueries,
					"failed":        stats.FailedQueries,
					"rows_returned": stats.RowsReturned,
				},
				"latency": map[string]interface{}{
					"average_ms": stats.AverageLatency.Milliseconds(),
					"max_ms":     stats.MaxLatency.Milliseconds(),
				},
				"errors_by_status": stats.ErrorsByStatus,
				"tools": map[string]interface{}{
					"usage":  stats.ToolUsage,
					"errors": stats.ToolErrors,
				},
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}
			if r.audit != nil && r.audit.IsEnabled() {
				data["audit"] = r.audit.GetStats()
			}
			return data, nil
		}, r.logger)
}

func (r *Registry) toolsResource() RegisteredResource {
	return jsonResource("tools://catalog", "Tool Catalog",
		"Every diagnostic tool with its input schema",
		func(context.Context) (interface{}, error) {
			return map[string]interface{}{
				"tools": r.catalog,
				"count": len(r.catalog),
			}, nil
		}, r.logger)
}

func (r *Registry) auditResource() RegisteredResource {
	return jsonResource("audit://recent", "Recent Tool Calls",
		"The most recent tool calls, newest first",
		func(context.Context) (interface{}, error) {
			entries := []audit.Entry{}
			enabled := r.audit != nil && r.audit.IsEnabled()
			if enabled {
				entries = r.audit.GetRecentEntries(recentAuditEntries)
			}
			return map[string]interface{}{
				"enabled": enabled,
				"entries": entries,
			}, nil
		}, r.logger)
}

func (r *Registry) healthResource() RegisteredResource {
	return jsonResource("health://status", "Health Status",
		"Credential and ES|QL backend checks",
		func(ctx context.Context) (interface{}, error) {
			status, checks := r.checker.CheckAll(ctx)
			return health.Response{
				Status:    status,
				Timestamp: time.Now().UTC(),
				Checks:    checks,
			}, nil
		}, r.logger)
}
