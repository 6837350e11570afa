// Package server wires the diagnostic tools, prompts and resources into an
// MCP server over stdio.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/audit"
	"github.com/tareqmamari/elastic-otel-mcp/internal/auth"
	"github.com/tareqmamari/elastic-otel-mcp/internal/client"
	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
	"github.com/tareqmamari/elastic-otel-mcp/internal/esql"
	"github.com/tareqmamari/elastic-otel-mcp/internal/health"
	"github.com/tareqmamari/elastic-otel-mcp/internal/metrics"
	"github.com/tareqmamari/elastic-otel-mcp/internal/prompts"
	"github.com/tareqmamari/elastic-otel-mcp/internal/recommend"
	"github.com/tareqmamari/elastic-otel-mcp/internal/reports"
	"github.com/tareqmamari/elastic-otel-mcp/internal/resources"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tools"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "elastic-otel-diagnostics"

// Server represents the MCP server
type Server struct {
	mcpServer    *mcp.Server
	apiClient    *client.Client
	config       *config.Config
	logger       *zap.Logger
	metrics      *metrics.Metrics
	audit        *audit.Logger
	checker      *health.Checker
	dispatcher   *tools.Dispatcher
	healthServer *health.Server
	version      string
}

// New creates a new MCP server instance.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	authenticator, err := auth.New(cfg.AuthMode, cfg.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	apiClient, err := client.New(cfg, authenticator, logger, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	metricsTracker := metrics.New(logger)
	auditLogger := audit.NewLogger(logger, cfg.EnableAuditLog, audit.DefaultCapacity)

	executor := esql.NewExecutor(apiClient, metricsTracker, logger)
	assembler := reports.NewAssembler(executor, logger)
	engine := recommend.NewEngine(assembler, logger)

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		}, &mcp.ServerOptions{
			HasTools:     true,
			HasPrompts:   true,
			HasResources: true,
		}),
		apiClient:  apiClient,
		config:     cfg,
		logger:     logger,
		metrics:    metricsTracker,
		audit:      auditLogger,
		checker:    health.New(executor, authenticator, logger),
		dispatcher: tools.NewDispatcher(tools.GetAllTools(assembler, engine, logger), metricsTracker, auditLogger, logger),
		version:    version,
	}

	if cfg.HealthPort > 0 {
		var gatherer prometheus.Gatherer
		if cfg.MetricsEndpoint {
			gatherer = metricsTracker.Registry()
		}
		s.healthServer = health.NewServer(s.checker, logger, cfg.HealthPort, cfg.HealthBindAddr, gatherer)
	}

	s.mcpServer.AddReceivingMiddleware(s.routeUnknownTools)
	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s, nil
}

func (s *Server) registerTools() {
	for _, t := range s.dispatcher.Tools() {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
			Annotations: t.Annotations(),
		}, s.toolHandler(t.Name()))
		s.logger.Debug("Registered tool", zap.String("tool", t.Name()))
	}

	s.logger.Info("Registered all MCP tools",
		zap.Int("count", len(s.dispatcher.Tools())),
		zap.Strings("tools", tools.ToolNames(s.dispatcher.Tools())),
	)
}

// toolHandler decodes raw arguments and hands the call to the dispatcher.
// Tool failures are reported inside the result, never as protocol errors.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]interface{}
		if request != nil && request.Params != nil && len(request.Params.Arguments) > 0 {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				s.metrics.RecordToolExecution(name, false, 0)
				return tools.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}
		return s.dispatcher.Call(ctx, name, args), nil
	}
}

// routeUnknownTools hands tools/call for unregistered names to the
// dispatcher, which answers with an {"error": "Unknown tool: ..."} result
// instead of a protocol error.
func (s *Server) routeUnknownTools(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		if method != "tools/call" {
			return next(ctx, method, req)
		}
		call, ok := req.(*mcp.CallToolRequest)
		if !ok || call.Params == nil || s.dispatcher.Has(call.Params.Name) {
			return next(ctx, method, req)
		}
		return s.toolHandler(call.Params.Name)(ctx, call)
	}
}

func (s *Server) registerPrompts() {
	registry := prompts.NewRegistry(s.logger)

	for _, p := range registry.GetPrompts() {
		s.mcpServer.AddPrompt(p.Prompt, p.Handler)
		s.logger.Debug("Registered prompt", zap.String("prompt", p.Prompt.Name))
	}

	s.logger.Info("Registered all MCP prompts", zap.Int("count", len(registry.GetPrompts())))
}

func (s *Server) registerResources() {
	registry := resources.NewRegistry(resources.Options{
		Config:  s.config,
		Metrics: s.metrics,
		Audit:   s.audit,
		Checker: s.checker,
		Catalog: tools.Catalog(s.dispatcher.Tools()),
		Version: s.version,
	}, s.logger)

	for _, r := range registry.GetResources() {
		s.mcpServer.AddResource(r.Resource, r.Handler)
		s.logger.Debug("Registered resource", zap.String("uri", r.Resource.URI))
	}

	s.logger.Info("Registered all MCP resources", zap.Int("count", len(registry.GetResources())))
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server",
		zap.String("endpoint", security.MaskURL(s.config.Endpoint)),
		zap.String("api_key", security.MaskAPIKey(s.config.APIKey)),
		zap.String("auth_mode", s.config.AuthMode),
	)

	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.logger.Error("Health server error", zap.Error(err))
			}
		}()
		s.healthServer.SetReady(true)
	}

	defer s.shutdown()

	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) shutdown() {
	s.metrics.LogStats()

	if s.healthServer != nil {
		s.healthServer.SetReady(false)
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.healthServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown health server", zap.Error(err))
		}
	}

	if err := s.apiClient.Close(); err != nil {
		s.logger.Error("Failed to close API client", zap.Error(err))
	}
}

// Dispatcher returns the tool dispatcher.
func (s *Server) Dispatcher() *tools.Dispatcher {
	return s.dispatcher
}

// GetMetrics returns the server's metrics tracker for external access
func (s *Server) GetMetrics() *metrics.Metrics {
	return s.metrics
}
