// Package cmd implements the elastic-otel-mcp command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/server"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tracing"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	BuiltBy string
}

const usageText = `Usage: elastic-otel-mcp <elastic-endpoint> <api-key>

Alternatively set ELASTIC_ENDPOINT and ELASTIC_API_KEY in the environment
or in a .env file in the working directory.
`

// flag name -> viper key
var boundFlags = map[string]string{
	"config":           "config",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"auth-mode":        "auth_mode",
	"health-port":      "health_port",
	"metrics-endpoint": "metrics_endpoint",
	"enable-tracing":   "enable_tracing",
}

// NewRootCommand builds the root command and its subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "elastic-otel-mcp [elastic-endpoint] [api-key]",
		Short: "MCP server for diagnosing applications from Elastic OpenTelemetry data",
		Long: `An MCP server speaking stdio that answers diagnostic questions about
applications instrumented with OpenTelemetry and stored in Elastic: health,
errors, slow operations, resource utilization, service dependencies and
code-level recommendations. Every answer is built from ES|QL queries.`,
		Version:       info.Version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, v, args, info)
		},
	}

	registerFlags(root.PersistentFlags())
	bindFlags(v, root.PersistentFlags())

	root.AddCommand(newToolsCommand())

	return root
}

func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a JSON or YAML config file (overrides CONFIG_FILE)")
	fs.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	fs.String("log-format", "", "Log format: json or console (overrides LOG_FORMAT)")
	fs.String("auth-mode", "", "Authorization scheme: apikey, bearer, basic (overrides ELASTIC_AUTH_MODE)")
	fs.Int("health-port", 0, "Port for the health HTTP server, 0 disables it (overrides ELASTIC_HEALTH_PORT)")
	fs.Bool("metrics-endpoint", false, "Serve Prometheus metrics on the health server")
	fs.Bool("enable-tracing", false, "Export OpenTelemetry spans to stderr")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for name, key := range boundFlags {
		_ = v.BindPFlag(key, fs.Lookup(name))
	}
}

// Execute runs the root command. Errors are printed to stderr.
func Execute(info BuildInfo) error {
	root := NewRootCommand(info)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// loadConfig layers defaults, the config file, the environment, flags and
// positional credentials, then validates the result.
func loadConfig(v *viper.Viper, args []string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyFlags(v)

	if err := cfg.ApplyArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, v *viper.Viper, args []string, info BuildInfo) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := loadConfig(v, args)
	if errors.Is(err, config.ErrMissingCredentials) {
		fmt.Fprint(cmd.ErrOrStderr(), usageText)
		return err
	}
	if err != nil {
		return err
	}

	logger, level, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting Elastic OTEL MCP server",
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.String("built_by", info.BuiltBy),
		zap.String("endpoint", security.MaskURL(cfg.Endpoint)),
	)

	shutdownTracing, err := tracing.InitOTel(tracing.OTelConfig{
		ServiceName:    server.ServerName,
		ServiceVersion: info.Version,
		Environment:    os.Getenv("ENVIRONMENT"),
		Enabled:        cfg.EnableTracing,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	mcpServer, err := server.New(cfg, logger, info.Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.File != "" {
		go func() {
			err := config.Watch(ctx, cfg.File, logger, func(next *config.Config) {
				reloadLogLevel(level, logger, next)
			})
			if err != nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- mcpServer.Start(ctx)
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal, initiating graceful shutdown",
		zap.Duration("timeout", cfg.ShutdownTimeout))

	timer := time.NewTimer(cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-serverDone:
		logger.Info("Server shutdown complete")
	case <-timer.C:
		logger.Warn("Shutdown timeout exceeded, forcing exit",
			zap.Duration("timeout", cfg.ShutdownTimeout))
	}
	return nil
}
