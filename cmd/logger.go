package cmd

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
)

// newLogger builds a stderr logger. stdout is reserved for the MCP protocol.
// The returned level can be changed while the logger is in use.
func newLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
		return nil, level, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if strings.EqualFold(cfg.LogFormat, "console") {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, level, err
	}
	return logger, level, nil
}

// reloadLogLevel applies the log level of a reloaded config. Other settings
// need a restart.
func reloadLogLevel(level zap.AtomicLevel, logger *zap.Logger, next *config.Config) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(next.LogLevel))); err != nil {
		logger.Warn("Ignoring invalid log level from reloaded config",
			zap.String("log_level", next.LogLevel))
		return
	}
	if parsed == level.Level() {
		return
	}

	previous := level.Level()
	level.SetLevel(parsed)
	logger.Info("Log level changed",
		zap.Stringer("from", previous),
		zap.Stringer("to", parsed),
	)
}
