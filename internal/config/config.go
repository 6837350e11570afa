// Package config provides configuration management for the Elastic OTEL MCP server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
)

// Authentication modes for the Authorization header sent to the backend
const (
	AuthModeAPIKey = "apikey"
	AuthModeBearer = "bearer"
	AuthModeBasic  = "basic"
)

// ErrMissingCredentials is returned when neither the environment nor the
// command line provides the endpoint and API key.
var ErrMissingCredentials = errors.New("elastic endpoint and API key are required")

// Config holds all configuration for the MCP server
type Config struct {
	// Elastic backend
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Usually from env or CLI only
	AuthMode string `json:"auth_mode" yaml:"auth_mode"`

	// HTTP Client Configuration
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	RetryWaitMin    time.Duration `json:"retry_wait_min" yaml:"retry_wait_min"`
	RetryWaitMax    time.Duration `json:"retry_wait_max" yaml:"retry_wait_max"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout"`

	// Rate Limiting
	RateLimit       int  `json:"rate_limit" yaml:"rate_limit"`             // requests per second
	RateLimitBurst  int  `json:"rate_limit_burst" yaml:"rate_limit_burst"` // burst size
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`

	// Security
	TLSVerify bool `json:"tls_verify" yaml:"tls_verify"`

	// Observability
	EnableTracing   bool   `json:"enable_tracing" yaml:"enable_tracing"`
	EnableAuditLog  bool   `json:"enable_audit_log" yaml:"enable_audit_log"`
	MetricsEndpoint bool   `json:"metrics_endpoint" yaml:"metrics_endpoint"`
	HealthPort      int    `json:"health_port" yaml:"health_port"` // 0 disables the health server
	HealthBindAddr  string `json:"health_bind_addr" yaml:"health_bind_addr"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // json or console

	// File is the config file this configuration was read from, if any.
	File string `json:"-" yaml:"-"`
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	return &Config{
		AuthMode:        AuthModeAPIKey,
		Timeout:         30 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    1 * time.Second,
		RetryWaitMax:    30 * time.Second,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
		RateLimit:       50,
		RateLimitBurst:  10,
		EnableRateLimit: true,
		TLSVerify:       true,
		EnableTracing:   false,
		EnableAuditLog:  true,
		MetricsEndpoint: false,
		HealthPort:      0,
		HealthBindAddr:  "127.0.0.1",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load configuration from the config file (if any) and environment variables
func Load() (*Config, error) {
	cfg := Default()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.File = configFile
	}

	// Environment variables take precedence over the file
	loadFromEnv(cfg)

	return cfg, nil
}

// LoadFile reads a config file on top of the defaults and the environment.
// Used by the watcher to rebuild a configuration after the file changes.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, err
	}
	loadFromEnv(cfg)
	cfg.File = path
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("ELASTIC_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("ELASTIC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ELASTIC_AUTH_MODE"); v != "" {
		cfg.AuthMode = strings.ToLower(v)
	}
	if v := os.Getenv("ELASTIC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("ELASTIC_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("ELASTIC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("ELASTIC_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit = n
		}
	}
	if v := os.Getenv("ELASTIC_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("ELASTIC_HEALTH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HealthPort = n
		}
	}
	if v := os.Getenv("ELASTIC_HEALTH_BIND_ADDR"); v != "" {
		cfg.HealthBindAddr = v
	}
	if v := os.Getenv("ELASTIC_ENABLE_RATE_LIMIT"); v != "" {
		cfg.EnableRateLimit = v == "true" || v == "1"
	}
	if v := os.Getenv("ELASTIC_TLS_VERIFY"); v != "" {
		cfg.TLSVerify = v == "true" || v == "1"
	}
	if v := os.Getenv("ELASTIC_ENABLE_TRACING"); v != "" {
		cfg.EnableTracing = v == "true" || v == "1"
	}
	if v := os.Getenv("ELASTIC_ENABLE_AUDIT_LOG"); v != "" {
		cfg.EnableAuditLog = v == "true" || v == "1"
	}
	if v := os.Getenv("ELASTIC_METRICS_ENDPOINT"); v != "" {
		cfg.MetricsEndpoint = v == "true" || v == "1"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// ApplyFlags overrides values with command line flags bound into v.
// Only flags the user actually set are applied.
func (c *Config) ApplyFlags(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		c.LogFormat = v.GetString("log_format")
	}
	if v.IsSet("auth_mode") {
		c.AuthMode = strings.ToLower(v.GetString("auth_mode"))
	}
	if v.IsSet("health_port") {
		c.HealthPort = v.GetInt("health_port")
	}
	if v.IsSet("metrics_endpoint") {
		c.MetricsEndpoint = v.GetBool("metrics_endpoint")
	}
	if v.IsSet("enable_tracing") {
		c.EnableTracing = v.GetBool("enable_tracing")
	}
}

// ApplyArgs fills the endpoint and API key from positional arguments when the
// environment did not provide both. Exactly two arguments are expected in
// that case: <elastic-endpoint> <api-key>.
func (c *Config) ApplyArgs(args []string) error {
	if c.Endpoint != "" && c.APIKey != "" {
		return nil
	}
	if len(args) != 2 {
		return ErrMissingCredentials
	}
	c.Endpoint = args[0]
	c.APIKey = args[1]
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("ELASTIC_ENDPOINT is required")
	}
	if c.APIKey == "" {
		return errors.New("ELASTIC_API_KEY is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http(s) URL: %s", c.Endpoint)
	}
	switch c.AuthMode {
	case AuthModeAPIKey, AuthModeBearer, AuthModeBasic:
	default:
		return fmt.Errorf("invalid auth mode: %s", c.AuthMode)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if c.RateLimit <= 0 && c.EnableRateLimit {
		return errors.New("rate_limit must be positive when rate limiting is enabled")
	}
	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.HealthPort)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Redact returns a copy of the config with sensitive data removed
func (c *Config) Redact() *Config {
	redacted := *c
	if redacted.APIKey != "" {
		if len(redacted.APIKey) > 8 {
			redacted.APIKey = security.MaskAPIKey(redacted.APIKey)
		} else {
			redacted.APIKey = "***REDACTED***"
		}
	}
	return &redacted
}
