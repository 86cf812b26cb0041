// Package config provides configuration for the analytics service, loaded
// from defaults, an optional YAML file, and environment variables — in that
// order, later sources winning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	EnableCORS      bool          `yaml:"enable_cors"`
}

// SignalLogConfig holds the durable signal log settings.
type SignalLogConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Path            string `yaml:"path"`
	ReplayOnStartup bool   `yaml:"replay_on_startup"`
}

// QueryConfig holds analytic query settings.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Config holds all application configuration.
type Config struct {
	Environment Environment     `yaml:"environment"`
	LogLevel    string          `yaml:"log_level"`
	Server      ServerConfig    `yaml:"server"`
	SignalLog   SignalLogConfig `yaml:"signal_log"`
	Query       QueryConfig     `yaml:"query"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Server: ServerConfig{
			Address:         ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableCORS:      true,
		},
		SignalLog: SignalLogConfig{
			Enabled:         true,
			Path:            "tripmind-signals.db",
			ReplayOnStartup: true,
		},
		Query: QueryConfig{
			DefaultLimit: 10,
			MaxLimit:     500,
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "tripmind",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by CONFIG_FILE (if set and present), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = Environment(getEnv("ENVIRONMENT", string(c.Environment)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Server.EnableCORS = getEnvBool("ENABLE_CORS", c.Server.EnableCORS)
	c.SignalLog.Enabled = getEnvBool("SIGNAL_LOG_ENABLED", c.SignalLog.Enabled)
	c.SignalLog.Path = getEnv("SIGNAL_LOG_PATH", c.SignalLog.Path)
	c.SignalLog.ReplayOnStartup = getEnvBool("SIGNAL_LOG_REPLAY", c.SignalLog.ReplayOnStartup)
	c.Query.DefaultLimit = getEnvInt("QUERY_DEFAULT_LIMIT", c.Query.DefaultLimit)
	c.Query.MaxLimit = getEnvInt("QUERY_MAX_LIMIT", c.Query.MaxLimit)
	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("TRACING_ENDPOINT", c.Tracing.Endpoint)
	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query default limit must be positive")
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("query max limit cannot be below the default limit")
	}
	if c.SignalLog.Enabled && c.SignalLog.Path == "" {
		return fmt.Errorf("signal log enabled but no path configured")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing enabled but no endpoint configured")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
