// Package config loads the adapter's configuration surface from
// environment variables and an optional file, following the precedence
// viper applies by default. No configuration option is read from
// command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the adapter's full configuration surface.
type Config struct {
	Port int `mapstructure:"port"`

	RedisURL string `mapstructure:"redis_url"`

	ScanLimit int `mapstructure:"scan_limit"`

	RateLimit  int `mapstructure:"rate_limit"`
	RateWindow int `mapstructure:"rate_window"`

	AllowScan bool `mapstructure:"allow_scan"`

	LogLevel string `mapstructure:"log_level"`

	// MetricsAddr serves /metrics, /healthz and /status, an ambient
	// observability surface alongside the MySQL wire listener.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// AdminAddr is the listen address for the gRPC health/status plane.
	AdminAddr string `mapstructure:"admin_addr"`

	// BackendTimeoutSeconds bounds every individual backing-store call.
	BackendTimeoutSeconds int `mapstructure:"backend_timeout_seconds"`

	// ConnRatePerSecond caps the rate of newly accepted TCP connections,
	// independent of the per-IP Redis-backed request limiter.
	ConnRatePerSecond float64 `mapstructure:"conn_rate_per_second"`

	// WorkerPoolSize bounds how many connections may be served concurrently.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

// Load reads configuration from the optional file at configPath, then
// environment variables (prefix MYSQLREDIS_), applying defaults for
// anything left unset.
func Load(configPath string) (*Config, error) {
	viper.SetDefault("port", 3306)
	viper.SetDefault("redis_url", "redis://127.0.0.1:6379")
	viper.SetDefault("scan_limit", 100)
	viper.SetDefault("rate_limit", 100)
	viper.SetDefault("rate_window", 60)
	viper.SetDefault("allow_scan", true)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("metrics_addr", ":7002")
	viper.SetDefault("admin_addr", ":7003")
	viper.SetDefault("backend_timeout_seconds", 3)
	viper.SetDefault("conn_rate_per_second", 200.0)
	viper.SetDefault("worker_pool_size", 256)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetEnvPrefix("MYSQLREDIS")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for internally-inconsistent values. A
// startup failure here is fatal.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: must be 1-65535")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}

	if c.ScanLimit < 0 {
		return fmt.Errorf("scan_limit must be >= 0")
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be > 0")
	}

	if c.RateWindow <= 0 {
		return fmt.Errorf("rate_window must be > 0")
	}

	if c.BackendTimeoutSeconds <= 0 {
		return fmt.Errorf("backend_timeout_seconds must be > 0")
	}

	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker_pool_size must be > 0")
	}

	if c.ConnRatePerSecond <= 0 {
		return fmt.Errorf("conn_rate_per_second must be > 0")
	}

	return nil
}
