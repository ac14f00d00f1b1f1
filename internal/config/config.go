package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cofipei/internal/log"
)

type Config struct {
	// HTTP Server
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Charts
	ChartWidth        int           `mapstructure:"chart_width"`
	ChartHeight       int           `mapstructure:"chart_height"`
	RenderConcurrency int           `mapstructure:"render_concurrency"`
	ChartCacheSize    int           `mapstructure:"chart_cache_size"`
	ChartCacheTTL     time.Duration `mapstructure:"chart_cache_ttl"`
	StrictTypes       bool          `mapstructure:"strict_types"`

	// Rate limiting
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`

	// Report log (SQLite), disabled when empty
	ReportDBPath string `mapstructure:"report_db_path"`

	// AMQP events, disabled when URL is empty
	AMQPURL        string `mapstructure:"amqp_url"`
	AMQPExchange   string `mapstructure:"amqp_exchange"`
	AMQPRoutingKey string `mapstructure:"amqp_routing_key"`

	// gRPC health endpoint, disabled when empty
	GRPCHealthAddr string `mapstructure:"grpc_health_addr"`
}

var defaults = map[string]any{
	"port":                  "8000",
	"read_timeout":          "10s",
	"write_timeout":         "30s",
	"idle_timeout":          "60s",
	"shutdown_timeout":      "30s",
	"max_body_bytes":        1 << 20,
	"log_level":             "info",
	"log_format":            "text",
	"chart_width":           600,
	"chart_height":          600,
	"render_concurrency":    1,
	"chart_cache_size":      64,
	"chart_cache_ttl":       "10m",
	"strict_types":          false,
	"rate_limit_per_minute": 60,
	"report_db_path":        "",
	"amqp_url":              "",
	"amqp_exchange":         "cofipei",
	"amqp_routing_key":      "chart.generated",
	"grpc_health_addr":      "",
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. Environment keys are the
// upper-cased field keys (PORT, CHART_WIDTH, ...).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate timeouts
	for name, d := range map[string]time.Duration{
		"read timeout":     c.ReadTimeout,
		"write timeout":    c.WriteTimeout,
		"idle timeout":     c.IdleTimeout,
		"shutdown timeout": c.ShutdownTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be positive", name, d))
		}
	}

	if c.MaxBodyBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max body bytes %d: must be at least 1024", c.MaxBodyBytes))
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate chart dimensions
	if c.ChartWidth < 200 || c.ChartWidth > 4000 {
		errors = append(errors, fmt.Sprintf("invalid chart width %d: must be between 200 and 4000", c.ChartWidth))
	}
	if c.ChartHeight < 200 || c.ChartHeight > 4000 {
		errors = append(errors, fmt.Sprintf("invalid chart height %d: must be between 200 and 4000", c.ChartHeight))
	}
	if c.RenderConcurrency < 1 || c.RenderConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid render concurrency %d: must be between 1 and 64", c.RenderConcurrency))
	}
	if c.ChartCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must not be negative", c.ChartCacheSize))
	}
	if c.ChartCacheSize > 0 && c.ChartCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid chart cache TTL %v: must be at least 1 second", c.ChartCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate report log path
	if c.ReportDBPath != "" {
		dir := filepath.Dir(c.ReportDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create report database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	// Validate gRPC health address
	if c.GRPCHealthAddr != "" {
		if _, _, err := net.SplitHostPort(c.GRPCHealthAddr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid gRPC health address '%s': %v", c.GRPCHealthAddr, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
