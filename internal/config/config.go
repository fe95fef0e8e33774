// Package config defines all configuration structures for the NLP inference
// service.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP and gRPC server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"` // 0 disables the gRPC health server
	Mode            string        `mapstructure:"mode"`      // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"` // empty disables CORS
}

// RedisConfig holds connection parameters for the store backing the request log.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the host:port dial address.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// HistoryConfig controls the bounded request log.
type HistoryConfig struct {
	// Limit is the maximum number of records retained.  Must be positive.
	Limit int `mapstructure:"limit"`
	// Key is the list key the records live under.
	Key string `mapstructure:"key"`
	// PageSize is the number of records returned by GET /history.
	PageSize int `mapstructure:"page_size"`
	// AppendTimeout bounds one log write; it runs even after the client left.
	AppendTimeout time.Duration `mapstructure:"append_timeout"`
}

// AuthConfig holds the shared-secret gate parameters.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
	Header string `mapstructure:"header"`
}

// ModelsConfig holds the inference backend and model identifiers.
type ModelsConfig struct {
	BackendURL     string        `mapstructure:"backend_url"`
	APIToken       string        `mapstructure:"api_token"`
	Sentiment      string        `mapstructure:"sentiment"`
	Translation    string        `mapstructure:"translation"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	InferTimeout   time.Duration `mapstructure:"infer_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// ValidationConfig bounds request payloads.
type ValidationConfig struct {
	MaxTextLength int `mapstructure:"max_text_length"`
}

// MetricSinkConfig configures the optional experiment-tracking sink.  The sink
// is enabled only when APIKey is non-empty.
type MetricSinkConfig struct {
	Driver      string        `mapstructure:"driver"` // "kafka" | "nats"
	APIKey      string        `mapstructure:"api_key"`
	Username    string        `mapstructure:"username"` // SASL/PLAIN user paired with APIKey
	Brokers     []string      `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	TLS         bool          `mapstructure:"tls"`
	CreateTopic bool          `mapstructure:"create_topic"`
	NATSURL     string        `mapstructure:"nats_url"`
	Subject     string        `mapstructure:"subject"`
	Project     string        `mapstructure:"project"`
	RunName     string        `mapstructure:"run_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a sink credential is configured.
func (m MetricSinkConfig) Enabled() bool { return m.APIKey != "" }

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	History    HistoryConfig    `mapstructure:"history"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Models     ModelsConfig     `mapstructure:"models"`
	Validation ValidationConfig `mapstructure:"validation"`
	MetricSink MetricSinkConfig `mapstructure:"metric_sink"`
	Log        LogConfig        `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("config: server.grpc_port %d is out of range [0, 65535]", c.Server.GRPCPort)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Redis
	if c.Redis.Host == "" {
		return fmt.Errorf("config: redis.host is required")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("config: redis.port %d is out of range [1, 65535]", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// History
	if c.History.Limit <= 0 {
		return fmt.Errorf("config: history.limit must be a positive integer, got %d", c.History.Limit)
	}
	if c.History.Key == "" {
		return fmt.Errorf("config: history.key is required")
	}
	if c.History.PageSize < 1 {
		return fmt.Errorf("config: history.page_size must be ≥ 1, got %d", c.History.PageSize)
	}

	// Auth
	if c.Auth.APIKey == "" {
		return fmt.Errorf("config: auth.api_key is required")
	}

	// Models
	if c.Models.BackendURL == "" {
		return fmt.Errorf("config: models.backend_url is required")
	}
	if c.Models.Sentiment == "" || c.Models.Translation == "" {
		return fmt.Errorf("config: models.sentiment and models.translation are required")
	}
	if c.Models.MaxConcurrency < 1 {
		return fmt.Errorf("config: models.max_concurrency must be ≥ 1, got %d", c.Models.MaxConcurrency)
	}

	// Validation
	if c.Validation.MaxTextLength < 1 {
		return fmt.Errorf("config: validation.max_text_length must be ≥ 1, got %d", c.Validation.MaxTextLength)
	}

	// Metric sink, only checked when a credential is present.
	if c.MetricSink.Enabled() {
		switch c.MetricSink.Driver {
		case "kafka":
			if len(c.MetricSink.Brokers) == 0 {
				return fmt.Errorf("config: metric_sink.brokers must contain at least one broker address")
			}
			if c.MetricSink.Topic == "" {
				return fmt.Errorf("config: metric_sink.topic is required")
			}
		case "nats":
			if c.MetricSink.NATSURL == "" {
				return fmt.Errorf("config: metric_sink.nats_url is required")
			}
			if c.MetricSink.Subject == "" {
				return fmt.Errorf("config: metric_sink.subject is required")
			}
		default:
			return fmt.Errorf("config: metric_sink.driver %q is invalid; expected kafka|nats", c.MetricSink.Driver)
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
