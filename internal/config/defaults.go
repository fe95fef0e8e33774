// Package config provides configuration loading, defaults, and validation for
// the NLP inference service.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8000
	DefaultServerMode = "release"

	DefaultRedisHost       = "redis-db"
	DefaultRedisPort       = 6379
	DefaultRedisMaxRetries = 2

	DefaultHistoryLimit    = 1000
	DefaultHistoryKey      = "api_logs"
	DefaultHistoryPageSize = 10

	DefaultAPIKey     = "dev-secret-key"
	DefaultAuthHeader = "X-API-Key"

	DefaultBackendURL       = "https://api-inference.huggingface.co"
	DefaultSentimentModel   = "distilbert-base-uncased-finetuned-sst-2-english"
	DefaultTranslationModel = "Helsinki-NLP/opus-mt-en-fr"
	DefaultMaxConcurrency   = 4

	DefaultMaxTextLength = 1000

	DefaultSinkDriver   = "kafka"
	DefaultSinkUsername = "api"
	DefaultSinkTopic    = "nlp.inference.metrics"
	DefaultSinkSubject  = "nlp.inference.metrics"
	DefaultSinkProject  = "nlp-inference-service"
	DefaultSinkRunName  = "production-model-v1"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// defaultValues lists every key that has a non-zero default.  It seeds viper so
// that environment overrides resolve for every key and an explicit zero (for
// example HISTORY_LIMIT=0) survives to Validate instead of being replaced.
var defaultValues = map[string]interface{}{
	"server.port":             DefaultServerPort,
	"server.grpc_port":        0,
	"server.mode":             DefaultServerMode,
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    60 * time.Second,
	"server.max_body_size":    int64(1 << 20),
	"server.shutdown_timeout": 10 * time.Second,
	"server.cors_origins":     []string{},

	"redis.host":          DefaultRedisHost,
	"redis.port":          DefaultRedisPort,
	"redis.password":      "",
	"redis.db":            0,
	"redis.pool_size":     10,
	"redis.max_retries":   DefaultRedisMaxRetries,
	"redis.dial_timeout":  2 * time.Second,
	"redis.read_timeout":  time.Second,
	"redis.write_timeout": time.Second,

	"history.limit":          DefaultHistoryLimit,
	"history.key":            DefaultHistoryKey,
	"history.page_size":      DefaultHistoryPageSize,
	"history.append_timeout": 3 * time.Second,

	"auth.api_key": DefaultAPIKey,
	"auth.header":  DefaultAuthHeader,

	"models.backend_url":     DefaultBackendURL,
	"models.api_token":       "",
	"models.sentiment":       DefaultSentimentModel,
	"models.translation":     DefaultTranslationModel,
	"models.load_timeout":    2 * time.Minute,
	"models.infer_timeout":   30 * time.Second,
	"models.max_concurrency": DefaultMaxConcurrency,

	"validation.max_text_length": DefaultMaxTextLength,

	"metric_sink.driver":       DefaultSinkDriver,
	"metric_sink.api_key":      "",
	"metric_sink.username":     DefaultSinkUsername,
	"metric_sink.brokers":      []string{"localhost:9092"},
	"metric_sink.topic":        DefaultSinkTopic,
	"metric_sink.tls":          false,
	"metric_sink.create_topic": false,
	"metric_sink.nats_url":     "nats://localhost:4222",
	"metric_sink.subject":      DefaultSinkSubject,
	"metric_sink.project":      DefaultSinkProject,
	"metric_sink.run_name":     DefaultSinkRunName,
	"metric_sink.timeout":      3 * time.Second,

	"log.level":  DefaultLogLevel,
	"log.format": DefaultLogFormat,
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
//
// History.Limit is deliberately not defaulted here: a zero limit is invalid
// configuration and must reach Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = DefaultRedisHost
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = DefaultRedisPort
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── History ───────────────────────────────────────────────────────────────
	if cfg.History.Key == "" {
		cfg.History.Key = DefaultHistoryKey
	}
	if cfg.History.PageSize == 0 {
		cfg.History.PageSize = DefaultHistoryPageSize
	}
	if cfg.History.AppendTimeout <= 0 {
		cfg.History.AppendTimeout = 3 * time.Second
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = DefaultAuthHeader
	}

	// ── Models ────────────────────────────────────────────────────────────────
	if cfg.Models.BackendURL == "" {
		cfg.Models.BackendURL = DefaultBackendURL
	}
	if cfg.Models.Sentiment == "" {
		cfg.Models.Sentiment = DefaultSentimentModel
	}
	if cfg.Models.Translation == "" {
		cfg.Models.Translation = DefaultTranslationModel
	}
	if cfg.Models.LoadTimeout == 0 {
		cfg.Models.LoadTimeout = 2 * time.Minute
	}
	if cfg.Models.InferTimeout == 0 {
		cfg.Models.InferTimeout = 30 * time.Second
	}
	if cfg.Models.MaxConcurrency == 0 {
		cfg.Models.MaxConcurrency = DefaultMaxConcurrency
	}

	// ── Validation ────────────────────────────────────────────────────────────
	if cfg.Validation.MaxTextLength == 0 {
		cfg.Validation.MaxTextLength = DefaultMaxTextLength
	}

	// ── Metric sink ───────────────────────────────────────────────────────────
	if cfg.MetricSink.Driver == "" {
		cfg.MetricSink.Driver = DefaultSinkDriver
	}
	if cfg.MetricSink.Username == "" {
		cfg.MetricSink.Username = DefaultSinkUsername
	}
	if cfg.MetricSink.Topic == "" {
		cfg.MetricSink.Topic = DefaultSinkTopic
	}
	if cfg.MetricSink.Subject == "" {
		cfg.MetricSink.Subject = DefaultSinkSubject
	}
	if cfg.MetricSink.Project == "" {
		cfg.MetricSink.Project = DefaultSinkProject
	}
	if cfg.MetricSink.RunName == "" {
		cfg.MetricSink.RunName = DefaultSinkRunName
	}
	if cfg.MetricSink.Timeout == 0 {
		cfg.MetricSink.Timeout = 3 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
