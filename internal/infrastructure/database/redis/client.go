package redis

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeInternal, "redis client is closed")
	ErrInvalidLimit     = errors.New(errors.ErrCodeInvalidConfig, "list limit must be positive")
	ErrConnectionFailed = errors.New(errors.ErrCodeDatabaseError, "redis connection failed")
)

type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxIdleTime     time.Duration `mapstructure:"max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// Client wraps a go-redis client with the list operations the request log
// needs.  Connections are pooled by go-redis and dialed lazily, so a Client
// can be built while the server is down and starts working once it is up.
type Client struct {
	rdb    redis.UniversalClient
	config *RedisConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient builds a Client.  Unlike a strict connect, an unreachable server
// is only logged: the service runs degraded and /health reports it.
func NewClient(cfg *RedisConfig, log logging.Logger) (*Client, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "redis address is required")
	}
	applyDefaults(cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	})

	client := &Client{
		rdb:    rdb,
		config: cfg,
		logger: log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if ok, err := client.Ping(ctx); !ok {
		log.Warn("Redis unreachable at startup, request log degraded",
			logging.String("addr", cfg.Addr),
			logging.Err(err),
		)
	} else {
		log.Info("Redis client connected", logging.String("addr", cfg.Addr))
	}

	return client, nil
}

func applyDefaults(cfg *RedisConfig) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if cfg.MaxIdleTime == 0 {
		cfg.MaxIdleTime = 5 * time.Minute
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = 8 * time.Millisecond
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = 512 * time.Millisecond
	}
}

// Ping reports whether the server answered PONG.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	if c.isClosed() {
		return false, ErrClientClosed
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "redis ping failed")
	}
	return true, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

func (c *Client) GetUnderlyingClient() redis.UniversalClient {
	return c.rdb
}

func (c *Client) PoolStats() *redis.PoolStats {
	return c.rdb.PoolStats()
}

// ─────────────────────────────────────────────────────────────────────────────
// List commands
// ─────────────────────────────────────────────────────────────────────────────

// PushFrontTrim pushes value to the head of key and trims the list to its
// first limit entries inside one MULTI/EXEC block, so no reader observes the
// list above limit.
func (c *Client) PushFrontTrim(ctx context.Context, key, value string, limit int64) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	if c.isClosed() {
		return ErrClientClosed
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, limit-1)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "lpush/ltrim failed").WithDetail("key=" + key)
	}
	return nil
}

// Trim keeps the first limit entries of key.  Trimming a list that is
// already within limit leaves it unchanged.
func (c *Client) Trim(ctx context.Context, key string, limit int64) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	if c.isClosed() {
		return ErrClientClosed
	}
	if err := c.rdb.LTrim(ctx, key, 0, limit-1).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "ltrim failed").WithDetail("key=" + key)
	}
	return nil
}

// ReadRange returns the entries of key between start and stop inclusive.
// A missing key yields an empty slice.
func (c *Client) ReadRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "lrange failed").WithDetail("key=" + key)
	}
	return vals, nil
}

// Len returns the length of key.
func (c *Client) Len(ctx context.Context, key string) (int64, error) {
	if c.isClosed() {
		return 0, ErrClientClosed
	}
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "llen failed").WithDetail("key=" + key)
	}
	return n, nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

//Personal.AI order the ending
