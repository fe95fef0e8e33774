package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

const (
	// DefaultKey is the list key records are stored under.
	DefaultKey = "api_logs"
	// DefaultAppendTimeout bounds one append once the request has finished.
	DefaultAppendTimeout = 3 * time.Second
)

// Store is the bounded request log.  It holds at most Limit records,
// newest first.  Writes are best-effort: a failing backend degrades the log
// but never the request that produced the record.
type Store struct {
	backend ListBackend
	key     string
	limit   int64
	logger  logging.Logger
	metrics Metrics
	now     func() time.Time
	timeout time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the list key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithMetrics attaches outcome metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAppendTimeout bounds each append.  Non-positive values are ignored.
func WithAppendTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStore builds a Store holding at most limit records.  A non-positive
// limit is rejected with ErrCodeInvalidConfig.
func NewStore(backend ListBackend, limit int, logger logging.Logger, opts ...Option) (*Store, error) {
	if limit <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "history limit must be a positive integer")
	}
	if backend == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "history backend is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		limit:   int64(limit),
		logger:  logger,
		metrics: noopMetrics{},
		now:     time.Now,
		timeout: DefaultAppendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Limit returns the capacity.
func (s *Store) Limit() int { return int(s.limit) }

// Key returns the list key.
func (s *Store) Key() string { return s.key }

// Record stamps a new LogRecord with the store clock and appends it.
func (s *Store) Record(ctx context.Context, task inference.Task, input, result string) {
	s.Append(ctx, inference.NewLogRecord(s.now(), task, input, result))
}

// Append pushes rec to the head of the log and trims it to capacity.  It
// never fails: errors are logged and counted, and the record is dropped.
// The write outlives a cancelled caller, bounded by the append timeout.
func (s *Store) Append(ctx context.Context, rec inference.LogRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	payload, err := json.Marshal(rec)
	if err != nil {
		s.metrics.ObserveAppend(false)
		s.logger.Error("history: failed to serialize record",
			logging.String(logging.FieldTask, rec.Task.String()),
			logging.Err(err),
		)
		return
	}

	if err := s.backend.PushFrontTrim(ctx, s.key, string(payload), s.limit); err != nil {
		s.metrics.ObserveAppend(false)
		s.logger.WithContext(ctx).WithError(err).Error("history: failed to append record",
			logging.String("key", s.key),
			logging.String(logging.FieldTask, rec.Task.String()),
		)
		return
	}
	s.metrics.ObserveAppend(true)
}

// Recent returns up to n records, newest first.  A read failure is returned
// as an *errors.AppError with ErrCodeServiceUnavailable so callers can tell
// an unreachable store from an empty one.  Entries that do not decode are
// skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]inference.LogRecord, error) {
	if n <= 0 {
		return []inference.LogRecord{}, nil
	}
	if int64(n) > s.limit {
		n = int(s.limit)
	}

	raw, err := s.backend.ReadRange(ctx, s.key, 0, int64(n-1))
	if err != nil {
		s.metrics.ObserveRead(false, 0)
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "history store unavailable")
	}

	out := make([]inference.LogRecord, 0, len(raw))
	for i, entry := range raw {
		var rec inference.LogRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			s.metrics.IncCorruptEntries()
			s.logger.Warn("history: skipping undecodable entry",
				logging.String("key", s.key),
				logging.Int("index", i),
				logging.Err(err),
			)
			continue
		}
		out = append(out, rec)
	}
	s.metrics.ObserveRead(true, len(out))
	return out, nil
}

// Trim re-applies the capacity bound.  It is idempotent.
func (s *Store) Trim(ctx context.Context) error {
	if err := s.backend.Trim(ctx, s.key, s.limit); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "history store unavailable")
	}
	return nil
}

// Ping reports whether the backend is reachable.  Errors are folded into
// false; the cause is logged at debug level.
func (s *Store) Ping(ctx context.Context) bool {
	ok, err := s.backend.Ping(ctx)
	if err != nil {
		s.logger.Debug("history: backend ping failed", logging.Err(err))
		return false
	}
	return ok
}

//Personal.AI order the ending
