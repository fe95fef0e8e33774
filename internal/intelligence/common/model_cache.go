package common

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

// DefaultLoadTimeout bounds a single loader execution.
const DefaultLoadTimeout = 5 * time.Minute

type cacheEntry struct {
	pipeline Pipeline
	loadedAt time.Time
}

// ModelCache is a process-wide map from key to loaded Pipeline.  Each key is
// loaded at most once; concurrent first callers share one loader execution.
// A successful load is never replaced.  A failed load is not cached, so the
// next caller retries.
type ModelCache struct {
	mu          sync.RWMutex
	entries     map[string]*cacheEntry
	group       singleflight.Group
	loadTimeout time.Duration
	metrics     Metrics
	logger      logging.Logger
}

// ModelCacheOption customises a ModelCache.
type ModelCacheOption func(*ModelCache)

// WithLoadTimeout bounds each loader execution.
func WithLoadTimeout(d time.Duration) ModelCacheOption {
	return func(c *ModelCache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithCacheMetrics attaches hit/miss and load metrics.
func WithCacheMetrics(m Metrics) ModelCacheOption {
	return func(c *ModelCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewModelCache returns an empty cache.
func NewModelCache(logger logging.Logger, opts ...ModelCacheOption) *ModelCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &ModelCache{
		entries:     make(map[string]*cacheEntry),
		loadTimeout: DefaultLoadTimeout,
		metrics:     NewNoopMetrics(),
		logger:      logger.Named("model-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ModelCache) get(key string) (Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.pipeline, true
}

// GetOrLoad returns the Pipeline for key, running load if it is absent.
//
// The loader runs on its own goroutine with a context detached from the
// caller's cancellation and bounded by the load timeout.  A caller whose ctx
// ends while waiting gets a timeout error; the load itself continues and its
// result is cached for the next caller.
func (c *ModelCache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (Pipeline, error) {
	if p, ok := c.get(key); ok {
		c.metrics.RecordCacheAccess(ctx, true, key)
		return p, nil
	}
	c.metrics.RecordCacheAccess(ctx, false, key)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		if p, ok := c.get(key); ok {
			return p, nil
		}
		return c.load(context.WithoutCancel(ctx), key, load)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Pipeline), nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "gave up waiting for model load").
			WithDetail("key=" + key)
	}
}

func (c *ModelCache) load(ctx context.Context, key string, load LoadFunc) (p Pipeline, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	log := c.logger.WithContext(ctx)
	log.Info("loading model", logging.String("key", key))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("model loader panicked: %v", r)
		}
		elapsed := time.Since(start)
		modelID := ""
		if p != nil {
			modelID = p.ModelID()
		}
		c.metrics.RecordModelLoad(ctx, key, modelID, float64(elapsed.Milliseconds()), err == nil)

		if err != nil {
			log.Error("model load failed",
				logging.String("key", key),
				logging.Duration("elapsed", elapsed),
				logging.Err(err),
			)
			err = errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "model not available").
				WithDetail("key=" + key)
			return
		}

		c.mu.Lock()
		if existing, ok := c.entries[key]; ok {
			p = existing.pipeline
		} else {
			c.entries[key] = &cacheEntry{pipeline: p, loadedAt: time.Now()}
		}
		c.mu.Unlock()
		log.Info("model loaded",
			logging.String("key", key),
			logging.String(logging.FieldModel, modelID),
			logging.Duration("elapsed", elapsed),
		)
	}()

	p, err = load(ctx)
	if err == nil && p == nil {
		err = fmt.Errorf("loader returned no pipeline")
	}
	return p, err
}

// Loaded reports whether key holds a loaded Pipeline.
func (c *ModelCache) Loaded(key string) bool {
	_, ok := c.get(key)
	return ok
}

// LoadedAt returns when key was loaded.
func (c *ModelCache) LoadedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.loadedAt, true
}

// Keys returns the loaded keys in sorted order.
func (c *ModelCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of loaded keys.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

//Personal.AI order the ending
