package common

import (
	"context"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// DefaultMaxConcurrency is the number of inference calls allowed to run at
// once when RunnerConfig leaves it unset.
const DefaultMaxConcurrency = 4

// RunnerConfig holds Runner settings.
type RunnerConfig struct {
	// Models maps each task to the model identifier it is served by.
	Models map[inference.Task]string

	// MaxConcurrency bounds the inference calls in flight.
	MaxConcurrency int

	// InferTimeout bounds a single Infer call.  Zero means no bound beyond
	// the caller's context.
	InferTimeout time.Duration
}

// Runner resolves the pipeline for a task through the ModelCache and runs
// inference on a bounded worker pool.
type Runner struct {
	cache        *ModelCache
	loader       Loader
	models       map[inference.Task]string
	sem          *semaphore.Weighted
	inflight     atomic.Int64
	inferTimeout time.Duration
	metrics      Metrics
	logger       logging.Logger
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cache *ModelCache, loader Loader, cfg RunnerConfig, metrics Metrics, logger logging.Logger) (*Runner, error) {
	if cache == nil || loader == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "runner requires a model cache and a loader")
	}
	models := make(map[inference.Task]string, len(cfg.Models))
	for task, id := range cfg.Models {
		if !task.Valid() {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown task").WithDetail("task=" + task.String())
		}
		if id == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "model id must not be empty").WithDetail("task=" + task.String())
		}
		models[task] = id
	}
	n := cfg.MaxConcurrency
	if n <= 0 {
		n = DefaultMaxConcurrency
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{
		cache:        cache,
		loader:       loader,
		models:       models,
		sem:          semaphore.NewWeighted(int64(n)),
		inferTimeout: cfg.InferTimeout,
		metrics:      metrics,
		logger:       logger.Named("runner"),
	}, nil
}

// ModelFor returns the model configured for task.
func (r *Runner) ModelFor(task inference.Task) (string, bool) {
	id, ok := r.models[task]
	return id, ok
}

// Cache returns the underlying model cache.
func (r *Runner) Cache() *ModelCache { return r.cache }

// Warm loads the pipeline for every configured task.  The first error is
// returned; remaining tasks are still attempted.
func (r *Runner) Warm(ctx context.Context) error {
	var first error
	for task := range r.models {
		if _, err := r.pipeline(ctx, task); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) pipeline(ctx context.Context, task inference.Task) (Pipeline, error) {
	modelID, ok := r.models[task]
	if !ok {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "no model configured for task").
			WithDetail("task=" + task.String())
	}
	return r.cache.GetOrLoad(ctx, task.Pipeline(), func(loadCtx context.Context) (Pipeline, error) {
		return r.loader.Load(loadCtx, task, modelID)
	})
}

// Run executes task on text.  It waits for a worker slot, resolves the
// pipeline (loading it on first use) and calls Infer.
func (r *Runner) Run(ctx context.Context, task inference.Task, text string) (Output, error) {
	if !task.Valid() {
		return Output{}, errors.New(errors.ErrCodeAIInputInvalid, "unknown task").WithDetail("task=" + task.String())
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Output{}, errors.Wrap(err, errors.ErrCodeAIResourceExhausted, "no inference worker available")
	}
	r.metrics.SetInflight(int(r.inflight.Add(1)))
	defer func() {
		r.metrics.SetInflight(int(r.inflight.Add(-1)))
		r.sem.Release(1)
	}()

	p, err := r.pipeline(ctx, task)
	if err != nil {
		return Output{}, err
	}

	inferCtx := ctx
	if r.inferTimeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, r.inferTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.Infer(inferCtx, text)
	elapsed := time.Since(start)
	r.metrics.RecordInference(ctx, &InferenceMetricParams{
		ModelName:  p.ModelID(),
		TaskType:   task.String(),
		DurationMs: float64(elapsed.Milliseconds()),
		Success:    err == nil,
		InputChars: utf8.RuneCountInString(text),
	})
	if err != nil {
		r.logger.WithContext(ctx).Error("inference failed",
			logging.String(logging.FieldTask, task.String()),
			logging.String(logging.FieldModel, p.ModelID()),
			logging.Err(err),
		)
		code := errors.GetCode(err)
		if code == errors.CodeUnknown {
			code = errors.ErrCodeAIInferenceFailed
		}
		return Output{}, errors.Wrap(err, code, "inference failed").WithDetail("task=" + task.String())
	}
	logging.LogOperationDuration(r.logger.WithContext(ctx), "inference", start,
		logging.String(logging.FieldTask, task.String()),
		logging.String(logging.FieldModel, p.ModelID()),
	)
	return out, nil
}

//Personal.AI order the ending
