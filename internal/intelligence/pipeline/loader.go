package pipeline

import (
	"context"

	"github.com/turtacn/nlp-inference-service/internal/intelligence/common"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// warmupText is sent once per model so the backend has it resident before
// the first real request.
const warmupText = "Hello world."

// Loader builds remote pipelines and warms each model on load.
type Loader struct {
	backend querier
	warmup  bool
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithoutWarmup skips the warm-up call in Load.
func WithoutWarmup() LoaderOption {
	return func(l *Loader) { l.warmup = false }
}

// NewLoader returns a Loader backed by b.
func NewLoader(b *Backend, opts ...LoaderOption) *Loader {
	l := &Loader{backend: b, warmup: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the pipeline for task.  With warm-up enabled, a failed
// warm-up call fails the load so the cache does not keep a broken model.
func (l *Loader) Load(ctx context.Context, task inference.Task, modelID string) (common.Pipeline, error) {
	var p common.Pipeline
	switch task {
	case inference.TaskSentiment:
		p = &sentimentPipeline{backend: l.backend, modelID: modelID}
	case inference.TaskTranslation:
		p = &translationPipeline{backend: l.backend, modelID: modelID}
	default:
		return nil, errors.New(errors.ErrCodeAIInputInvalid, "unsupported task").WithDetail("task=" + task.String())
	}
	if l.warmup {
		if _, err := p.Infer(ctx, warmupText); err != nil {
			return nil, err
		}
	}
	return p, nil
}

var _ common.Loader = (*Loader)(nil)

//Personal.AI order the ending
