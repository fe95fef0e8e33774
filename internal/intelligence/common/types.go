package common

import (
	"context"

	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// ---------------------------------------------------------------------------
// Pipeline / Loader
// ---------------------------------------------------------------------------

// Output is the result of one inference call.  Labels is set for sentiment
// pipelines, Text for translation pipelines.
type Output struct {
	Labels []inference.SentimentLabel
	Text   string
}

// Pipeline is a loaded model ready to serve inference calls.  Implementations
// must be safe for concurrent use.
type Pipeline interface {
	ModelID() string
	Task() inference.Task
	Infer(ctx context.Context, text string) (Output, error)
}

// Loader builds a Pipeline for task backed by modelID.  Loading is expensive
// (seconds); callers go through ModelCache so it happens at most once.
type Loader interface {
	Load(ctx context.Context, task inference.Task, modelID string) (Pipeline, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, task inference.Task, modelID string) (Pipeline, error)

func (f LoaderFunc) Load(ctx context.Context, task inference.Task, modelID string) (Pipeline, error) {
	return f(ctx, task, modelID)
}

// LoadFunc loads the value for one cache key.
type LoadFunc func(ctx context.Context) (Pipeline, error)

//Personal.AI order the ending
