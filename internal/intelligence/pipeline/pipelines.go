package pipeline

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/turtacn/nlp-inference-service/internal/intelligence/common"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// querier is the part of Backend the pipelines use.
type querier interface {
	Query(ctx context.Context, modelID, text string) ([]byte, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Sentiment
// ─────────────────────────────────────────────────────────────────────────────

type sentimentPipeline struct {
	backend querier
	modelID string
}

func (p *sentimentPipeline) ModelID() string      { return p.modelID }
func (p *sentimentPipeline) Task() inference.Task { return inference.TaskSentiment }

func (p *sentimentPipeline) Infer(ctx context.Context, text string) (common.Output, error) {
	body, err := p.backend.Query(ctx, p.modelID, text)
	if err != nil {
		return common.Output{}, err
	}
	labels, err := DecodeSentiment(body)
	if err != nil {
		return common.Output{}, err
	}
	return common.Output{Labels: labels}, nil
}

// DecodeSentiment parses a text-classification response.  Both the batched
// form [[{label,score},...]] and the flat form [{label,score},...] are
// accepted.  Labels are returned highest score first.
func DecodeSentiment(body []byte) ([]inference.SentimentLabel, error) {
	var labels []inference.SentimentLabel
	var nested [][]inference.SentimentLabel
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		labels = nested[0]
	} else if err := json.Unmarshal(body, &labels); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "unexpected sentiment response").
			WithDetail(truncate(body))
	}
	out := make([]inference.SentimentLabel, 0, len(labels))
	for _, l := range labels {
		if l.Label != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeAIInferenceFailed, "sentiment response carried no labels").
			WithDetail(truncate(body))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation
// ─────────────────────────────────────────────────────────────────────────────

type translationPipeline struct {
	backend querier
	modelID string
}

func (p *translationPipeline) ModelID() string      { return p.modelID }
func (p *translationPipeline) Task() inference.Task { return inference.TaskTranslation }

func (p *translationPipeline) Infer(ctx context.Context, text string) (common.Output, error) {
	body, err := p.backend.Query(ctx, p.modelID, text)
	if err != nil {
		return common.Output{}, err
	}
	translated, err := DecodeTranslation(body)
	if err != nil {
		return common.Output{}, err
	}
	return common.Output{Text: translated}, nil
}

type translationItem struct {
	TranslationText *string `json:"translation_text"`
	Translation     *string `json:"translation"`
}

// DecodeTranslation parses a translation response.  The first item's
// translation_text is used, falling back to translation.
func DecodeTranslation(body []byte) (string, error) {
	var items []translationItem
	if err := json.Unmarshal(body, &items); err != nil {
		var single translationItem
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return "", errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "unexpected translation response").
				WithDetail(truncate(body))
		}
		items = []translationItem{single}
	}
	if len(items) > 0 {
		if t := items[0].TranslationText; t != nil {
			return *t, nil
		}
		if t := items[0].Translation; t != nil {
			return *t, nil
		}
	}
	return "", errors.New(errors.ErrCodeAIInferenceFailed, "translation response carried no text").
		WithDetail(truncate(body))
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

//Personal.AI order the ending
