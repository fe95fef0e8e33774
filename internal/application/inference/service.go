// Package inference orchestrates one inference request: input validation,
// model execution, the request log and the metric sink.
package inference

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/internal/intelligence/common"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

const (
	DefaultMaxTextLength = 1000
	DefaultPageSize      = 10
)

// Service is the use-case boundary the interfaces layer talks to.
type Service interface {
	AnalyzeSentiment(ctx context.Context, text string) (*inference.SentimentResponse, error)
	Translate(ctx context.Context, text string) (*inference.TranslationResponse, error)
	History(ctx context.Context) ([]inference.LogRecord, error)
	Health(ctx context.Context) inference.HealthResponse
}

// Runner executes a task on its model.  *common.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, task inference.Task, text string) (common.Output, error)
}

// HistoryStore is the request log.  *history.Store satisfies it.
type HistoryStore interface {
	Record(ctx context.Context, task inference.Task, input, result string)
	Recent(ctx context.Context, n int) ([]inference.LogRecord, error)
	Ping(ctx context.Context) bool
}

// MetricReporter emits per-request metrics.  *messaging.Reporter satisfies it.
type MetricReporter interface {
	Active() bool
	Log(ctx context.Context, rec messaging.Record)
}

// Config tunes the service.
type Config struct {
	MaxTextLength int
	PageSize      int
}

type service struct {
	runner   Runner
	history  HistoryStore
	reporter MetricReporter
	validate *validator.Validate
	cfg      Config
	logger   logging.Logger
}

// NewService wires the use cases.  runner and history are required; a nil
// reporter disables metric emission.
func NewService(runner Runner, history HistoryStore, reporter MetricReporter, cfg Config, logger logging.Logger) (Service, error) {
	if runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "inference runner is required")
	}
	if history == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "history store is required")
	}
	if reporter == nil {
		reporter = messaging.NewReporter(nil, logger)
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &service{
		runner:   runner,
		history:  history,
		reporter: reporter,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger.Named("inference-service"),
	}, nil
}

// validateText enforces 1..MaxTextLength runes.  Whitespace counts as text.
func (s *service) validateText(text string) error {
	if err := s.validate.Var(text, "required"); err != nil {
		return errors.New(errors.ErrCodeValidation, "text must not be empty").WithDetail("field=text")
	}
	if err := s.validate.Var(text, "max="+strconv.Itoa(s.cfg.MaxTextLength)); err != nil {
		return errors.New(errors.ErrCodeValidation, "text is too long").
			WithDetail("field=text max_runes=" + strconv.Itoa(s.cfg.MaxTextLength))
	}
	return nil
}

func (s *service) AnalyzeSentiment(ctx context.Context, text string) (*inference.SentimentResponse, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.runner.Run(ctx, inference.TaskSentiment, text)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("sentiment inference failed")
		return nil, err
	}

	resp := &inference.SentimentResponse{Result: out.Labels}
	s.history.Record(ctx, inference.TaskSentiment, text, resp.LogResult())

	top, hasTop := resp.Top()
	if hasTop {
		s.logger.WithContext(ctx).Debug("sentiment scored",
			logging.String("label", top.Label),
			logging.Float64("score", top.Score))
	}
	if s.reporter.Active() {
		rec := messaging.Record{
			"input_text":  text,
			"text_length": utf8.RuneCountInString(text),
			"latency_ms":  time.Since(start).Milliseconds(),
		}
		if hasTop {
			rec["prediction"] = top.Label
			rec["confidence"] = top.Score
		}
		s.reporter.Log(ctx, rec)
	}
	return resp, nil
}

func (s *service) Translate(ctx context.Context, text string) (*inference.TranslationResponse, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.runner.Run(ctx, inference.TaskTranslation, text)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("translation inference failed")
		return nil, err
	}

	resp := &inference.TranslationResponse{TranslatedText: out.Text}
	s.history.Record(ctx, inference.TaskTranslation, text, resp.TranslatedText)

	if s.reporter.Active() {
		s.reporter.Log(ctx, messaging.Record{
			"input_text":      text,
			"translated_text": resp.TranslatedText,
			"text_length":     utf8.RuneCountInString(text),
			"latency_ms":      time.Since(start).Milliseconds(),
		})
	}
	return resp, nil
}

// History returns the most recent page of the request log.
func (s *service) History(ctx context.Context) ([]inference.LogRecord, error) {
	return s.history.Recent(ctx, s.cfg.PageSize)
}

// Health never fails; an unreachable store only changes DBStatus.
func (s *service) Health(ctx context.Context) inference.HealthResponse {
	resp := inference.HealthResponse{
		Status:   inference.StatusOnline,
		DBStatus: inference.DBStatusUnavailable,
	}
	if s.reporter.Active() {
		resp.Status = inference.StatusOnlineMonitored
	}
	if s.history.Ping(ctx) {
		resp.DBStatus = inference.DBStatusConnected
	}
	return resp
}

//Personal.AI order the ending
