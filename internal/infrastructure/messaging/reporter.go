package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
)

// DefaultEmitTimeout bounds a single emission.
const DefaultEmitTimeout = 5 * time.Second

// EmitMetrics observes sink emissions.
type EmitMetrics interface {
	ObserveEmit(driver string, ok bool, d time.Duration)
}

// RunInfo describes the tracking run opened by Start.
type RunInfo struct {
	Project string
	RunName string
	Config  map[string]any
}

// Reporter is the failure boundary around a Sink.  Nothing it does returns an
// error to the caller or blocks a request beyond the emit timeout.
type Reporter struct {
	sink    Sink
	timeout time.Duration
	metrics EmitMetrics
	logger  logging.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithEmitTimeout overrides DefaultEmitTimeout.
func WithEmitTimeout(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithEmitMetrics attaches emission metrics.
func WithEmitMetrics(m EmitMetrics) ReporterOption {
	return func(r *Reporter) { r.metrics = m }
}

// NewReporter wraps sink.  A nil sink behaves like the no-op sink.
func NewReporter(sink Sink, logger logging.Logger, opts ...ReporterOption) *Reporter {
	if sink == nil {
		sink = NewNoopSink()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Reporter{
		sink:    sink,
		timeout: DefaultEmitTimeout,
		logger:  logger.Named("metric-sink"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active reports whether records go anywhere.
func (r *Reporter) Active() bool { return r.sink.Driver() != DriverNoop }

// Driver returns the underlying sink driver.
func (r *Reporter) Driver() string { return r.sink.Driver() }

// Start emits the run.started event.
func (r *Reporter) Start(ctx context.Context, run RunInfo) {
	if !r.Active() {
		return
	}
	r.emit(ctx, EventRunStarted, Record{
		"project":  run.Project,
		"run_name": run.RunName,
		"config":   run.Config,
	})
	r.logger.Info("metric sink run started",
		logging.String("driver", r.Driver()),
		logging.String("project", run.Project),
		logging.String("run_name", run.RunName))
}

// Log emits one inference record.
func (r *Reporter) Log(ctx context.Context, rec Record) {
	if !r.Active() {
		return
	}
	r.emit(ctx, EventInferenceLogged, rec)
}

func (r *Reporter) emit(ctx context.Context, eventType string, rec Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	err := r.safeEmit(ctx, eventType, rec)
	if r.metrics != nil {
		r.metrics.ObserveEmit(r.sink.Driver(), err == nil, time.Since(start))
	}
	if err != nil {
		r.logger.WithContext(ctx).Warn("metric sink emit failed",
			logging.String("event_type", eventType),
			logging.String("driver", r.sink.Driver()),
			logging.Err(err))
	}
}

func (r *Reporter) safeEmit(ctx context.Context, eventType string, rec Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("metric sink panicked: %v", p)
		}
	}()
	return r.sink.Emit(ctx, eventType, rec)
}

// Close flushes and closes the sink.
func (r *Reporter) Close() error {
	return r.sink.Close()
}

//Personal.AI order the ending
