package messaging

import (
	"context"
	"strings"

	"github.com/turtacn/nlp-inference-service/internal/config"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging/nats"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

// Sink drivers.
const (
	DriverNoop  = "noop"
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)

// Record is one metric row sent to the sink.
type Record map[string]any

// Publisher is the transport under a Sink.  Both the Kafka producer and the
// NATS publisher satisfy it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Sink emits metric records to an experiment-tracking backend.
type Sink interface {
	Emit(ctx context.Context, eventType string, rec Record) error
	Driver() string
	Close() error
}

// NewSink builds the sink described by cfg.  Without a credential the sink is
// a no-op and nothing is connected.
func NewSink(cfg config.MetricSinkConfig, logger logging.Logger) (Sink, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if !cfg.Enabled() {
		logger.Info("metric sink disabled, no credential configured")
		return NewNoopSink(), nil
	}

	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case DriverKafka:
		p, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Brokers,
			Topic:        cfg.Topic,
			Async:        true,
			WriteTimeout: cfg.Timeout,
			Security: kafka.SecurityConfig{
				SASLMechanism: "PLAIN",
				SASLUsername:  cfg.Username,
				SASLPassword:  cfg.APIKey,
				TLSEnabled:    cfg.TLS,
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewPublisherSink(DriverKafka, cfg.Project, p), nil
	case DriverNATS:
		p, err := nats.NewPublisher(nats.Config{
			URL:     cfg.NATSURL,
			Subject: cfg.Subject,
			Token:   cfg.APIKey,
			Name:    cfg.Project,
			Timeout: cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewPublisherSink(DriverNATS, cfg.Project, p), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported metric sink driver").WithDetail("driver=" + cfg.Driver)
	}
}

type noopSink struct{}

// NewNoopSink returns a sink that drops every record.
func NewNoopSink() Sink { return noopSink{} }

func (noopSink) Emit(context.Context, string, Record) error { return nil }
func (noopSink) Driver() string                             { return DriverNoop }
func (noopSink) Close() error                               { return nil }

// publisherSink wraps records in an Envelope and hands them to a Publisher.
type publisherSink struct {
	driver string
	source string
	pub    Publisher
}

// NewPublisherSink returns a Sink over pub.  source is stamped on envelopes.
func NewPublisherSink(driver, source string, pub Publisher) Sink {
	if source == "" {
		source = DefaultSource
	}
	return &publisherSink{driver: driver, source: source, pub: pub}
}

func (s *publisherSink) Emit(ctx context.Context, eventType string, rec Record) error {
	env, err := NewEnvelope(ctx, eventType, s.source, rec)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, []byte(env.EventID), data)
}

func (s *publisherSink) Driver() string { return s.driver }

func (s *publisherSink) Close() error { return s.pub.Close() }

//Personal.AI order the ending
