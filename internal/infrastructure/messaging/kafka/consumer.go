package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables committed offsets.  Without it the consumer reads
	// partition 0 from StartOffset and never commits.
	GroupID       string
	StartOffset   string // "earliest" | "latest"
	FetchMinBytes int
	FetchMaxBytes int
	MaxWait       time.Duration
	Security      SecurityConfig
}

// Message is one consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// MessageHandler processes one message.  A returned error is logged and the
// message is still committed.
type MessageHandler func(ctx context.Context, msg *Message) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the metric topic.
type Consumer struct {
	reader   ReaderInterface
	config   ConsumerConfig
	logger   logging.Logger
	consumed atomic.Int64
	failed   atomic.Int64
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.FetchMinBytes == 0 {
		cfg.FetchMinBytes = 1
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 * 1024 * 1024
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}

	dialer, err := cfg.Security.dialer()
	if err != nil {
		return nil, err
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.FetchMinBytes,
		MaxBytes:    cfg.FetchMaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
		Dialer:      dialer,
	}
	if cfg.StartOffset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return &Consumer{
		reader: kafka.NewReader(readerCfg),
		config: cfg,
		logger: logger.Named("kafka-consumer"),
	}, nil
}

// Consume delivers messages to handler until ctx ends.  It returns nil on
// cancellation.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "handler required")
	}
	c.logger.Info("kafka consumer started",
		logging.String("topic", c.config.Topic),
		logging.String("group", c.config.GroupID))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		c.consumed.Add(1)

		msg := &Message{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
			Timestamp: m.Time,
		}
		if err := handler(ctx, msg); err != nil {
			c.failed.Add(1)
			c.logger.Warn("handler failed",
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}

		if c.config.GroupID != "" {
			if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				c.logger.Error("commit failed", logging.Err(err))
			}
		}
	}
}

// Counts returns the number of consumed and failed messages.
func (c *Consumer) Counts() (consumed, failed int64) {
	return c.consumed.Load(), c.failed.Load()
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "brokers required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "topic required")
	}
	return nil
}

//Personal.AI order the ending
