package nats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

var ErrPublisherClosed = errors.New(errors.ErrCodeServiceUnavailable, "publisher closed")

// Config holds configuration for the Publisher.
type Config struct {
	URL     string
	Subject string
	Token   string
	Name    string
	Timeout time.Duration
}

// Conn abstracts *nats.Conn for testing.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher publishes to one NATS subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  logging.Logger
	closed  atomic.Bool
	sent    atomic.Int64
}

// NewPublisher connects to cfg.URL.  Reconnects are handled by the client
// and logged.
func NewPublisher(cfg Config, logger logging.Logger) (*Publisher, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "nats url and subject are required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	log := logger.Named("nats-publisher")

	opts := []nats.Option{
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", logging.String("url", c.ConnectedUrl()))
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to connect to nats").
			WithDetail("url=" + cfg.URL)
	}
	return newPublisher(nc, cfg.Subject, log), nil
}

func newPublisher(conn Conn, subject string, logger logging.Logger) *Publisher {
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Publish sends value on the subject.  key, when set, becomes the
// Nats-Msg-Id header so JetStream streams can de-duplicate.
func (p *Publisher) Publish(ctx context.Context, key, value []byte) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = value
	if len(key) > 0 {
		msg.Header.Set(nats.MsgIdHdr, string(key))
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "nats publish failed").WithDetail("subject=" + p.subject)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "nats flush failed").WithDetail("subject=" + p.subject)
	}
	p.sent.Add(1)
	return nil
}

// Sent returns the number of published messages.
func (p *Publisher) Sent() int64 { return p.sent.Load() }

// Close drains the connection.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.Info("nats publisher closed", logging.Int64("sent", p.sent.Load()))
	return p.conn.Drain()
}

//Personal.AI order the ending
