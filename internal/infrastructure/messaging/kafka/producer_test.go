package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/nlp-inference-service/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	written   []kafka.Message
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.written = append(m.written, msgs...)
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return &Producer{
		writer:  w,
		config:  ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "nlp.inference.metrics", MaxMessageBytes: 1024},
		logger:  logging.NewNopLogger(),
		metrics: &ProducerMetrics{},
	}
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Topic: "t"}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))

	_, err = NewProducer(ProducerConfig{Brokers: []string{"b:9092"}}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))

	_, err = NewProducer(ProducerConfig{Brokers: []string{"b:9092"}, Topic: "t", MaxRetries: -1}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))

	_, err = NewProducer(ProducerConfig{
		Brokers:  []string{"b:9092"},
		Topic:    "t",
		Security: SecurityConfig{SASLMechanism: "GSSAPI"},
	}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestNewProducer_BuildsWriter(t *testing.T) {
	p, err := NewProducer(ProducerConfig{
		Brokers:  []string{"b:9092"},
		Topic:    "nlp.inference.metrics",
		Acks:     "all",
		Async:    true,
		Security: SecurityConfig{SASLMechanism: "PLAIN", SASLUsername: "api", SASLPassword: "key"},
	}, nil)
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "nlp.inference.metrics", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.True(t, w.Async)
	assert.Equal(t, 4, w.MaxAttempts)
	require.NoError(t, p.Close())
}

func TestProducer_Publish_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Publish(context.Background(), []byte("k"), []byte(`{"a":1}`)))
	require.Len(t, w.written, 1)
	assert.Equal(t, []byte("k"), w.written[0].Key)
	assert.Empty(t, w.written[0].Topic)

	sent, failed, bytes := p.GetMetrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(7), bytes)
}

func TestProducer_Publish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	err := p.Publish(context.Background(), nil, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	err = p.Publish(context.Background(), nil, make([]byte, 2048))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("leader not available")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), nil, []byte("x"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
	_, failed, _ := p.GetMetrics()
	assert.Equal(t, int64(1), failed)
}

func TestProducer_AsyncCompletion(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	p.config.Async = true

	require.NoError(t, p.Publish(context.Background(), nil, []byte("x")))
	sent, _, _ := p.GetMetrics()
	assert.Equal(t, int64(0), sent)

	p.complete([]kafka.Message{{}, {}}, nil)
	p.complete([]kafka.Message{{}}, errors.New("broker down"))
	sent, failed, _ := p.GetMetrics()
	assert.Equal(t, int64(2), sent)
	assert.Equal(t, int64(1), failed)
}

func TestProducer_Close_Idempotent(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	err := p.Publish(context.Background(), nil, []byte("x"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

//Personal.AI order the ending
