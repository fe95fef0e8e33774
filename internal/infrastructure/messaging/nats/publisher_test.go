package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/nlp-inference-service/pkg/errors"
)

type mockConn struct {
	published  []*nats.Msg
	publishErr error
	flushErr   error
	drained    int
}

func (m *mockConn) PublishMsg(msg *nats.Msg) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, msg)
	return nil
}

func (m *mockConn) FlushWithContext(context.Context) error { return m.flushErr }

func (m *mockConn) Drain() error {
	m.drained++
	return nil
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(Config{Subject: "s"}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))
	_, err = NewPublisher(Config{URL: "nats://localhost:4222"}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestNewPublisher_ConnectFailure(t *testing.T) {
	_, err := NewPublisher(Config{URL: "nats://127.0.0.1:1", Subject: "s", Timeout: 100_000_000}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
}

func TestPublisher_Publish(t *testing.T) {
	conn := &mockConn{}
	p := newPublisher(conn, "nlp.inference.metrics", logging.NewNopLogger())

	require.NoError(t, p.Publish(context.Background(), []byte("evt-1"), []byte(`{"x":1}`)))
	require.Len(t, conn.published, 1)
	assert.Equal(t, "nlp.inference.metrics", conn.published[0].Subject)
	assert.Equal(t, "evt-1", conn.published[0].Header.Get(nats.MsgIdHdr))
	assert.Equal(t, `{"x":1}`, string(conn.published[0].Data))
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublisher_Publish_Errors(t *testing.T) {
	conn := &mockConn{publishErr: errors.New("stale connection")}
	p := newPublisher(conn, "s", logging.NewNopLogger())
	assert.True(t, apperrors.IsCode(p.Publish(context.Background(), nil, []byte("x")), apperrors.ErrCodeExternalService))

	conn = &mockConn{flushErr: context.DeadlineExceeded}
	p = newPublisher(conn, "s", logging.NewNopLogger())
	err := p.Publish(context.Background(), nil, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), p.Sent())
}

func TestPublisher_Close(t *testing.T) {
	conn := &mockConn{}
	p := newPublisher(conn, "s", logging.NewNopLogger())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, conn.drained)
	assert.ErrorIs(t, p.Publish(context.Background(), nil, []byte("x")), ErrPublisherClosed)
}

//Personal.AI order the ending
