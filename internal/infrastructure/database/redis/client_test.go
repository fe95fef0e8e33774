package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/nlp-inference-service/pkg/errors"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newMiniredisClient(t)

	ok, err := client.Ping(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, client.GetUnderlyingClient().Ping(context.Background()).Err())
}

func TestNewClient_MissingAddr(t *testing.T) {
	client, err := NewClient(&RedisConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeInvalidConfig))
}

func TestNewClient_UnreachableServerStillBuilds(t *testing.T) {
	cfg := &RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}
	client, err := NewClient(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	ok, err := client.Ping(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func TestClient_PushFrontTrim_BoundsList(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	for _, v := range []string{"A", "B", "C", "D"} {
		require.NoError(t, client.PushFrontTrim(ctx, "api_logs", v, 3))
	}

	got, err := mr.List("api_logs")
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B"}, got)

	n, err := client.Len(ctx, "api_logs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestClient_PushFrontTrim_InvalidLimit(t *testing.T) {
	client, _ := newMiniredisClient(t)
	for _, limit := range []int64{0, -1} {
		err := client.PushFrontTrim(context.Background(), "k", "v", limit)
		assert.Equal(t, ErrInvalidLimit, err)
	}
}

func TestClient_PushFrontTrim_Concurrent(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, client.PushFrontTrim(ctx, "api_logs", fmt.Sprintf("r%d", i), 10))
		}(i)
	}
	wg.Wait()

	got, err := mr.List("api_logs")
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestClient_Trim_Idempotent(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	_, err := mr.Push("api_logs", "C", "B", "A")
	require.NoError(t, err)
	before, _ := mr.List("api_logs")

	require.NoError(t, client.Trim(ctx, "api_logs", 5))
	require.NoError(t, client.Trim(ctx, "api_logs", 5))

	after, _ := mr.List("api_logs")
	assert.Equal(t, before, after)

	require.NoError(t, client.Trim(ctx, "api_logs", 2))
	after, _ = mr.List("api_logs")
	assert.Equal(t, before[:2], after)
}

func TestClient_ReadRange(t *testing.T) {
	client, _ := newMiniredisClient(t)
	ctx := context.Background()

	empty, err := client.ReadRange(ctx, "missing", 0, 9)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, client.PushFrontTrim(ctx, "api_logs", v, 100))
	}
	got, err := client.ReadRange(ctx, "api_logs", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, got)
}

func TestClient_ServerErrorsAreDatabaseErrors(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()
	mr.SetError("LOADING dataset in memory")

	err := client.PushFrontTrim(ctx, "api_logs", "x", 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))

	_, err = client.ReadRange(ctx, "api_logs", 0, 9)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))

	ok, err := client.Ping(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestClient_Closed(t *testing.T) {
	client, _ := newMiniredisClient(t)
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.PushFrontTrim(ctx, "k", "v", 1))
	assert.Equal(t, ErrClientClosed, client.Trim(ctx, "k", 1))
	_, err := client.ReadRange(ctx, "k", 0, 1)
	assert.Equal(t, ErrClientClosed, err)
	_, err = client.Len(ctx, "k")
	assert.Equal(t, ErrClientClosed, err)
	ok, err := client.Ping(ctx)
	assert.False(t, ok)
	assert.Equal(t, ErrClientClosed, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// redismock-driven command expectations
// ─────────────────────────────────────────────────────────────────────────────

type ClientMockSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
}

func (s *ClientMockSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{
		rdb:    db,
		config: &RedisConfig{},
		logger: logging.NewNopLogger(),
	}
}

func (s *ClientMockSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *ClientMockSuite) TestPushFrontTrim_UsesTransaction() {
	s.mock.ExpectTxPipeline()
	s.mock.ExpectLPush("api_logs", "rec").SetVal(1)
	s.mock.ExpectLTrim("api_logs", 0, 999).SetVal("OK")
	s.mock.ExpectTxPipelineExec()

	s.NoError(s.client.PushFrontTrim(context.Background(), "api_logs", "rec", 1000))
}

func (s *ClientMockSuite) TestReadRange_Error() {
	s.mock.ExpectLRange("api_logs", 0, 9).SetErr(stderrors.New("i/o timeout"))

	_, err := s.client.ReadRange(context.Background(), "api_logs", 0, 9)
	s.Error(err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
	s.Contains(err.Error(), "key=api_logs")
}

func (s *ClientMockSuite) TestLen_Error() {
	s.mock.ExpectLLen("api_logs").SetErr(stderrors.New("connection reset"))

	_, err := s.client.Len(context.Background(), "api_logs")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *ClientMockSuite) TestPing_Error() {
	s.mock.ExpectPing().SetErr(stderrors.New("connection refused"))

	ok, err := s.client.Ping(context.Background())
	s.False(ok)
	s.Error(err)
}

func TestClientMockSuite(t *testing.T) {
	suite.Run(t, new(ClientMockSuite))
}

//Personal.AI order the ending
