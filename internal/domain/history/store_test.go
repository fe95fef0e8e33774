package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/nlp-inference-service/internal/domain/history/historytest"
	redisinfra "github.com/turtacn/nlp-inference-service/internal/infrastructure/database/redis"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

type countingMetrics struct {
	mu              sync.Mutex
	appendOK        int
	appendFailed    int
	readOK          int
	readFailed      int
	corruptEntries  int
	lastReadRecords int
}

func (m *countingMetrics) ObserveAppend(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.appendOK++
	} else {
		m.appendFailed++
	}
}

func (m *countingMetrics) ObserveRead(ok bool, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.readOK++
		m.lastReadRecords = n
	} else {
		m.readFailed++
	}
}

func (m *countingMetrics) IncCorruptEntries() {
	m.mu.Lock()
	m.corruptEntries++
	m.mu.Unlock()
}

func record(input string) inference.LogRecord {
	return inference.LogRecord{Timestamp: "2024-01-01 00:00:00", Task: inference.TaskSentiment, Input: input, Result: "r"}
}

func inputs(recs []inference.LogRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Input
	}
	return out
}

func TestNewStore_RejectsNonPositiveLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		s, err := NewStore(historytest.NewMemoryBackend(), limit, nil)
		assert.Nil(t, s)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
	}
}

func TestNewStore_RequiresBackend(t *testing.T) {
	_, err := NewStore(nil, 10, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestStore_CapacityThree_NewestFirst(t *testing.T) {
	s, err := NewStore(historytest.NewMemoryBackend(), 3, logging.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for _, in := range []string{"A", "B", "C", "D"} {
		s.Append(ctx, record(in))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B"}, inputs(got))
}

func TestStore_HoldsMinOfAppendsAndLimit(t *testing.T) {
	for _, tc := range []struct{ limit, appends int }{{5, 0}, {5, 1}, {5, 5}, {5, 12}, {1, 3}} {
		t.Run(fmt.Sprintf("limit=%d/appends=%d", tc.limit, tc.appends), func(t *testing.T) {
			backend := historytest.NewMemoryBackend()
			s, err := NewStore(backend, tc.limit, nil)
			require.NoError(t, err)
			ctx := context.Background()

			for i := 0; i < tc.appends; i++ {
				s.Append(ctx, record(fmt.Sprintf("r%d", i)))
			}

			want := tc.appends
			if tc.limit < want {
				want = tc.limit
			}
			assert.Equal(t, want, backend.Len(DefaultKey))

			got, err := s.Recent(ctx, tc.limit)
			require.NoError(t, err)
			require.Len(t, got, want)
			if want > 0 {
				assert.Equal(t, fmt.Sprintf("r%d", tc.appends-1), got[0].Input)
			}
		})
	}
}

func TestStore_Recent_EmptyIsNotAnError(t *testing.T) {
	s, _ := NewStore(historytest.NewMemoryBackend(), 10, nil)
	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Append_FailureIsSwallowedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	backend := historytest.NewMemoryBackend()
	backend.SetUnavailable(stderrors.New("connection refused"))
	m := &countingMetrics{}

	s, err := NewStore(backend, 3, logging.NewLoggerFromCore(core), WithMetrics(m))
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.Append(context.Background(), record("A")) })

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, "history: failed to append record", errorLogs[0].Message)
	assert.Equal(t, 1, m.appendFailed)
	assert.Equal(t, 0, m.appendOK)
}

func TestStore_Recent_FailureIsServiceUnavailable(t *testing.T) {
	backend := historytest.NewMemoryBackend()
	m := &countingMetrics{}
	s, _ := NewStore(backend, 3, nil, WithMetrics(m))
	backend.SetUnavailable(stderrors.New("connection refused"))

	got, err := s.Recent(context.Background(), 10)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.Equal(t, 1, m.readFailed)
}

func TestStore_Recent_SkipsCorruptEntries(t *testing.T) {
	backend := historytest.NewMemoryBackend()
	m := &countingMetrics{}
	s, _ := NewStore(backend, 10, nil, WithMetrics(m))
	ctx := context.Background()

	s.Append(ctx, record("A"))
	require.NoError(t, backend.PushFrontTrim(ctx, DefaultKey, "{not json", 10))
	s.Append(ctx, record("B"))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, inputs(got))
	assert.Equal(t, 1, m.corruptEntries)
	assert.Equal(t, 2, m.lastReadRecords)
}

func TestStore_Trim_Idempotent(t *testing.T) {
	backend := historytest.NewMemoryBackend()
	s, _ := NewStore(backend, 5, nil)
	ctx := context.Background()
	for _, in := range []string{"A", "B"} {
		s.Append(ctx, record(in))
	}
	before := backend.Raw(DefaultKey)

	require.NoError(t, s.Trim(ctx))
	require.NoError(t, s.Trim(ctx))
	assert.Equal(t, before, backend.Raw(DefaultKey))
}

func TestStore_Record_UsesClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	backend := historytest.NewMemoryBackend()
	s, _ := NewStore(backend, 5, nil, WithClock(func() time.Time { return fixed }), WithKey("custom"))
	ctx := context.Background()

	s.Record(ctx, inference.TaskTranslation, "hello", "bonjour")

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-05-01 12:30:00", got[0].Timestamp)
	assert.Equal(t, inference.TaskTranslation, got[0].Task)
	assert.Equal(t, 1, backend.Len("custom"))
	assert.Equal(t, "custom", s.Key())
}

func TestStore_Ping(t *testing.T) {
	backend := historytest.NewMemoryBackend()
	s, _ := NewStore(backend, 5, nil)
	assert.True(t, s.Ping(context.Background()))

	backend.SetUnavailable(stderrors.New("down"))
	assert.False(t, s.Ping(context.Background()))
}

func TestStore_ConcurrentAppendsNeverExceedLimit(t *testing.T) {
	backend := historytest.NewMemoryBackend()
	s, _ := NewStore(backend, 7, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(ctx, record(fmt.Sprintf("r%d", i)))
			assert.LessOrEqual(t, backend.Len(DefaultKey), 7)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 7, backend.Len(DefaultKey))
}

// ─────────────────────────────────────────────────────────────────────────────
// Against the Redis client
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_WithRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisinfra.NewClient(&redisinfra.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	s, err := NewStore(client, 3, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, in := range []string{"A", "B", "C", "D"} {
		s.Append(ctx, record(in))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B"}, inputs(got))
	assert.True(t, s.Ping(ctx))

	mr.SetError("READONLY You can't write against a read only replica.")
	assert.NotPanics(t, func() { s.Append(ctx, record("E")) })
	_, err = s.Recent(ctx, 10)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.False(t, s.Ping(ctx))
}

func TestStore_Append_OutlivesCancelledCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisinfra.NewClient(&redisinfra.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	m := &countingMetrics{}
	s, err := NewStore(client, 3, nil, WithMetrics(m))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Append(ctx, record("A"))

	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, inputs(got))
	assert.Equal(t, 1, m.appendOK)
}

// stallingBackend blocks PushFrontTrim until its context ends.
type stallingBackend struct {
	ListBackend
	hadDeadline bool
}

func (b *stallingBackend) PushFrontTrim(ctx context.Context, _, _ string, _ int64) error {
	_, b.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestStore_Append_BoundedByTimeout(t *testing.T) {
	backend := &stallingBackend{ListBackend: historytest.NewMemoryBackend()}
	m := &countingMetrics{}
	s, err := NewStore(backend, 3, nil, WithMetrics(m), WithAppendTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	s.Append(context.Background(), record("A"))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, backend.hadDeadline)
	assert.Equal(t, 1, m.appendFailed)
}

//Personal.AI order the ending
