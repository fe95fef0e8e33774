package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/nlp-inference-service/internal/config"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// fakeModelBackend answers like a hosted inference endpoint.
func fakeModelBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "sst-2") {
			_, _ = io.WriteString(w, `[[{"label":"NEGATIVE","score":0.01},{"label":"POSITIVE","score":0.99}]]`)
			return
		}
		_, _ = io.WriteString(w, `[{"translation_text":"Bonjour"}]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, mr *miniredis.Miniredis, backendURL string) *config.Config {
	t.Helper()
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	cfg.History.Limit = 2
	cfg.Auth.APIKey = "secret"
	cfg.Models.BackendURL = backendURL
	cfg.Server.Mode = "test"
	config.ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())
	return cfg
}

func do(h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApplication_EndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, fakeModelBackend(t).URL)

	app, err := newApplication(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.redis.Close() })
	assert.Nil(t, app.grpc)

	w := do(app.handler, http.MethodGet, "/health", "", "")
	assert.JSONEq(t, `{"status":"Online","db_status":"Connected to Redis"}`, w.Body.String())

	w = do(app.handler, http.MethodPost, "/sentiment", `{"text":"I love this"}`, "secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"result":[{"label":"POSITIVE","score":0.99},{"label":"NEGATIVE","score":0.01}]}`, w.Body.String())

	for i := 0; i < 2; i++ {
		w = do(app.handler, http.MethodPost, "/translate", `{"text":"Hello"}`, "secret")
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.JSONEq(t, `{"translated_text":"Bonjour"}`, w.Body.String())

	entries, err := mr.List(cfg.History.Key)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	w = do(app.handler, http.MethodGet, "/history", "", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []inference.LogRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, inference.TaskTranslation, recs[0].Task)

	w = do(app.handler, http.MethodPost, "/sentiment", `{"text":"x"}`, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(app.handler, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(app.handler, http.MethodGet, "/metrics", "", "")
	body := w.Body.String()
	assert.Contains(t, body, `nlp_service_info{sink_driver="noop",version="dev"} 1`)
	assert.Contains(t, body, `nlp_history_backend_up 1`)
}

func TestApplication_StoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, fakeModelBackend(t).URL)
	mr.Close()

	app, err := newApplication(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.redis.Close() })

	w := do(app.handler, http.MethodPost, "/translate", `{"text":"Hello"}`, "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(app.handler, http.MethodGet, "/history", "", "secret")
	assert.JSONEq(t, `{"error":"history store unavailable"}`, w.Body.String())

	w = do(app.handler, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, fakeModelBackend(t).URL)
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = time.Second

	app, err := newApplication(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, "debug", ginMode("debug"))
	assert.Equal(t, "test", ginMode("test"))
	assert.Equal(t, "release", ginMode("release"))
	assert.Equal(t, "release", ginMode("bogus"))
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := newRootCommand()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("config"))
	assert.NotNil(t, serve.Flags().Lookup("warm"))
}

//Personal.AI order the ending
