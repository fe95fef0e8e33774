package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NLP_SERVER", "NLP_API_KEY", "API_KEY"} {
		t.Setenv(k, "")
	}
}

// fakeService mimics the HTTP surface of the inference service.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"Online","db_status":"Connected to Redis"}`)
	})
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "secret" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/sentiment", guard(func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Text string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if strings.TrimSpace(body.Text) == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"detail":[{"loc":["body","text"],"msg":"text must not be empty","type":"value_error"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"result":[{"label":"POSITIVE","score":0.99987}]}`)
	}))
	mux.HandleFunc("/translate", guard(func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Text string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"translated_text":"fr: `+body.Text+`"}`)
	}))
	mux.HandleFunc("/history", guard(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"timestamp":"2024-01-01 10:00:00","task":"TRANSLATION","input":"Hello","result":"Bonjour"}]`)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "nlpctl", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"health", "history", "sentiment", "translate", "sink", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"server", "api-key", "output", "timeout", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestHealthCmd(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)

	out, _, err := run(t, "--server", srv.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "status:    Online")
	assert.Contains(t, out, "db_status: Connected to Redis")

	out, _, err = run(t, "--server", srv.URL, "-o", "json", "health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Online","db_status":"Connected to Redis"}`, out)
}

func TestSentimentCmd(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)

	out, _, err := run(t, "--server", srv.URL, "--api-key", "secret", "sentiment", "I", "love", "this")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "POSITIVE  0.9999")
}

func TestSentimentCmd_Forbidden(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)

	_, _, err := run(t, "--server", srv.URL, "--api-key", "wrong", "sentiment", "hi")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestSentimentCmd_Validation(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)

	_, _, err := run(t, "--server", srv.URL, "--api-key", "secret", "sentiment", "  ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "text must not be empty")
}

func TestSentimentCmd_RequiresText(t *testing.T) {
	clearEnv(t)
	_, _, err := run(t, "sentiment")
	assert.Error(t, err)
}

func TestTranslateCmd_KeyFromEnv(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)
	t.Setenv("API_KEY", "secret")
	t.Setenv("NLP_SERVER", srv.URL)

	out, _, err := run(t, "translate", "Hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "fr: Hello world\n", out)
}

func TestHistoryCmd(t *testing.T) {
	clearEnv(t)
	srv := fakeService(t)

	out, _, err := run(t, "--server", srv.URL, "--api-key", "secret", "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TIMESTAMP"))
	assert.Contains(t, lines[2], "TRANSLATION")
	assert.Contains(t, lines[2], "Bonjour")
}

func TestUnknownOutputFormat(t *testing.T) {
	clearEnv(t)
	_, _, err := run(t, "-o", "yaml", "health")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nlpctl dev")
}

func TestResolveTarget(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\nauth:\n  api_key: from-file\n"), 0o600))

	server, key, err := resolveTarget(&RootOptions{ConfigPath: path}, viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9001", server)
	assert.Equal(t, "from-file", key)

	v := viper.New()
	v.Set("server", "http://svc:8000")
	v.Set("api_key", "from-flag")
	server, key, err = resolveTarget(&RootOptions{ConfigPath: path}, v)
	require.NoError(t, err)
	assert.Equal(t, "http://svc:8000", server)
	assert.Equal(t, "from-flag", key)

	server, key, err = resolveTarget(&RootOptions{}, viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, server)
	assert.Empty(t, key)

	_, _, err = resolveTarget(&RootOptions{ConfigPath: filepath.Join(dir, "missing.yaml")}, viper.New())
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "LONGER"}, [][]string{{"value", "x"}, {"v"}})
	assert.Equal(t, "A      LONGER\n-----  ------\nvalue  x\nv      \n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "éé...", truncateString("ééé", 2))
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)
	PrintError(cmd, errors.Forbidden("Could not validate credentials"))
	assert.Equal(t, "Error: Could not validate credentials\n", buf.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// sink tail
// ─────────────────────────────────────────────────────────────────────────────

type fakeSource struct {
	msgs   [][]byte
	cfg    kafka.ConsumerConfig
	closed bool
}

func (f *fakeSource) Consume(ctx context.Context, handler kafka.MessageHandler) error {
	for i, m := range f.msgs {
		if ctx.Err() != nil {
			return nil
		}
		_ = handler(ctx, &kafka.Message{Offset: int64(i), Value: m})
	}
	<-ctx.Done()
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func stubSource(t *testing.T, src *fakeSource) {
	t.Helper()
	orig := newEnvelopeSource
	newEnvelopeSource = func(cfg kafka.ConsumerConfig, _ logging.Logger) (envelopeSource, error) {
		src.cfg = cfg
		return src, nil
	}
	t.Cleanup(func() { newEnvelopeSource = orig })
}

func encodedEnvelope(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	env, err := messaging.NewEnvelope(context.Background(), eventType, "", payload)
	require.NoError(t, err)
	b, err := env.Encode()
	require.NoError(t, err)
	return b
}

func TestSinkTail(t *testing.T) {
	clearEnv(t)
	src := &fakeSource{msgs: [][]byte{
		encodedEnvelope(t, messaging.EventRunStarted, map[string]string{"project": "p"}),
		[]byte("not an envelope"),
		encodedEnvelope(t, messaging.EventInferenceLogged, map[string]int{"text_length": 5}),
	}}
	stubSource(t, src)

	out, _, err := run(t, "sink", "tail", "--brokers", "k1:9092,k2:9092", "--group", "g", "--limit", "2",
		"--sasl-username", "api", "--sasl-password", "pw")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], messaging.EventRunStarted)
	assert.Contains(t, lines[0], `{"project":"p"}`)
	assert.Contains(t, lines[1], messaging.EventInferenceLogged)

	assert.True(t, src.closed)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, src.cfg.Brokers)
	assert.Equal(t, "nlp.inference.metrics", src.cfg.Topic)
	assert.Equal(t, "g", src.cfg.GroupID)
	assert.Equal(t, "PLAIN", src.cfg.Security.SASLMechanism)
}

func TestSinkTail_JSON(t *testing.T) {
	clearEnv(t)
	src := &fakeSource{msgs: [][]byte{encodedEnvelope(t, messaging.EventInferenceLogged, map[string]string{"prediction": "POSITIVE"})}}
	stubSource(t, src)

	out, _, err := run(t, "-o", "json", "sink", "tail", "--brokers", "k:9092", "--limit", "1")
	require.NoError(t, err)
	var env messaging.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, messaging.EventInferenceLogged, env.EventType)
	assert.Empty(t, src.cfg.Security.SASLMechanism)
}

func TestSinkTail_RequiresBrokers(t *testing.T) {
	clearEnv(t)
	_, _, err := run(t, "sink", "tail")
	assert.Error(t, err)
}

//Personal.AI order the ending
