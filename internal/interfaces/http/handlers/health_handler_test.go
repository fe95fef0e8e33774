package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	sentiment   *inference.SentimentResponse
	translation *inference.TranslationResponse
	history     []inference.LogRecord
	health      inference.HealthResponse
	err         error
	historyErr  error
	texts       []string
}

func (f *fakeService) AnalyzeSentiment(_ context.Context, text string) (*inference.SentimentResponse, error) {
	f.texts = append(f.texts, text)
	return f.sentiment, f.err
}

func (f *fakeService) Translate(_ context.Context, text string) (*inference.TranslationResponse, error) {
	f.texts = append(f.texts, text)
	return f.translation, f.err
}

func (f *fakeService) History(context.Context) ([]inference.LogRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeService) Health(context.Context) inference.HealthResponse { return f.health }

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler_Health(t *testing.T) {
	svc := &fakeService{health: inference.HealthResponse{Status: inference.StatusOnline, DBStatus: inference.DBStatusUnavailable}}
	r := gin.New()
	NewHealthHandler(svc, "1.0.0").RegisterRoutes(r)

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"Online","db_status":"Redis unavailable"}`, w.Body.String())
}

func TestHealthHandler_Liveness(t *testing.T) {
	r := gin.New()
	NewHealthHandler(&fakeService{}, "1.0.0").RegisterRoutes(r)

	w := serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	healthy := CheckerFunc{ComponentName: "history-store", Fn: func(context.Context) error { return nil }}
	broken := CheckerFunc{ComponentName: "model-backend", Fn: func(context.Context) error { return errors.New("dial tcp: refused") }}

	r := gin.New()
	NewHealthHandler(&fakeService{}, "v").RegisterRoutes(r)
	w := serve(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = gin.New()
	NewHealthHandler(&fakeService{}, "v", healthy).RegisterRoutes(r)
	w = serve(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = gin.New()
	NewHealthHandler(&fakeService{}, "v", healthy, broken).RegisterRoutes(r)
	w = serve(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["history-store"].Status)
	assert.Equal(t, "dial tcp: refused", resp.Components["model-backend"].Error)
}

func TestInferenceHandler_Sentiment(t *testing.T) {
	svc := &fakeService{sentiment: &inference.SentimentResponse{Result: []inference.SentimentLabel{{Label: "POSITIVE", Score: 0.9}}}}
	r := gin.New()
	NewInferenceHandler(svc, nil).RegisterRoutes(r)

	w := serve(r, http.MethodPost, "/sentiment", `{"text":"I love it"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":[{"label":"POSITIVE","score":0.9}]}`, w.Body.String())
	assert.Equal(t, []string{"I love it"}, svc.texts)
}

func TestInferenceHandler_Translate(t *testing.T) {
	svc := &fakeService{translation: &inference.TranslationResponse{TranslatedText: "Bonjour"}}
	r := gin.New()
	NewInferenceHandler(svc, nil).RegisterRoutes(r)

	w := serve(r, http.MethodPost, "/translate", `{"text":"Hello"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"translated_text":"Bonjour"}`, w.Body.String())
}

func TestInferenceHandler_BindingErrors(t *testing.T) {
	svc := &fakeService{}
	r := gin.New()
	NewInferenceHandler(svc, nil).RegisterRoutes(r)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing field", `{}`, `{"detail":[{"loc":["body","text"],"msg":"field required","type":"value_error.missing"}]}`},
		{"empty text", `{"text":""}`, `{"detail":[{"loc":["body","text"],"msg":"field required","type":"value_error.missing"}]}`},
		{"wrong type", `{"text":42}`, `{"detail":[{"loc":["body","text"],"msg":"string type expected","type":"type_error.string"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/sentiment", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}

	w := serve(r, http.MethodPost, "/translate", `{"text":`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"loc":["body"]`)

	w = serve(r, http.MethodPost, "/translate", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":[{"loc":["body"],"msg":"field required","type":"value_error.missing"}]}`, w.Body.String())

	assert.Empty(t, svc.texts)
}

func TestInferenceHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperrors.New(apperrors.ErrCodeValidation, "text must not be empty"), http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","text"],"msg":"text must not be empty","type":"value_error"}]}`},
		{"model unavailable", apperrors.New(apperrors.ErrCodeAIModelNotAvailable, "model not available"), http.StatusServiceUnavailable,
			`{"detail":"model not available"}`},
		{"timeout", apperrors.New(apperrors.ErrCodeTimeout, "gave up waiting for model load"), http.StatusGatewayTimeout,
			`{"detail":"gave up waiting for model load"}`},
		{"internal masked", apperrors.New(apperrors.ErrCodeInternal, "nil pointer in pipeline"), http.StatusInternalServerError,
			`{"detail":"Internal Server Error"}`},
		{"plain error masked", errors.New("boom"), http.StatusInternalServerError,
			`{"detail":"Internal Server Error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			NewInferenceHandler(&fakeService{err: tc.err}, nil).RegisterRoutes(r)
			w := serve(r, http.MethodPost, "/sentiment", `{"text":"hi"}`)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestInferenceHandler_History(t *testing.T) {
	recs := []inference.LogRecord{{Timestamp: "2024-01-01 10:00:00", Task: inference.TaskTranslation, Input: "Hi", Result: "Salut"}}
	r := gin.New()
	NewInferenceHandler(&fakeService{history: recs}, nil).RegisterRoutes(r)
	w := serve(r, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"timestamp":"2024-01-01 10:00:00","task":"TRANSLATION","input":"Hi","result":"Salut"}]`, w.Body.String())

	r = gin.New()
	NewInferenceHandler(&fakeService{}, nil).RegisterRoutes(r)
	w = serve(r, http.MethodGet, "/history", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	r = gin.New()
	NewInferenceHandler(&fakeService{historyErr: apperrors.Unavailable("history store unavailable")}, nil).RegisterRoutes(r)
	w = serve(r, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":"history store unavailable"}`, w.Body.String())
}

func TestDocsHandler(t *testing.T) {
	r := gin.New()
	NewDocsHandler("NLP Inference Service", "1.2.3", "X-API-Key").RegisterRoutes(r)

	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/docs", w.Header().Get("Location"))

	w = serve(r, http.MethodGet, "/docs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<code>/sentiment</code>")
	assert.Contains(t, w.Body.String(), "X-API-Key")

	w = serve(r, http.MethodGet, "/openapi.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/translate")
	post := paths["/translate"].(map[string]any)["post"].(map[string]any)
	assert.Contains(t, post, "requestBody")
	assert.Contains(t, post["responses"], "403")
}

//Personal.AI order the ending
