package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

const (
	// DefaultBackendURL is the public Hugging Face inference endpoint.
	DefaultBackendURL = "https://api-inference.huggingface.co"

	userAgent        = "nlp-inference-service"
	maxResponseBytes = 4 << 20
)

// Backend talks to a Hugging-Face-compatible inference endpoint:
//
//	POST {baseURL}/models/{model}
//	{"inputs": "...", "options": {"wait_for_model": true}}
type Backend struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       logging.Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// BackendOption is a functional option for Backend.
type BackendOption func(*Backend)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) BackendOption {
	return func(b *Backend) { b.token = token }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) BackendOption {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRetry sets the retry count and backoff bounds.  Only network errors
// and 5xx responses are retried.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) BackendOption {
	return func(b *Backend) {
		if retryMax >= 0 {
			b.retryMax = retryMax
		}
		if waitMin > 0 {
			b.retryWaitMin = waitMin
			if waitMax >= waitMin {
				b.retryWaitMax = waitMax
			}
		}
	}
}

// NewBackend validates baseURL and returns a Backend.  An empty baseURL
// selects DefaultBackendURL.
func NewBackend(baseURL string, opts ...BackendOption) (*Backend, error) {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid backend url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "backend url scheme must be http or https")
	}

	b := &Backend{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		logger:       logging.NewNopLogger(),
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("pipeline-backend")
	return b, nil
}

type queryRequest struct {
	Inputs  string       `json:"inputs"`
	Options queryOptions `json:"options"`
}

type queryOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type backendError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

func modelPath(modelID string) string {
	parts := strings.Split(modelID, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/models/" + strings.Join(parts, "/")
}

// Query sends text to modelID and returns the raw JSON response body.
func (b *Backend) Query(ctx context.Context, modelID, text string) ([]byte, error) {
	if modelID == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "model id is required")
	}
	payload, err := json.Marshal(queryRequest{Inputs: text, Options: queryOptions{WaitForModel: true}})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode backend request")
	}
	endpoint := b.baseURL + modelPath(modelID)

	var lastErr error
	for attempt := 0; attempt <= b.retryMax; attempt++ {
		if attempt > 0 {
			backoff := b.backoff(attempt)
			b.logger.Debug("retrying backend call",
				logging.String(logging.FieldModel, modelID),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "backend call cancelled")
			}
		}

		body, retry, err := b.do(ctx, endpoint, modelID, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (b *Backend) do(ctx context.Context, endpoint, modelID string, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeInternal, "failed to build backend request")
	}
	requestID := logging.RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeTimeout, "backend call cancelled")
		}
		return nil, true, errors.Wrap(err, errors.ErrCodeExternalService, "inference backend unreachable").
			WithDetail("model=" + modelID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read backend response").
			WithDetail("model=" + modelID)
	}
	b.logger.Debug("backend call",
		logging.String(logging.FieldModel, modelID),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldRequestID, requestID),
	)

	if resp.StatusCode < 300 {
		return body, false, nil
	}

	msg := strings.TrimSpace(string(body))
	var be backendError
	if json.Unmarshal(body, &be) == nil && be.Error != "" {
		msg = be.Error
	}
	detail := fmt.Sprintf("model=%s status=%d: %s", modelID, resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, true, errors.New(errors.ErrCodeAIModelNotAvailable, "model not available").WithDetail(detail)
	case resp.StatusCode >= 500:
		return nil, true, errors.New(errors.ErrCodeExternalService, "inference backend error").WithDetail(detail)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errors.New(errors.ErrCodeAIModelNotAvailable, "model not found").WithDetail(detail)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, false, errors.New(errors.ErrCodeAIInputInvalid, "backend rejected input").WithDetail(detail)
	default:
		return nil, false, errors.New(errors.ErrCodeExternalService, "inference backend rejected request").WithDetail(detail)
	}
}

func (b *Backend) backoff(attempt int) time.Duration {
	d := b.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > b.retryWaitMax {
		d = b.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

//Personal.AI order the ending
