// Package client is the Go SDK for the NLP inference service.
package client

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

	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

const Version = "0.1.0"

// DefaultAPIKeyHeader is the header the service reads the key from.
const DefaultAPIKeyHeader = "X-API-Key"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is a no-op implementation of Logger
type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client talks to one service instance.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	apiKey       string
	apiKeyHeader string
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
}

// NewClient creates a client for baseURL.  The key may be empty for callers
// that only use the public endpoints.
func NewClient(baseURL string, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "base URL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid base URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "base URL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		apiKeyHeader: DefaultAPIKeyHeader,
		httpClient:   &http.Client{},
		userAgent:    fmt.Sprintf("nlp-go-sdk/%s", Version),
		logger:       &noopLogger{},
		retryMax:     DefaultRetryMax,
		retryWaitMin: DefaultRetryWaitMin,
		retryWaitMax: DefaultRetryWaitMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyTimeout()
	return c, nil
}

// BaseURL returns the normalised service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*inference.HealthResponse, error) {
	var out inference.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History calls GET /history.  The service answers 200 with an error body when
// its store is down; that is returned as a ServiceUnavailable error.
func (c *Client) History(ctx context.Context) ([]inference.LogRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/history", nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var herr inference.HistoryError
		if err := json.Unmarshal(trimmed, &herr); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode history response")
		}
		return nil, errors.Unavailable(herr.Error)
	}
	records := []inference.LogRecord{}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode history response")
		}
	}
	return records, nil
}

// Sentiment calls POST /sentiment.
func (c *Client) Sentiment(ctx context.Context, text string) (*inference.SentimentResponse, error) {
	var out inference.SentimentResponse
	if err := c.do(ctx, http.MethodPost, "/sentiment", inference.TextRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Translate calls POST /translate.
func (c *Client) Translate(ctx context.Context, text string) (*inference.TranslationResponse, error) {
	var out inference.TranslationResponse
	if err := c.do(ctx, http.MethodPost, "/translate", inference.TextRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs an HTTP request.  Only GETs are retried: a POST that reached the
// service has already been logged.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal request body")
		}
	}

	retryMax := c.retryMax
	if method != http.MethodGet {
		retryMax = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "request cancelled")
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create request")
		}

		requestID := uuid.New().String()
		if c.apiKey != "" {
			req.Header.Set(c.apiKeyHeader, c.apiKey)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)
		if err != nil {
			c.logger.Errorf("Request failed: %v", err)
			if ctx.Err() != nil {
				return errors.Wrap(err, errors.ErrCodeTimeout, "request cancelled")
			}
			lastErr = errors.Wrap(err, errors.ErrCodeServiceUnavailable, "service unreachable")
			continue
		}

		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, duration)

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to read response body")
		}

		if resp.StatusCode >= 400 {
			lastErr = statusError(resp.StatusCode, respBody, requestID)
			if resp.StatusCode >= 500 {
				continue
			}
			return lastErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal response")
			}
		}
		return nil
	}
	return lastErr
}

// statusError maps a non-2xx response onto an AppError.
func statusError(status int, body []byte, requestID string) *errors.AppError {
	var code errors.ErrorCode
	switch {
	case status == http.StatusForbidden:
		code = errors.ErrCodeForbidden
	case status == http.StatusUnauthorized:
		code = errors.ErrCodeUnauthorized
	case status == http.StatusNotFound:
		code = errors.ErrCodeNotFound
	case status == http.StatusUnprocessableEntity:
		code = errors.ErrCodeValidation
	case status == http.StatusGatewayTimeout:
		code = errors.ErrCodeTimeout
	case status >= 500:
		code = errors.ErrCodeServiceUnavailable
	default:
		code = errors.ErrCodeBadRequest
	}
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.New(code, msg).
		WithDetail(fmt.Sprintf("HTTP %d [request_id=%s]", status, requestID))
}

// errorMessage extracts "detail" in either the string or the list form.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}
	var items []inference.ValidationErrorItem
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			loc := strings.Join(it.Loc, ".")
			if loc != "" {
				msgs = append(msgs, loc+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(env.Detail)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

//Personal.AI order the ending
