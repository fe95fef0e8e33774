package client

import (
	"net/http"
	"time"
)

// Defaults applied by NewClient before any Option runs.
const (
	DefaultTimeout      = 2 * time.Minute
	DefaultRetryMax     = 2
	DefaultRetryWaitMin = 200 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second
)

// Option configures a Client.  Options run in order; zero and nil values
// leave the current setting alone.
type Option func(*Client)

// WithHTTPClient sends requests through hc.  A timeout set with WithTimeout
// is applied to a copy, so hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds one HTTP exchange, retries excluded.  Without it the
// HTTP client's own timeout is kept, or DefaultTimeout when it has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger receives retry and failure diagnostics.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryMax sets how often an idempotent GET is retried.  Zero disables
// retries; POSTs are never retried because each one appends a log entry.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the backoff bounds.  A ceiling below the floor is
// raised to the floor.
func WithRetryWait(floor, ceiling time.Duration) Option {
	return func(c *Client) {
		if floor <= 0 {
			return
		}
		if ceiling < floor {
			ceiling = floor
		}
		c.retryWaitMin, c.retryWaitMax = floor, ceiling
	}
}

// WithUserAgent replaces the nlp-go-sdk User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithAPIKeyHeader sends the key in header instead of X-API-Key.
func WithAPIKeyHeader(header string) Option {
	return func(c *Client) {
		if header != "" {
			c.apiKeyHeader = header
		}
	}
}

// applyTimeout installs the effective timeout on a copy of the HTTP client.
func (c *Client) applyTimeout() {
	d := c.timeout
	if d <= 0 {
		if c.httpClient.Timeout > 0 {
			return
		}
		d = DefaultTimeout
	}
	if c.httpClient.Timeout == d {
		return
	}
	hc := *c.httpClient
	hc.Timeout = d
	c.httpClient = &hc
}

//Personal.AI order the ending
