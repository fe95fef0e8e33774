package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// CredentialsDetail is the only message a rejected caller ever sees.
const CredentialsDetail = "Could not validate credentials"

// Failure reasons reported to AttemptObserver.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// AttemptObserver is told about every gate decision.
type AttemptObserver func(success bool, reason string)

// APIKeyGate admits requests carrying the configured shared secret.
type APIKeyGate struct {
	key      []byte
	header   string
	logger   logging.Logger
	observer AttemptObserver
}

// NewAPIKeyGate returns a gate for key read from header.
func NewAPIKeyGate(key, header string, logger logging.Logger, observer AttemptObserver) *APIKeyGate {
	if header == "" {
		header = "X-API-Key"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if observer == nil {
		observer = func(bool, string) {}
	}
	return &APIKeyGate{key: []byte(key), header: header, logger: logger, observer: observer}
}

// Header returns the header name the gate reads.
func (g *APIKeyGate) Header() string { return g.header }

// Authorize accepts provided only if it equals the configured key.  A nil
// provided means the header was absent.  Missing and wrong keys produce the
// same error.
func (g *APIKeyGate) Authorize(provided *string) error {
	if provided == nil {
		g.observer(false, ReasonMissing)
		return errors.Forbidden(CredentialsDetail)
	}
	if len(g.key) == 0 || subtle.ConstantTimeCompare([]byte(*provided), g.key) != 1 {
		g.observer(false, ReasonInvalid)
		return errors.Forbidden(CredentialsDetail)
	}
	g.observer(true, "")
	return nil
}

// Handler rejects unauthorized requests with 403 before any binding runs.
func (g *APIKeyGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var provided *string
		if vals, ok := c.Request.Header[http.CanonicalHeaderKey(g.header)]; ok && len(vals) > 0 {
			provided = &vals[0]
		}
		if err := g.Authorize(provided); err != nil {
			g.logger.WithContext(c.Request.Context()).Warn("request rejected by api key gate",
				logging.String("path", c.Request.URL.Path),
				logging.Bool("header_present", provided != nil),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, inference.ErrorResponse{Detail: CredentialsDetail})
			return
		}
		c.Next()
	}
}

//Personal.AI order the ending
