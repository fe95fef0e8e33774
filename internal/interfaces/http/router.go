package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/nlp-inference-service/internal/interfaces/http/handlers"
	"github.com/turtacn/nlp-inference-service/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	InferenceHandler *handlers.InferenceHandler
	HealthHandler    *handlers.HealthHandler
	DocsHandler      *handlers.DocsHandler

	// Middleware
	APIKeyGate     *middleware.APIKeyGate
	CORS           middleware.CORSConfig
	LoggingConfig  middleware.LoggingConfig
	RequestTimeout time.Duration // 0 disables

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	AppMetrics       *prometheus.AppMetrics

	// Mode is the gin mode ("debug", "release", "test").
	Mode string
}

// NewRouter constructs the complete route tree.  Public routes are docs,
// health and metrics; the inference routes sit behind the API key gate, which
// runs before any body is read.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, cfg.LoggingConfig))
	if cfg.AppMetrics != nil {
		r.Use(middleware.Metrics(cfg.AppMetrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	// --- Public endpoints ---
	if cfg.DocsHandler != nil {
		cfg.DocsHandler.RegisterRoutes(r)
	}
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- Protected endpoints ---
	if cfg.InferenceHandler != nil {
		protected := r.Group("/")
		if cfg.APIKeyGate != nil {
			protected.Use(cfg.APIKeyGate.Handler())
		}
		if cfg.RequestTimeout > 0 {
			protected.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		cfg.InferenceHandler.RegisterRoutes(protected)
	}

	return r
}

//Personal.AI order the ending
