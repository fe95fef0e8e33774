package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/prometheus"
)

// Metrics records the HTTP series of m.  Paths are the route templates so
// unmatched requests share one "unmatched" label value.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		active := m.HTTPActiveRequests.WithLabelValues(c.Request.Method, path)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(),
			time.Since(start), c.Request.ContentLength, int64(c.Writer.Size()))
	}
}

//Personal.AI order the ending
