package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins, "*" or subdomain patterns such as
	// "https://*.example.com".  Empty disables the middleware.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         int // seconds
}

// DefaultCORSConfig allows the methods and headers the inference API uses.
// The API key header is always included.
func DefaultCORSConfig(origins []string, apiKeyHeader string) CORSConfig {
	headers := []string{"Content-Type", "X-Request-ID"}
	if apiKeyHeader != "" {
		headers = append(headers, apiKeyHeader)
	}
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	}
}

// CORS answers preflight requests with 204 and decorates simple requests from
// allowed origins.  Requests from other origins pass through untouched, so the
// browser enforces the policy.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")

	return func(c *gin.Context) {
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		allowed, wildcard := matchOrigin(cfg.AllowedOrigins, origin)
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !allowed {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if wildcard {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}

		if preflight {
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if exposed != "" {
			h.Set("Access-Control-Expose-Headers", exposed)
		}
		c.Next()
	}
}

// matchOrigin reports whether origin is allowed and whether it matched "*".
func matchOrigin(allowed []string, origin string) (bool, bool) {
	for _, a := range allowed {
		switch {
		case a == "*":
			return true, true
		case strings.EqualFold(a, origin):
			return true, false
		case strings.Contains(a, "://*."):
			scheme, rest, _ := strings.Cut(a, "://*.")
			if !strings.HasPrefix(origin, scheme+"://") {
				continue
			}
			host := strings.TrimPrefix(origin, scheme+"://")
			if strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(rest)) {
				return true, false
			}
		}
	}
	return false, false
}

//Personal.AI order the ending
