package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig defines the config for CORS middleware.
type CORSConfig struct {
	// AllowOrigins 允许的来源，包含 "*" 时全部放行。
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// ExposeHeaders lets browsers read these response headers.
	ExposeHeaders []string
	MaxAge        int
}

// DefaultCORSConfig allows every origin.
var DefaultCORSConfig = CORSConfig{
	AllowOrigins:  []string{"*"},
	AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", HeaderRequestID},
	ExposeHeaders: []string{HeaderRequestID, "X-Thread-ID"},
	MaxAge:        86400,
}

// CORS returns the CORS middleware for the given origins. An empty list
// falls back to DefaultCORSConfig.
func CORS(origins []string) gin.HandlerFunc {
	cfg := DefaultCORSConfig
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	return CORSWithConfig(cfg)
}

// CORSWithConfig returns a CORS middleware with custom config.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	allowAll := slices.Contains(cfg.AllowOrigins, "*")
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case slices.Contains(cfg.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if expose != "" {
			c.Header("Access-Control-Expose-Headers", expose)
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
