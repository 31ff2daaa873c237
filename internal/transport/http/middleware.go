package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// admissionMiddleware rejects WebSocket upgrades over the upgrade rate.
func admissionMiddleware(adm *admission, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, reason := adm.allow(); !ok {
			logger.Debug().Str("client_ip", c.ClientIP()).Str("reason", reason).Msg("ws upgrade refused")
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: reason})
			c.Abort()
			return
		}
		c.Next()
	}
}
