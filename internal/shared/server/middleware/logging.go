package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/shared/telemetry"
)

// Logging emits one request.complete record per request. Receipt handlers
// annotate the context with documentId and statusTransition so lifecycle
// changes can be traced from the access log alone. Probe paths are skipped.
func Logging(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes_out":   c.Writer.Size(),
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		if id := c.GetString("documentId"); id != "" {
			fields["document_id"] = id
		}
		if t := c.GetString("statusTransition"); t != "" && status < http.StatusBadRequest {
			fields["status_transition"] = t
		}

		if status >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
