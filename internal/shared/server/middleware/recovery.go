package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"propertycare-backend/internal/shared/server/respond"
	"propertycare-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. The stack is attached
// by zap so the log line stays a single JSON record.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.L().Error("request.panic",
				zap.Any("panic", rec),
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("route", c.FullPath()),
				zap.String("method", c.Request.Method),
				zap.String("user_id", UserIDFromContext(c)),
				zap.String("document_id", c.GetString("documentId")),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		}()
		c.Next()
	}
}
