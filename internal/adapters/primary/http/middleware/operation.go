package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OperationIDHeader is the header name for the operation ID.
	OperationIDHeader = "X-Operation-ID"
	operationIDKey    = "operation_id"
)

// Operation assigns (or propagates) a per-request operation ID used for
// tracing and structured log correlation.
func Operation() gin.HandlerFunc {
	return func(c *gin.Context) {
		operationID := c.GetHeader(OperationIDHeader)
		if operationID == "" {
			operationID = uuid.New().String()
		}

		c.Set(operationIDKey, operationID)
		c.Header(OperationIDHeader, operationID)

		slog.InfoContext(c.Request.Context(), "request started",
			slog.String("operation_id", operationID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Next()

		slog.InfoContext(c.Request.Context(), "request completed",
			slog.String("operation_id", operationID),
			slog.Int("status", c.Writer.Status()),
		)
	}
}

// GetOperationID retrieves the current request's operation ID.
func GetOperationID(c *gin.Context) string {
	if val, exists := c.Get(operationIDKey); exists {
		if opID, ok := val.(string); ok {
			return opID
		}
	}
	return ""
}
