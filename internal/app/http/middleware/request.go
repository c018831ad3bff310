package middleware

import (
	"time"

	"focus-billing/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestContext assigns a request id and stores a request-scoped logger in
// the request context.
func RequestContext(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		reqLog := log.With("request_id", id)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), reqLog))
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := logger.FromContext(c.Request.Context(), log)
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if uid := c.GetString(ContextUserID); uid != "" {
			fields = append(fields, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= 500:
			l.Errorw("request failed", fields...)
		case c.Writer.Status() >= 400:
			l.Warnw("request rejected", fields...)
		default:
			l.Infow("request handled", fields...)
		}
	}
}
