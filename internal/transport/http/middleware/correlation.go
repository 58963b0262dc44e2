package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
)

const (
	// TraceIDHeader carries the id echoed in failure envelopes.
	TraceIDHeader = "X-Trace-ID"
	// RequestIDHeader carries the id attached to every log line of a request.
	RequestIDHeader = "X-Request-ID"
)

// Correlate tags the request with a trace id and a request id, reusing the
// caller's headers when present, and echoes both on the response.
func Correlate() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := headerOrNew(c, TraceIDHeader)
		requestID := headerOrNew(c, RequestIDHeader)

		c.Set(response.TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// TraceID returns the trace id set by Correlate.
func TraceID(c *gin.Context) string {
	return c.GetString(response.TraceIDKey)
}

func headerOrNew(c *gin.Context, name string) string {
	if v := c.GetHeader(name); v != "" && len(v) <= 128 {
		return v
	}
	return uuid.NewString()
}
