// Package middleware holds the gin middleware chain of the GraphRAG HTTP API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/graphrag/pkg/utils/id"
)

// HeaderRequestID 请求 ID 头。
const HeaderRequestID = "X-Request-ID"

// ContextKeyRequestID is the gin context key holding the request id.
const ContextKeyRequestID = "request_id"

type requestIDKey struct{}

// RequestID reuses an incoming X-Request-ID or assigns a new ULID. The id is
// echoed in the response header and stored in both the gin context and the
// request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > 128 {
			rid = id.NewULID()
		}
		c.Set(ContextKeyRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// GetRequestID returns the request id carried by ctx, or "".
func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// RequestIDFrom reads the id set by RequestID from a gin context.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
