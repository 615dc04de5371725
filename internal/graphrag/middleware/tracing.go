package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/graphrag/pkg/infra/tracing"
)

// TracerName is the tracer used for server spans.
const TracerName = "github.com/kart-io/graphrag/internal/graphrag/middleware"

// Tracing opens a server span per request, continuing any W3C trace context
// carried by the request headers. Paths listed in skip are not traced.
func Tracing(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skipped[req.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		ctx, span := tracing.StartSpan(ctx, TracerName, req.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", req.URL.Path),
			attribute.String("http.request_id", RequestIDFrom(c)),
		)
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		switch {
		case len(c.Errors) > 0:
			tracing.RecordError(ctx, errors.New(c.Errors.String()))
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
