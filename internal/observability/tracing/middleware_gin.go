package tracing

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/gamepasses/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrUserID          = attribute.Key("gamepasses.user_id")
	attrUniverses       = attribute.Key("gamepasses.universes")
	attrTotal           = attribute.Key("gamepasses.total")
	attrFailedUniverses = attribute.Key("gamepasses.failed_universes")
	attrFailureClass    = attribute.Key("gamepasses.failure_class")
)

// Lookup summarizes one gamepass lookup for its server span.
type Lookup struct {
	Universes       int
	Total           int
	FailedUniverses int
	// FailureClass is "http_error" or "request_exception" when discovery failed.
	FailureClass string
}

// AnnotateLookup attaches the lookup summary to the server span in ctx.
func AnnotateLookup(ctx context.Context, l Lookup) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if l.FailureClass != "" {
		span.SetAttributes(attrFailureClass.String(l.FailureClass))
		return
	}
	span.SetAttributes(
		attrUniverses.Int(l.Universes),
		attrTotal.Int(l.Total),
		attrFailedUniverses.Int(l.FailedUniverses),
	)
}

// GinMiddleware opens one server span per request. Lookup routes are tagged
// with the requested user id; handlers add the outcome via AnnotateLookup.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("gamepasses/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if userID, err := strconv.ParseInt(strings.TrimSpace(c.Param("userId")), 10, 64); err == nil && userID > 0 {
			span.SetAttributes(attrUserID.Int64(userID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
