package tracing

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type roundTripper struct {
	base http.RoundTripper
}

// WrapHTTPClient instruments outbound calls with a client span and propagated trace headers.
func WrapHTTPClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if _, ok := base.(*roundTripper); ok {
		return client
	}
	wrapped := *client
	wrapped.Transport = &roundTripper{base: base}
	return &wrapped
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	tracer := otel.Tracer("gamepasses/upstream")
	ctx, span := tracer.Start(req.Context(), "HTTP "+strings.ToUpper(req.Method)+" "+req.URL.Host,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	out := req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	span.SetAttributes(SafeAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.Scheme+"://"+req.URL.Host+req.URL.Path),
	)...)

	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		if safeErr := SafeError(err); safeErr != nil {
			span.RecordError(safeErr)
		}
		span.SetStatus(codes.Error, "transport error")
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}
