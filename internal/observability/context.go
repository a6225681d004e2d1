package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext creates a new context.Background() that carries the
// span context from the original request. Goroutines started from an HTTP
// handler use it to link child spans to the request trace without
// inheriting the request's cancellation.
func DetachTraceContext(ctx context.Context) context.Context {
	return DetachTraceContextFrom(ctx, context.Background())
}

// DetachTraceContextFrom copies the trace span from src into baseCtx, so a
// background task follows baseCtx's cancellation (e.g. SIGTERM) while
// staying on src's trace.
func DetachTraceContextFrom(src, baseCtx context.Context) context.Context {
	sc := trace.SpanContextFromContext(src)
	if !sc.IsValid() {
		return baseCtx
	}
	return trace.ContextWithRemoteSpanContext(baseCtx, sc)
}
