package observers

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/requesthook"
)

// maxPendingSpans bounds the number of spans waiting for their end
// notification. Requests dropped by the server mid-flight never deliver
// one, so the map would otherwise grow without bound.
const maxPendingSpans = 8192

// Tracing is an observer that records one OpenTelemetry span per
// observed request, started on the start notification and ended on the
// matching end notification.
type Tracing struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[uuid.UUID]trace.Span
}

// NewTracing creates a tracing observer. A nil provider falls back to the
// global tracer provider.
func NewTracing(provider trace.TracerProvider) *Tracing {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &Tracing{
		tracer: provider.Tracer("github.com/vyrodovalexey/requesthook"),
		spans:  make(map[uuid.UUID]trace.Span),
	}
}

// OnRequestStarted starts a span for the request. When the pending span
// limit is reached the span is ended immediately and the end notification
// for it is ignored.
func (o *Tracing) OnRequestStarted(data requesthook.RequestStartData) {
	_, span := o.tracer.Start(context.Background(), data.Method+" "+data.URI,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", data.Method),
			attribute.String("http.target", data.URI),
			attribute.String("request.id", data.RequestID.String()),
		),
	)

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.spans) >= maxPendingSpans {
		span.End()
		return
	}
	o.spans[data.RequestID] = span
}

// OnRequestEnded ends the span matching the request ID, recording the
// final status.
func (o *Tracing) OnRequestEnded(data requesthook.RequestEndData) {
	o.mu.Lock()
	span, ok := o.spans[data.RequestID]
	if ok {
		delete(o.spans, data.RequestID)
	}
	o.mu.Unlock()

	if !ok {
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", data.Status))
	if data.Status >= 500 {
		span.SetStatus(codes.Error, http.StatusText(data.Status))
	}
	span.End()
}
