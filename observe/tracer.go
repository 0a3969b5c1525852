package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with refresh-cycle span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndCycle must be best-effort and must not panic.
type Tracer interface {
	// StartCycle starts a span covering one refresh cycle.
	StartCycle(ctx context.Context) (context.Context, trace.Span)

	// EndCycle ends the span, recording the waiter count and any error.
	EndCycle(span trace.Span, waiters int, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartCycle starts a span for a refresh cycle.
func (t *tracerImpl) StartCycle(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "auth.refresh.cycle",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndCycle ends the span and records the settlement outcome.
func (t *tracerImpl) EndCycle(span trace.Span, waiters int, err error) {
	span.SetAttributes(attribute.Int("auth.refresh.waiters", waiters))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer that discards everything.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartCycle(ctx context.Context) (context.Context, trace.Span) {
	return t.noop.Start(ctx, "auth.refresh.cycle")
}

func (t *noopTracer) EndCycle(span trace.Span, waiters int, err error) {
	span.End()
}
