package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the request/refresh flow of the auth middleware.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAttempt records one dispatch of a request through the transport.
	RecordAttempt(ctx context.Context, replay bool)

	// RecordUnauthorized records an unauthorized (401) response.
	RecordUnauthorized(ctx context.Context, stale bool)

	// RecordRefresh records one settled refresh cycle: its duration,
	// how many waiters it released, and whether it failed.
	RecordRefresh(ctx context.Context, duration time.Duration, waiters int, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter         metric.Meter
	attemptCount  metric.Int64Counter
	unauthCount   metric.Int64Counter
	refreshCount  metric.Int64Counter
	refreshErrors metric.Int64Counter
	refreshHist   metric.Float64Histogram
	waitersHist   metric.Int64Histogram
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	attemptCount, err := meter.Int64Counter(
		"auth.request.attempts",
		metric.WithDescription("Total request dispatches through the auth transport"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	unauthCount, err := meter.Int64Counter(
		"auth.request.unauthorized",
		metric.WithDescription("Total unauthorized responses observed"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	refreshCount, err := meter.Int64Counter(
		"auth.refresh.cycles",
		metric.WithDescription("Total settled refresh cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	refreshErrors, err := meter.Int64Counter(
		"auth.refresh.failures",
		metric.WithDescription("Total failed refresh cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	refreshHist, err := meter.Float64Histogram(
		"auth.refresh.duration_ms",
		metric.WithDescription("Refresh cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	waitersHist, err := meter.Int64Histogram(
		"auth.refresh.waiters",
		metric.WithDescription("Waiters released per refresh cycle"),
		metric.WithUnit("{waiter}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		attemptCount:  attemptCount,
		unauthCount:   unauthCount,
		refreshCount:  refreshCount,
		refreshErrors: refreshErrors,
		refreshHist:   refreshHist,
		waitersHist:   waitersHist,
	}, nil
}

// RecordAttempt records one dispatch through the transport.
func (m *metricsImpl) RecordAttempt(ctx context.Context, replay bool) {
	m.attemptCount.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("auth.replay", replay),
	))
}

// RecordUnauthorized records an unauthorized response.
func (m *metricsImpl) RecordUnauthorized(ctx context.Context, stale bool) {
	m.unauthCount.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("auth.stale_credential", stale),
	))
}

// RecordRefresh records a settled refresh cycle.
func (m *metricsImpl) RecordRefresh(ctx context.Context, duration time.Duration, waiters int, err error) {
	opt := metric.WithAttributes(
		attribute.Bool("auth.refresh.failed", err != nil),
	)

	m.refreshCount.Add(ctx, 1, opt)
	if err != nil {
		m.refreshErrors.Add(ctx, 1, opt)
	}

	m.refreshHist.Record(ctx, float64(duration.Milliseconds()), opt)
	m.waitersHist.Record(ctx, int64(waiters), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordAttempt(ctx context.Context, replay bool)     {}
func (m *noopMetrics) RecordUnauthorized(ctx context.Context, stale bool) {}
func (m *noopMetrics) RecordRefresh(ctx context.Context, duration time.Duration, waiters int, err error) {
}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return &noopMetrics{} }
