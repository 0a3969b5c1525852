package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	m, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordAttempt(context.Background(), false)
	m.RecordAttempt(context.Background(), true)

	metrics := collect(t, reader)
	sum, ok := metrics["auth.request.attempts"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("auth.request.attempts not recorded as int64 sum")
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("auth.request.attempts total = %d, want 2", total)
	}
}

func TestMetrics_RecordRefresh(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRefresh(context.Background(), 120*time.Millisecond, 5, nil)
	m.RecordRefresh(context.Background(), 80*time.Millisecond, 2, errors.New("boom"))

	metrics := collect(t, reader)

	cycles, ok := metrics["auth.refresh.cycles"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("auth.refresh.cycles not recorded")
	}
	var total int64
	for _, dp := range cycles.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("auth.refresh.cycles total = %d, want 2", total)
	}

	failures, ok := metrics["auth.refresh.failures"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("auth.refresh.failures not recorded")
	}
	var failed int64
	for _, dp := range failures.DataPoints {
		failed += dp.Value
	}
	if failed != 1 {
		t.Errorf("auth.refresh.failures total = %d, want 1", failed)
	}

	waiters, ok := metrics["auth.refresh.waiters"].Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatal("auth.refresh.waiters not recorded as histogram")
	}
	var count uint64
	for _, dp := range waiters.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("auth.refresh.waiters count = %d, want 2", count)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	// Must be safe to call.
	m.RecordAttempt(context.Background(), false)
	m.RecordUnauthorized(context.Background(), true)
	m.RecordRefresh(context.Background(), time.Second, 10, errors.New("boom"))
}
