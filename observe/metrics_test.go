package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordProbe(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()
	meta := ProbeMeta{Name: "db"}

	m.RecordProbe(ctx, meta, "healthy", "", 10*time.Millisecond)
	m.RecordProbe(ctx, meta, "degraded", "timeout", 50*time.Millisecond)
	m.RecordProbe(ctx, meta, "unhealthy", "expected", 5*time.Millisecond)

	rm := collect(t, reader)

	total := findMetric(rm, "health.probe.total")
	if total == nil {
		t.Fatal("health.probe.total metric not found")
	}
	if got := sumOf(t, total); got != 3 {
		t.Errorf("expected 3 probe runs, got %d", got)
	}

	failures := findMetric(rm, "health.probe.failures")
	if failures == nil {
		t.Fatal("health.probe.failures metric not found")
	}
	if got := sumOf(t, failures); got != 2 {
		t.Errorf("expected 2 failures, got %d", got)
	}

	dur := findMetric(rm, "health.probe.duration_ms")
	if dur == nil {
		t.Fatal("health.probe.duration_ms metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", dur.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("expected 3 duration samples, got %d", count)
	}
}

func TestMetrics_RecordEvaluation(t *testing.T) {
	m, reader := newManualMetrics(t)

	m.RecordEvaluation(context.Background(), "degraded", 4, 120*time.Millisecond)

	rm := collect(t, reader)
	total := findMetric(rm, "health.evaluation.total")
	if total == nil {
		t.Fatal("health.evaluation.total metric not found")
	}
	if got := sumOf(t, total); got != 1 {
		t.Errorf("expected 1 evaluation, got %d", got)
	}
	if findMetric(rm, "health.evaluation.duration_ms") == nil {
		t.Error("health.evaluation.duration_ms metric not found")
	}
}
