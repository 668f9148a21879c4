package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records probe and evaluation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProbe records one probe run. failure is empty for clean runs.
	RecordProbe(ctx context.Context, meta ProbeMeta, status, failure string, duration time.Duration)

	// RecordEvaluation records one aggregate evaluation.
	RecordEvaluation(ctx context.Context, status string, entries int, duration time.Duration)
}

type metricsImpl struct {
	probeTotal    metric.Int64Counter
	probeFailures metric.Int64Counter
	probeDuration metric.Float64Histogram
	evalTotal     metric.Int64Counter
	evalDuration  metric.Float64Histogram
}

// NewMetrics creates the health instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	probeTotal, err := meter.Int64Counter(
		"health.probe.total",
		metric.WithDescription("Total number of probe runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	probeFailures, err := meter.Int64Counter(
		"health.probe.failures",
		metric.WithDescription("Probe runs that timed out, were cancelled or faulted"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	probeDuration, err := meter.Float64Histogram(
		"health.probe.duration_ms",
		metric.WithDescription("Probe run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evalTotal, err := meter.Int64Counter(
		"health.evaluation.total",
		metric.WithDescription("Total number of aggregate evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	evalDuration, err := meter.Float64Histogram(
		"health.evaluation.duration_ms",
		metric.WithDescription("Aggregate evaluation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		probeTotal:    probeTotal,
		probeFailures: probeFailures,
		probeDuration: probeDuration,
		evalTotal:     evalTotal,
		evalDuration:  evalDuration,
	}, nil
}

func (m *metricsImpl) RecordProbe(ctx context.Context, meta ProbeMeta, status, failure string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("probe.name", meta.Name),
		attribute.String("probe.status", status),
	}
	opt := metric.WithAttributes(attrs...)

	m.probeTotal.Add(ctx, 1, opt)
	if failure != "" {
		m.probeFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("probe.name", meta.Name),
			attribute.String("probe.failure", failure),
		))
	}
	m.probeDuration.Record(ctx, millis(duration), opt)
}

func (m *metricsImpl) RecordEvaluation(ctx context.Context, status string, entries int, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("health.status", status))
	m.evalTotal.Add(ctx, 1, opt)
	m.evalDuration.Record(ctx, millis(duration), metric.WithAttributes(
		attribute.String("health.status", status),
		attribute.Int("health.probes", entries),
	))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type noopMetrics struct{}

func (noopMetrics) RecordProbe(context.Context, ProbeMeta, string, string, time.Duration) {}
func (noopMetrics) RecordEvaluation(context.Context, string, int, time.Duration)          {}
