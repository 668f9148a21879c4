package observe

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ProbeMeta identifies a probe for telemetry purposes.
type ProbeMeta struct {
	Name string   // Registered probe name (required)
	Tags []string // Registration tags (optional)
}

// SpanName returns the deterministic span name for this probe.
// Format: health.probe.<name>
func (m ProbeMeta) SpanName() string {
	return "health.probe." + m.Name
}

// EvaluationSpanName is the span name used for one aggregate evaluation.
const EvaluationSpanName = "health.evaluate"

// Tracer wraps OpenTelemetry tracing with probe-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: End* must be best-effort and must not panic.
type Tracer interface {
	// StartProbe starts a span for one probe run.
	StartProbe(ctx context.Context, meta ProbeMeta) (context.Context, trace.Span)

	// EndProbe ends a probe span with its resulting status and failure kind.
	EndProbe(span trace.Span, status, failure string, err error)

	// StartEvaluation starts the parent span of an evaluation.
	StartEvaluation(ctx context.Context, probes int) (context.Context, trace.Span)

	// EndEvaluation ends an evaluation span with the overall status.
	EndEvaluation(span trace.Span, status string)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartProbe(ctx context.Context, meta ProbeMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("probe.name", meta.Name),
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("probe.tags", slices.Clone(meta.Tags)))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndProbe(span trace.Span, status, failure string, err error) {
	span.SetAttributes(attribute.String("probe.status", status))
	if failure != "" {
		span.SetAttributes(attribute.String("probe.failure", failure))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *tracerImpl) StartEvaluation(ctx context.Context, probes int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, EvaluationSpanName,
		trace.WithAttributes(attribute.Int("health.probes", probes)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndEvaluation(span trace.Span, status string) {
	span.SetAttributes(attribute.String("health.status", status))
	if status == "unhealthy" {
		span.SetStatus(codes.Error, "unhealthy")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
