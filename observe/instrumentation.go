package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ProbeOutcome is the telemetry view of one probe run.
type ProbeOutcome struct {
	Status   string        // healthy|degraded|unhealthy
	Failure  string        // timeout|cancelled|fault|expected, empty when clean
	Message  string        // human-readable description
	Err      error         // failure detail, if any
	Duration time.Duration // measured run time
}

// ProbeFunc runs one probe and reports its outcome.
type ProbeFunc func(ctx context.Context) ProbeOutcome

// EvaluationOutcome is the telemetry view of one aggregate evaluation.
type EvaluationOutcome struct {
	Status   string
	Entries  int
	Duration time.Duration
}

// EvaluationFunc runs one evaluation and reports its outcome.
type EvaluationFunc func(ctx context.Context) EvaluationOutcome

// Instrumentation wraps probe runs and evaluations with tracing, metrics and
// logging.
//
// Contract:
//   - Concurrency: wrapped functions are safe for concurrent use.
//   - Context: the span context is propagated into the wrapped function.
//   - Errors: telemetry failures, including panics in exporters or log
//     sinks, are swallowed and never alter the outcome.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation from its parts. Nil parts are
// replaced with no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Instrumentation{
		tracer:  tracer,
		metrics: metrics,
		logger:  SafeLogger(logger),
	}
}

// NopInstrumentation returns an Instrumentation that records nothing.
func NopInstrumentation() *Instrumentation {
	return NewInstrumentation(nil, nil, nil)
}

// InstrumentationFromObserver creates an Instrumentation from an Observer.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the panic-safe logger used by this Instrumentation.
func (in *Instrumentation) Logger() Logger {
	return in.logger
}

// WrapProbe wraps fn with a probe span, probe metrics and an outcome log line.
func (in *Instrumentation) WrapProbe(meta ProbeMeta, fn ProbeFunc) ProbeFunc {
	return func(ctx context.Context) ProbeOutcome {
		spanCtx, span := in.startProbe(ctx, meta)

		out := fn(spanCtx)

		guard(func() { in.tracer.EndProbe(span, out.Status, out.Failure, out.Err) })
		guard(func() { in.metrics.RecordProbe(ctx, meta, out.Status, out.Failure, out.Duration) })

		fields := []Field{
			F("status", out.Status),
			F("duration_ms", millis(out.Duration)),
		}
		log := in.logger.WithProbe(meta)
		switch {
		case out.Failure != "" && out.Failure != "expected":
			fields = append(fields, F("failure", out.Failure), F("message", out.Message))
			if out.Err != nil {
				fields = append(fields, F("error", out.Err))
			}
			log.Warn(ctx, "probe run failed", fields...)
		default:
			log.Debug(ctx, "probe run completed", fields...)
		}

		return out
	}
}

// WrapEvaluation wraps fn with an evaluation span and evaluation metrics.
func (in *Instrumentation) WrapEvaluation(probes int, fn EvaluationFunc) EvaluationFunc {
	return func(ctx context.Context) EvaluationOutcome {
		spanCtx, span := in.startEvaluation(ctx, probes)

		out := fn(spanCtx)

		guard(func() { in.tracer.EndEvaluation(span, out.Status) })
		guard(func() { in.metrics.RecordEvaluation(ctx, out.Status, out.Entries, out.Duration) })
		in.logger.Debug(ctx, "evaluation completed",
			F("status", out.Status),
			F("entries", out.Entries),
			F("duration_ms", millis(out.Duration)),
		)

		return out
	}
}

func (in *Instrumentation) startProbe(ctx context.Context, meta ProbeMeta) (spanCtx context.Context, span trace.Span) {
	defer func() {
		if recover() != nil {
			spanCtx, span = ctx, noopSpan(ctx)
		}
	}()
	return in.tracer.StartProbe(ctx, meta)
}

func (in *Instrumentation) startEvaluation(ctx context.Context, probes int) (spanCtx context.Context, span trace.Span) {
	defer func() {
		if recover() != nil {
			spanCtx, span = ctx, noopSpan(ctx)
		}
	}()
	return in.tracer.StartEvaluation(ctx, probes)
}

func noopSpan(ctx context.Context) trace.Span {
	_, span := tracenoop.NewTracerProvider().Tracer("noop").Start(ctx, "noop")
	return span
}

func guard(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
