// Package observe provides the telemetry used by the health aggregator.
//
// It carries three concerns: OpenTelemetry tracing and metrics for each probe
// run and each evaluation, a structured Logger passed into the aggregator as
// its logging sink, and exporter setup. It performs no health checking of its
// own; package health calls into it through Instrumentation.
package observe
