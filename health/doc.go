// Package health runs health checks in isolation and folds their outcomes
// into a single Report.
//
// # Core Concepts
//
// A Checker reports one health signal as a Result with a Status: Healthy,
// Degraded or Unhealthy, ordered by severity. An Aggregator holds named
// checkers in registration order and evaluates them concurrently.
//
// Every check runs through RunIsolated, which bounds it by a per-check
// timeout and converts panics, timeouts and cancellation into Degraded
// results. Degraded, not Unhealthy, marks a signal that could not be
// determined. The aggregator adds an overall budget on top: checks still
// running when it elapses are reported as Degraded while finished ones keep
// their real result. Evaluate therefore always returns a Report.
//
// # Basic Usage
//
//	agg := health.NewAggregator(health.AggregatorConfig{
//	    Timeout:      10 * time.Second,
//	    CheckTimeout: 2 * time.Second,
//	})
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	agg.Register("db", health.NewPingChecker("db", db), health.WithTags("ready"))
//
//	report := agg.Evaluate(ctx, nil)
//	fmt.Println(report.Status(), report.Message())
//
//	// Only checks tagged "ready".
//	ready := agg.Evaluate(ctx, health.ByTags("ready"))
//
// The report's Status is the most severe entry status, or Healthy when
// nothing was selected. Entries are always in registration order.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness), /health (the full
// Report as JSON, filterable with ?tag=) and /health/{name}.
package health
