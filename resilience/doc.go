// Package resilience provides the guard rails used around health probes.
//
// Probes talk to things that fail: remote services hang, DNS servers go
// away, databases refuse connections. The patterns here keep a single
// misbehaving dependency from stalling or flooding the rest of the system.
//
// # Patterns
//
//   - Timeout: bounds an operation and reports whether its own budget or the
//     caller's context ended it. Panics inside the operation are captured
//     as *PanicError instead of crashing the process.
//
//   - Retry: re-runs transient failures with exponential, linear or
//     constant backoff. Context errors are never retried.
//
//   - Circuit Breaker: stops calling a dependency after repeated failures
//     and lets a single trial request through once the reset timeout passes.
//
//   - Rate Limiter: token bucket limiting how often a dependency is probed.
//
//   - Bulkhead: caps how many probes of one dependency run at once.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  3,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pingUpstream(ctx)
//	})
package resilience
