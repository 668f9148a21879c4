package health

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Result contains the outcome of a health check.
type Result struct {
	// Status is the health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Details contains arbitrary metadata about the check.
	Details map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// Error is the failure detail, if any.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails replaces the details of a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDetail adds one detail, copying the existing map.
func (r Result) WithDetail(key string, value any) Result {
	d := make(map[string]any, len(r.Details)+1)
	maps.Copy(d, r.Details)
	d[key] = value
	r.Details = d
	return r
}

// WithDuration sets the duration on a result.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// WithError sets the failure detail on a result.
func (r Result) WithError(err error) Result {
	r.Error = err
	return r
}

// Checker is the interface for health checks.
//
// Contract:
//   - Context: Check must return promptly once ctx is done.
//   - Errors: expected failures are reported through the returned Result
//     with StatusUnhealthy or StatusDegraded. Panics are tolerated and
//     converted by RunIsolated, but are never the normal failure path.
//   - Concurrency: Check may be called concurrently across evaluations.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// Tagger is implemented by checkers that carry their own tags.
type Tagger interface {
	Tags() []string
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	tags []string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result, tags ...string) *CheckerFunc {
	return &CheckerFunc{name: name, tags: slices.Clone(tags), fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Tags returns the tags given at construction.
func (f *CheckerFunc) Tags() []string {
	return slices.Clone(f.tags)
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

// Pinger is anything that can report reachability, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingChecker reports Healthy when Ping succeeds and Unhealthy otherwise.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker creates a checker backed by p.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p}
}

// Name returns the name of this checker.
func (c *PingChecker) Name() string {
	return c.name
}

// Check pings the target.
func (c *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.pinger.PingContext(ctx); err != nil {
		return Unhealthy(c.name+" unreachable: "+err.Error(), err).
			WithDuration(time.Since(start))
	}
	return Healthy(c.name + " reachable").WithDuration(time.Since(start))
}
