package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// DefaultEvaluationTimeout is the overall budget used when none is configured.
const DefaultEvaluationTimeout = 10 * time.Second

// aggregatorEntryName names the synthetic entry reported when evaluation
// itself fails.
const aggregatorEntryName = "aggregator"

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// CheckTimeout is the budget of each individual check. It is clamped to
	// Timeout.
	// Default: 5 seconds
	CheckTimeout time.Duration

	// Logger receives unexpected check failures. Panics in the logger are
	// contained.
	// Default: discard
	Logger observe.Logger

	// Telemetry instruments each check run and each evaluation.
	// Default: none
	Telemetry *observe.Instrumentation
}

// Registration describes a registered check.
type Registration struct {
	Name         string
	Tags         []string
	CheckTimeout time.Duration
}

// HasTag reports whether the registration carries tag.
func (r Registration) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// RegisterOption customizes a registration.
type RegisterOption func(*registration)

// WithTags adds tags to a registration.
func WithTags(tags ...string) RegisterOption {
	return func(r *registration) {
		r.tags = appendUnique(r.tags, tags...)
	}
}

// WithCheckTimeout overrides the per-check budget for one registration.
func WithCheckTimeout(d time.Duration) RegisterOption {
	return func(r *registration) {
		if d > 0 {
			r.timeout = d
		}
	}
}

type registration struct {
	name    string
	checker Checker
	tags    []string
	timeout time.Duration
}

func (r *registration) view() Registration {
	return Registration{Name: r.name, Tags: slices.Clone(r.tags), CheckTimeout: r.timeout}
}

// Aggregator combines multiple health checkers into a single report.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Errors: Evaluate never panics and always returns a Report.
//   - Ownership: registered checkers implementing io.Closer are closed when
//     they are unregistered, replaced, or the aggregator is closed.
type Aggregator struct {
	config AggregatorConfig
	log    observe.Logger
	inst   *observe.Instrumentation

	mu       sync.RWMutex
	checkers map[string]*registration
	order    []string // Maintains registration order
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEvaluationTimeout
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.CheckTimeout > cfg.Timeout {
		cfg.CheckTimeout = cfg.Timeout
	}

	log := observe.SafeLogger(cfg.Logger)
	inst := cfg.Telemetry
	if inst == nil {
		inst = observe.NewInstrumentation(nil, nil, log)
	}

	return &Aggregator{
		config:   cfg,
		log:      log,
		inst:     inst,
		checkers: make(map[string]*registration),
		order:    make([]string, 0),
	}
}

// Config returns the effective configuration.
func (a *Aggregator) Config() AggregatorConfig {
	return a.config
}

// Register adds a health checker under name. Registering an existing name
// replaces it in place, keeping its position; the replaced checker is
// closed if it implements io.Closer.
//
// Tags come from WithTags and, when checker implements Tagger, from the
// checker itself.
func (a *Aggregator) Register(name string, checker Checker, opts ...RegisterOption) error {
	if checker == nil {
		return ErrNilChecker
	}
	if ac, ok := checker.(*aggregatorChecker); ok && ac.agg == a {
		return ErrAggregatorCycle
	}
	if name == "" {
		name = checkerName(checker)
	}

	reg := &registration{name: name, checker: checker, timeout: a.config.CheckTimeout}
	if t, ok := checker.(Tagger); ok {
		reg.tags = appendUnique(nil, t.Tags()...)
	}
	for _, opt := range opts {
		opt(reg)
	}

	a.mu.Lock()
	prev, exists := a.checkers[name]
	if !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = reg
	a.mu.Unlock()

	if exists && prev.checker != checker {
		return closeChecker(prev.checker)
	}
	return nil
}

// Unregister removes a health checker from the aggregator and releases it.
func (a *Aggregator) Unregister(name string) error {
	a.mu.Lock()
	reg, ok := a.checkers[name]
	if ok {
		delete(a.checkers, name)
		a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}
	return closeChecker(reg.checker)
}

// Close unregisters and releases every checker.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	regs := make([]*registration, 0, len(a.order))
	for _, name := range a.order {
		regs = append(regs, a.checkers[name])
	}
	a.checkers = make(map[string]*registration)
	a.order = a.order[:0]
	a.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if err := closeChecker(reg.checker); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reg.name, err))
		}
	}
	return errors.Join(errs...)
}

// CheckerNames returns the names of all registered checkers.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.order)
}

// Registrations returns every registration in order.
func (a *Aggregator) Registrations() []Registration {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Registration, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.checkers[name].view())
	}
	return out
}

// Check runs a single named health check, isolated and bounded by both the
// check and the evaluation budget.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeoutCause(ctx, a.config.Timeout, ErrEvaluationTimeout)
	defer cancel()

	return a.runCheck(ctx, reg), nil
}

// Evaluate runs every registered check selected by pred concurrently and
// folds the results into a Report. A nil pred selects everything.
//
// Entries follow registration order. Checks still running when the overall
// budget elapses or ctx ends are reported as StatusDegraded; results that
// completed before that are kept.
func (a *Aggregator) Evaluate(ctx context.Context, pred Predicate) (report Report) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			report = a.internalFailure(start, r)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	selected := a.selectChecks(pred)

	a.inst.WrapEvaluation(len(selected), func(ctx context.Context) observe.EvaluationOutcome {
		report = a.evaluate(ctx, selected, start)
		return observe.EvaluationOutcome{
			Status:   report.Status().String(),
			Entries:  report.Len(),
			Duration: report.Duration(),
		}
	})(ctx)

	return report
}

func (a *Aggregator) selectChecks(pred Predicate) []*registration {
	a.mu.RLock()
	defer a.mu.RUnlock()

	selected := make([]*registration, 0, len(a.order))
	for _, name := range a.order {
		reg := a.checkers[name]
		if pred == nil || pred(reg.view()) {
			selected = append(selected, reg)
		}
	}
	return selected
}

type indexedResult struct {
	index  int
	result Result
}

func (a *Aggregator) evaluate(ctx context.Context, selected []*registration, start time.Time) Report {
	if len(selected) == 0 {
		return newReport(nil, time.Since(start))
	}

	ctx, cancel := context.WithTimeoutCause(ctx, a.config.Timeout, ErrEvaluationTimeout)
	defer cancel()

	resultCh := make(chan indexedResult, len(selected))
	for i, reg := range selected {
		go func() {
			resultCh <- indexedResult{index: i, result: a.runCheck(ctx, reg)}
		}()
	}

	results := make([]Result, len(selected))
	done := make([]bool, len(selected))
	remaining := len(selected)

	collect := func(r indexedResult) {
		results[r.index] = r.result
		done[r.index] = true
		remaining--
	}

wait:
	for remaining > 0 {
		select {
		case r := <-resultCh:
			collect(r)
		case <-ctx.Done():
			break wait
		}
	}

	// Keep anything that finished alongside the deadline.
drain:
	for remaining > 0 {
		select {
		case r := <-resultCh:
			collect(r)
		default:
			break drain
		}
	}

	if remaining > 0 {
		straggler := a.stragglerResult(context.Cause(ctx), start)
		for i := range results {
			if !done[i] {
				r := straggler
				r.Error = &Failure{Kind: FailureCancelled, Probe: selected[i].name, Err: context.Cause(ctx)}
				results[i] = r
				a.log.Warn(ctx, "health check did not complete before evaluation ended",
					observe.F("probe", selected[i].name),
					observe.F("reason", r.Message),
				)
			}
		}
	}

	entries := make([]Entry, len(selected))
	for i, reg := range selected {
		entries[i] = Entry{Name: reg.name, Tags: slices.Clone(reg.tags), Result: results[i]}
	}
	return newReport(entries, time.Since(start))
}

func (a *Aggregator) stragglerResult(cause error, start time.Time) Result {
	msg := msgEvaluationCanceled
	if errors.Is(cause, ErrEvaluationTimeout) {
		msg = msgEvaluationTimedOut
	}
	return Result{
		Status:    StatusDegraded,
		Message:   msg,
		Duration:  time.Since(start),
		Timestamp: start,
	}
}

// runCheck runs one registration through telemetry and isolation. It never
// panics, so it is safe as the body of a bare goroutine.
func (a *Aggregator) runCheck(ctx context.Context, reg *registration) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = faultResult(reg.name, start, &resilience.PanicError{Value: r, Stack: debug.Stack()}, a.log)
		}
	}()

	meta := observe.ProbeMeta{Name: reg.name, Tags: reg.tags}
	a.inst.WrapProbe(meta, func(ctx context.Context) observe.ProbeOutcome {
		res = runIsolated(ctx, reg.name, reg.checker, reg.timeout, a.log.WithProbe(meta))
		return observe.ProbeOutcome{
			Status:   res.Status.String(),
			Failure:  KindOf(res.Error).String(),
			Message:  res.Message,
			Err:      res.Error,
			Duration: res.Duration,
		}
	})(ctx)

	return res
}

// internalFailure builds the report returned when evaluation itself panics.
func (a *Aggregator) internalFailure(start time.Time, r any) Report {
	log := observe.NopLogger()
	if a != nil {
		log = a.log
	}
	perr := &resilience.PanicError{Value: r, Stack: debug.Stack()}
	log.Error(context.Background(), "health evaluation failed",
		observe.F("panic", fmt.Sprint(r)),
		observe.F("stack", string(perr.Stack)),
	)

	res := Result{
		Status:    StatusDegraded,
		Message:   fmt.Sprintf("health evaluation failed: %v", r),
		Error:     &Failure{Kind: FailureFault, Probe: aggregatorEntryName, Err: perr},
		Duration:  time.Since(start),
		Timestamp: start,
	}
	return newReport([]Entry{{Name: aggregatorEntryName, Result: res}}, time.Since(start))
}

// Checker returns a single Checker interface for the aggregator.
// This allows the aggregator to be used as a checker itself.
func (a *Aggregator) Checker() Checker {
	return &aggregatorChecker{agg: a}
}

type aggregatorChecker struct {
	agg *Aggregator
}

func (c *aggregatorChecker) Name() string {
	return "aggregate"
}

// activeAggregator links the aggregators evaluating on a context so that
// indirect cycles are cut instead of recursing until the deadline.
type activeAggregator struct {
	agg    *Aggregator
	parent *activeAggregator
}

type activeAggregatorKey struct{}

func evaluating(ctx context.Context, agg *Aggregator) bool {
	for a, _ := ctx.Value(activeAggregatorKey{}).(*activeAggregator); a != nil; a = a.parent {
		if a.agg == agg {
			return true
		}
	}
	return false
}

func (c *aggregatorChecker) Check(ctx context.Context) Result {
	if evaluating(ctx, c.agg) {
		return Result{
			Status:    StatusDegraded,
			Message:   "aggregate check re-entered its own aggregator",
			Error:     ErrAggregatorCycle,
			Timestamp: time.Now(),
		}
	}
	parent, _ := ctx.Value(activeAggregatorKey{}).(*activeAggregator)
	ctx = context.WithValue(ctx, activeAggregatorKey{}, &activeAggregator{agg: c.agg, parent: parent})

	report := c.agg.Evaluate(ctx, nil)

	details := make(map[string]any, report.Len())
	for _, e := range report.entries {
		details[e.Name] = map[string]any{
			"status":   e.Result.Status.String(),
			"message":  e.Result.Message,
			"duration": e.Result.Duration.String(),
		}
	}

	return Result{
		Status:    report.Status(),
		Message:   report.Message(),
		Details:   details,
		Duration:  report.Duration(),
		Timestamp: report.GeneratedAt(),
	}
}

func closeChecker(c Checker) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
