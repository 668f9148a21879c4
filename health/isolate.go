package health

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// DefaultCheckTimeout is the per-check budget used when none is configured.
const DefaultCheckTimeout = 5 * time.Second

// Backstop descriptions for checks that had not returned when the
// evaluation ended.
const (
	msgEvaluationTimedOut = "evaluation timed out before this check completed"
	msgEvaluationCanceled = "evaluation was cancelled before this check completed"
)

// RunIsolated runs checker with a bounded budget and returns a fully
// populated Result. It never panics.
//
// A normal return is passed through with Duration and Timestamp filled in
// when unset. Everything else is converted to StatusDegraded:
//   - the check outliving timeout: "<name> timed out after <timeout>"
//   - ctx ending first: "<name> was cancelled", or the evaluation backstop
//     text when ctx carries ErrEvaluationTimeout as its cause
//   - a panic or an invalid status: "<name> failed: <summary>"
//
// The Result's Error is always a *Failure when the run was not clean.
func RunIsolated(ctx context.Context, checker Checker, timeout time.Duration, logger observe.Logger) Result {
	return runIsolated(ctx, checkerName(checker), checker, timeout, observe.SafeLogger(logger))
}

// runIsolated is RunIsolated with the probe name supplied by the caller, so
// that results are described by their registered name.
func runIsolated(ctx context.Context, name string, checker Checker, timeout time.Duration, log observe.Logger) (res Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = faultResult(name, start, &resilience.PanicError{Value: r, Stack: debug.Stack()}, log)
		}
	}()

	if checker == nil {
		return faultResult(name, start, ErrNilChecker, log)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	var out Result
	err := resilience.ExecuteWithTimeout(ctx, timeout, func(pctx context.Context) error {
		out = checker.Check(pctx)
		// A check that gave up because its context ended is classified by
		// why the context ended, not by what it returned.
		if pctx.Err() != nil && isContextErr(out.Error) {
			return context.Cause(pctx)
		}
		return nil
	})

	switch {
	case err == nil:
		return normalize(name, out, start, log)
	case errors.Is(err, resilience.ErrPanic):
		return faultResult(name, start, err, log)
	case errors.Is(err, resilience.ErrTimeout):
		return stamp(Result{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%s timed out after %s", name, timeout),
			Error:   &Failure{Kind: FailureTimeout, Probe: name, Err: ErrCheckTimeout},
		}, start)
	case errors.Is(err, ErrEvaluationTimeout):
		return stamp(Result{
			Status:  StatusDegraded,
			Message: msgEvaluationTimedOut,
			Error:   &Failure{Kind: FailureCancelled, Probe: name, Err: ErrEvaluationTimeout},
		}, start)
	case ctx.Err() != nil:
		return stamp(Result{
			Status:  StatusDegraded,
			Message: name + " was cancelled",
			Error:   &Failure{Kind: FailureCancelled, Probe: name, Err: err},
		}, start)
	default:
		return faultResult(name, start, err, log)
	}
}

// normalize fills in what a check left unset and rejects invalid statuses.
func normalize(name string, r Result, start time.Time, log observe.Logger) Result {
	if !r.Status.Valid() {
		return faultResult(name, start, fmt.Errorf("%w %d", ErrInvalidStatus, int(r.Status)), log)
	}
	if r.Message == "" {
		r.Message = fmt.Sprintf("%s returned %s", name, r.Status)
	}
	if r.Error != nil {
		var f *Failure
		if !errors.As(r.Error, &f) {
			r.Error = &Failure{Kind: FailureExpected, Probe: name, Err: r.Error}
		}
	}
	if r.Duration <= 0 {
		r.Duration = time.Since(start)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}

func faultResult(name string, start time.Time, err error, log observe.Logger) Result {
	summary := err.Error()
	var perr *resilience.PanicError
	if errors.As(err, &perr) {
		summary = fmt.Sprint(perr.Value)
		err = fmt.Errorf("%w: %w", ErrCheckPanicked, err)
		log.Error(context.Background(), "health check panicked",
			observe.F("probe", name),
			observe.F("panic", summary),
			observe.F("stack", string(perr.Stack)),
		)
	} else {
		log.Error(context.Background(), "health check failed unexpectedly",
			observe.F("probe", name),
			observe.F("error", err),
		)
	}

	return stamp(Result{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%s failed: %s", name, summary),
		Error:   &Failure{Kind: FailureFault, Probe: name, Err: err},
	}, start)
}

func stamp(r Result, start time.Time) Result {
	r.Duration = time.Since(start)
	r.Timestamp = start
	return r
}

// checkerName returns checker.Name(), tolerating nil checkers and panicking
// Name implementations.
func checkerName(checker Checker) (name string) {
	defer func() {
		if recover() != nil || name == "" {
			name = "check"
		}
	}()
	if checker == nil {
		return ""
	}
	return checker.Name()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCheckTimeout) || errors.Is(err, resilience.ErrTimeout)
}
