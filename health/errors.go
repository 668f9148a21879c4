package health

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check exceeded its own budget.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrEvaluationTimeout indicates the overall evaluation budget elapsed.
	ErrEvaluationTimeout = errors.New("health: evaluation timeout")

	// ErrCheckPanicked indicates a health check panicked.
	ErrCheckPanicked = errors.New("health: check panicked")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrInvalidStatus indicates a status value outside the defined range.
	ErrInvalidStatus = errors.New("health: invalid status")

	// ErrNilChecker indicates a nil checker was provided.
	ErrNilChecker = errors.New("health: checker is nil")

	// ErrAggregatorCycle indicates an aggregator would evaluate itself.
	ErrAggregatorCycle = errors.New("health: aggregator checks itself")
)

// FailureKind classifies why a probe did not produce a clean result.
type FailureKind int

const (
	// FailureNone means the probe produced a clean result.
	FailureNone FailureKind = iota
	// FailureExpected is a failure the probe itself detected and reported.
	FailureExpected
	// FailureTimeout means the probe exceeded its own budget.
	FailureTimeout
	// FailureCancelled means the caller or the evaluation budget ended the run.
	FailureCancelled
	// FailureFault is an unexpected malfunction: a panic or invalid result.
	FailureFault
)

// String returns the string representation of the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureExpected:
		return "expected"
	case FailureTimeout:
		return "timeout"
	case FailureCancelled:
		return "cancelled"
	case FailureFault:
		return "fault"
	default:
		return ""
	}
}

// Failure carries the classified failure detail of one probe run.
type Failure struct {
	Kind  FailureKind
	Probe string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("health: %s: %s", f.Probe, f.Kind)
	}
	return fmt.Sprintf("health: %s: %s: %v", f.Probe, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf classifies err. A *Failure anywhere in the chain reports its own
// kind; otherwise timeouts and cancellations are recognised by their
// sentinels and anything else is FailureExpected.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	switch {
	case errors.Is(err, ErrCheckTimeout):
		return FailureTimeout
	case errors.Is(err, ErrEvaluationTimeout), errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, ErrCheckPanicked):
		return FailureFault
	default:
		return FailureExpected
	}
}
