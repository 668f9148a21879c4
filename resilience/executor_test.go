package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	called := false
	err := NewExecutor().Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	if err != nil || !called {
		t.Errorf("Execute() error = %v, called = %v", err, called)
	}
	if NewExecutor().CircuitBreaker() != nil {
		t.Error("CircuitBreaker() should be nil by default")
	}
}

func TestExecutor_RetryInsideCircuit(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("down")
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Execute() error = %v, want ErrMaxRetriesExceeded", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if cb.State() != StateOpen {
		t.Errorf("breaker state = %v, want open after one failed retried call", cb.State())
	}

	err = e.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			RetryIf:      func(err error) bool { return errors.Is(err, ErrTimeout) },
		})),
		WithTimeout(10*time.Millisecond),
	)

	var attempts atomic.Int32
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		if attempts.Add(1) == 1 {
			<-ctx.Done()
			time.Sleep(5 * time.Millisecond)
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v, want success on second attempt", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestExecutor_RateLimiterOutermost(t *testing.T) {
	e := NewExecutor(
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 0.01, Burst: 1})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 1})),
	)
	op := func(ctx context.Context) error { return nil }

	if err := e.Execute(context.Background(), op); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if err := e.Execute(context.Background(), op); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("second Execute() error = %v, want ErrRateLimitExceeded", err)
	}
}
