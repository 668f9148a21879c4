package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/resilience"
)

func ExampleNewExecutor() {
	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "payments",
			MaxFailures: 5,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
		})),
		resilience.WithTimeout(time.Second),
	)

	attempts := 0
	err := exec.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	fmt.Println(err, attempts)
	// Output:
	// <nil> 3
}

func ExampleCircuitBreaker_State() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	refused := errors.New("connection refused")

	fmt.Println(cb.State())
	for range 2 {
		_ = cb.Execute(ctx, func(context.Context) error { return refused })
	}
	fmt.Println(cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println(errors.Is(err, resilience.ErrCircuitOpen))

	cb.Reset()
	fmt.Println(cb.State())
	// Output:
	// closed
	// open
	// true
	// closed
}

func ExampleExecuteWithTimeout() {
	err := resilience.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return context.Cause(ctx)
	})

	fmt.Println(errors.Is(err, resilience.ErrTimeout))
	// Output:
	// true
}
