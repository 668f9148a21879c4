package health_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/health"
)

func ExampleNewCheckerFunc() {
	dbChecker := health.NewCheckerFunc("database", func(ctx context.Context) health.Result {
		return health.Healthy("database connected")
	})

	result := dbChecker.Check(context.Background())

	fmt.Println("Checker name:", dbChecker.Name())
	fmt.Println("Status:", result.Status)
	fmt.Println("Message:", result.Message)
	// Output:
	// Checker name: database
	// Status: healthy
	// Message: database connected
}

func ExampleAggregator_Evaluate() {
	agg := health.NewAggregator(health.AggregatorConfig{
		Timeout:      time.Second,
		CheckTimeout: 100 * time.Millisecond,
	})
	agg.Register("db", health.NewCheckerFunc("db", func(context.Context) health.Result {
		return health.Healthy("connected")
	}))
	agg.Register("queue", health.NewCheckerFunc("queue", func(context.Context) health.Result {
		return health.Degraded("backlog growing")
	}))
	agg.Register("search", health.NewCheckerFunc("search", func(context.Context) health.Result {
		panic("index not loaded")
	}))

	report := agg.Evaluate(context.Background(), nil)

	fmt.Println("Overall:", report.Status())
	for _, e := range report.Entries() {
		fmt.Printf("%s: %s (%s)\n", e.Name, e.Result.Status, e.Result.Message)
	}
	// Output:
	// Overall: degraded
	// db: healthy (connected)
	// queue: degraded (backlog growing)
	// search: degraded (search failed: index not loaded)
}

func ExampleRunIsolated() {
	slow := health.NewCheckerFunc("upstream", func(ctx context.Context) health.Result {
		<-ctx.Done()
		return health.Unhealthy("gave up", ctx.Err())
	})

	result := health.RunIsolated(context.Background(), slow, 20*time.Millisecond, nil)

	fmt.Println(result.Status)
	fmt.Println(result.Message)
	fmt.Println(health.KindOf(result.Error))
	// Output:
	// degraded
	// upstream timed out after 20ms
	// timeout
}

func ExampleByTags() {
	agg := health.NewAggregator()
	agg.Register("db", health.NewCheckerFunc("db", func(context.Context) health.Result {
		return health.Healthy("ok")
	}), health.WithTags("ready"))
	agg.Register("batch", health.NewCheckerFunc("batch", func(context.Context) health.Result {
		return health.Unhealthy("stalled", nil)
	}))

	report := agg.Evaluate(context.Background(), health.ByTags("ready"))
	fmt.Println(report.Len(), report.Status())
	// Output:
	// 1 healthy
}
