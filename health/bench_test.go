package health

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func benchAggregator(b *testing.B, n int) *Aggregator {
	b.Helper()
	agg := NewAggregator(AggregatorConfig{Timeout: 10 * time.Second})
	for i := range n {
		name := fmt.Sprintf("check%d", i)
		if err := agg.Register(name, NewCheckerFunc(name, func(context.Context) Result {
			return Healthy("ok")
		}), WithTags("ready")); err != nil {
			b.Fatal(err)
		}
	}
	return agg
}

func BenchmarkAggregator_Evaluate(b *testing.B) {
	for _, n := range []int{1, 5, 25} {
		b.Run(fmt.Sprintf("checks=%d", n), func(b *testing.B) {
			agg := benchAggregator(b, n)
			ctx := context.Background()

			b.ResetTimer()
			for b.Loop() {
				_ = agg.Evaluate(ctx, nil)
			}
		})
	}
}

func BenchmarkAggregator_EvaluateByTags(b *testing.B) {
	agg := benchAggregator(b, 10)
	ctx := context.Background()
	pred := ByTags("ready")

	b.ResetTimer()
	for b.Loop() {
		_ = agg.Evaluate(ctx, pred)
	}
}

func BenchmarkRunIsolated(b *testing.B) {
	c := NewCheckerFunc("bench", func(context.Context) Result {
		return Healthy("ok")
	})
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		_ = RunIsolated(ctx, c, time.Second, nil)
	}
}

func BenchmarkWorse(b *testing.B) {
	statuses := []Status{StatusHealthy, StatusDegraded, StatusHealthy, StatusUnhealthy}

	for b.Loop() {
		s := StatusHealthy
		for _, st := range statuses {
			s = Worse(s, st)
		}
		_ = s
	}
}
