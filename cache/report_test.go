package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestReportCache(t *testing.T, policy Policy) *ReportCache {
	t.Helper()
	rc, err := NewReportCache(NewMemoryCache(), nil, policy)
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}
	return rc
}

func TestNewReportCache_NilCache(t *testing.T) {
	if _, err := NewReportCache(nil, nil, DefaultPolicy()); !errors.Is(err, ErrNilCache) {
		t.Fatalf("expected ErrNilCache, got %v", err)
	}
}

func TestReportCache_HitAfterMiss(t *testing.T) {
	rc := newTestReportCache(t, DefaultPolicy())
	ctx := context.Background()
	var calls atomic.Int32
	eval := func(context.Context) (Evaluation, error) {
		calls.Add(1)
		return Evaluation{Status: "healthy", Body: []byte(`{"status":"healthy"}`)}, nil
	}

	first, err := rc.Get(ctx, "/health", nil, eval)
	if err != nil || first.Cached {
		t.Fatalf("first Get = (%+v, %v), want fresh evaluation", first, err)
	}
	second, err := rc.Get(ctx, "/health", nil, eval)
	if err != nil || !second.Cached {
		t.Fatalf("second Get = (%+v, %v), want cached evaluation", second, err)
	}
	if string(second.Body) != `{"status":"healthy"}` || second.Status != "healthy" {
		t.Errorf("cached evaluation mismatch: %+v", second)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 evaluation, got %d", calls.Load())
	}
}

func TestReportCache_UnhealthyNotCachedWithoutTTL(t *testing.T) {
	rc := newTestReportCache(t, Policy{DefaultTTL: time.Minute})
	var calls atomic.Int32
	eval := func(context.Context) (Evaluation, error) {
		calls.Add(1)
		return Evaluation{Status: "unhealthy", Body: []byte("{}")}, nil
	}

	for range 3 {
		if _, err := rc.Get(context.Background(), "/health", nil, eval); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected every call to evaluate, got %d", calls.Load())
	}
}

func TestReportCache_ErrorsNotCached(t *testing.T) {
	rc := newTestReportCache(t, DefaultPolicy())
	boom := errors.New("boom")
	var calls atomic.Int32
	eval := func(context.Context) (Evaluation, error) {
		calls.Add(1)
		return Evaluation{}, boom
	}

	for range 2 {
		if _, err := rc.Get(context.Background(), "/health", nil, eval); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected errors to be re-evaluated, got %d calls", calls.Load())
	}
}

func TestReportCache_TagSelectionsAreSeparate(t *testing.T) {
	rc := newTestReportCache(t, DefaultPolicy())
	eval := func(status string) EvaluateFunc {
		return func(context.Context) (Evaluation, error) {
			return Evaluation{Status: status, Body: []byte(status)}, nil
		}
	}
	ctx := context.Background()

	_, _ = rc.Get(ctx, "/health", []string{"db"}, eval("healthy"))
	got, _ := rc.Get(ctx, "/health", []string{"cache"}, eval("degraded"))
	if got.Cached || got.Status != "degraded" {
		t.Errorf("expected separate evaluation for other tags, got %+v", got)
	}
}

func TestReportCache_ConcurrentMissesShareEvaluation(t *testing.T) {
	rc := newTestReportCache(t, DefaultPolicy())
	var calls atomic.Int32
	release := make(chan struct{})
	eval := func(context.Context) (Evaluation, error) {
		calls.Add(1)
		<-release
		return Evaluation{Status: "healthy", Body: []byte("ok")}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := rc.Get(context.Background(), "/health", nil, eval); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected concurrent misses to share one evaluation, got %d", calls.Load())
	}
}

func TestReportCache_Invalidate(t *testing.T) {
	rc := newTestReportCache(t, DefaultPolicy())
	ctx := context.Background()
	eval := func(context.Context) (Evaluation, error) {
		return Evaluation{Status: "healthy", Body: []byte("ok")}, nil
	}

	_, _ = rc.Get(ctx, "/health", nil, eval)
	if err := rc.Invalidate(ctx, "/health", nil); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, _ := rc.Get(ctx, "/health", nil, eval)
	if got.Cached {
		t.Error("expected miss after Invalidate")
	}
}

func TestReportCache_Disabled(t *testing.T) {
	rc := newTestReportCache(t, NoCachePolicy())
	var calls atomic.Int32
	eval := func(context.Context) (Evaluation, error) {
		calls.Add(1)
		return Evaluation{Status: "healthy"}, nil
	}
	_, _ = rc.Get(context.Background(), "/health", nil, eval)
	_, _ = rc.Get(context.Background(), "/health", nil, eval)
	if calls.Load() != 2 {
		t.Errorf("expected no caching, got %d calls", calls.Load())
	}
}

func TestDecodeEvaluation_Malformed(t *testing.T) {
	if _, err := decodeEvaluation([]byte("no-separator")); !errors.Is(err, ErrMalformedEntry) {
		t.Errorf("expected ErrMalformedEntry, got %v", err)
	}
}
