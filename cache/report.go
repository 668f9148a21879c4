package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// ErrMalformedEntry indicates a cached value that is not a stored Evaluation.
var ErrMalformedEntry = errors.New("cache: malformed report entry")

// Evaluation is an encoded report together with its overall status.
type Evaluation struct {
	Status string // healthy|degraded|unhealthy
	Body   []byte
	Cached bool // served from cache
}

// Healthy reports whether Status is "healthy".
func (e Evaluation) Healthy() bool {
	return e.Status == "healthy"
}

// EvaluateFunc produces a fresh encoded report.
type EvaluateFunc func(ctx context.Context) (Evaluation, error)

// ReportCache caches encoded reports per endpoint and tag selection.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent misses for one key
//     share a single evaluation.
//   - Context: the shared evaluation is detached from any one caller's
//     cancellation.
//   - Errors: evaluation errors are returned and never cached.
type ReportCache struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	group  singleflight.Group
}

// NewReportCache creates a report cache. A nil keyer uses DefaultKeyer.
func NewReportCache(c Cache, keyer Keyer, policy Policy) (*ReportCache, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &ReportCache{cache: c, keyer: keyer, policy: policy}, nil
}

// Policy returns the caching policy.
func (rc *ReportCache) Policy() Policy {
	return rc.policy
}

// Get returns the cached evaluation for endpoint and tags, running eval on
// a miss.
func (rc *ReportCache) Get(ctx context.Context, endpoint string, tags []string, eval EvaluateFunc) (Evaluation, error) {
	if !rc.policy.ShouldCache() {
		return eval(ctx)
	}

	key, err := rc.keyer.Key(endpoint, tags)
	if err != nil {
		return eval(ctx)
	}

	if raw, ok := rc.cache.Get(ctx, key); ok {
		if ev, err := decodeEvaluation(raw); err == nil {
			ev.Cached = true
			return ev, nil
		}
		_ = rc.cache.Delete(ctx, key)
	}

	v, err, _ := rc.group.Do(key, func() (any, error) {
		ev, err := eval(context.WithoutCancel(ctx))
		if err != nil {
			return Evaluation{}, err
		}
		if ttl := rc.policy.TTLFor(ev.Healthy()); ttl > 0 {
			_ = rc.cache.Set(ctx, key, encodeEvaluation(ev), ttl)
		}
		return ev, nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	return v.(Evaluation), nil
}

// Invalidate drops the cached evaluation for endpoint and tags.
func (rc *ReportCache) Invalidate(ctx context.Context, endpoint string, tags []string) error {
	key, err := rc.keyer.Key(endpoint, tags)
	if err != nil {
		return err
	}
	return rc.cache.Delete(ctx, key)
}

// Entries are stored as "<status>\n<body>".
func encodeEvaluation(ev Evaluation) []byte {
	buf := make([]byte, 0, len(ev.Status)+1+len(ev.Body))
	buf = append(buf, ev.Status...)
	buf = append(buf, '\n')
	return append(buf, ev.Body...)
}

func decodeEvaluation(raw []byte) (Evaluation, error) {
	status, body, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok || len(status) == 0 {
		return Evaluation{}, fmt.Errorf("%w: missing status", ErrMalformedEntry)
	}
	return Evaluation{Status: string(status), Body: body}, nil
}
