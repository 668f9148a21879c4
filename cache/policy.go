package cache

import "time"

// Policy configures how long reports are cached.
type Policy struct {
	// DefaultTTL is how long a healthy report is served from cache.
	// If zero, caching is disabled.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// UnhealthyTTL is how long a degraded or unhealthy report is served.
	// If zero, such reports are not cached.
	UnhealthyTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 seconds, MaxTTL: 1 minute, UnhealthyTTL: 1 second
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:   5 * time.Second,
		MaxTTL:       time.Minute,
		UnhealthyTTL: time.Second,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// TTLFor returns the TTL for a report of the given health.
func (p Policy) TTLFor(healthy bool) time.Duration {
	if !p.ShouldCache() {
		return 0
	}
	if healthy {
		return p.EffectiveTTL(0)
	}
	if p.UnhealthyTTL <= 0 {
		return 0
	}
	return p.EffectiveTTL(min(p.UnhealthyTTL, p.DefaultTTL))
}
