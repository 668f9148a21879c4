package probes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// Deps carries shared dependencies into builders.
type Deps struct {
	Logger observe.Logger

	// HTTPClient, when set, is shared by http probes instead of each
	// creating its own.
	HTTPClient *http.Client
}

// Builder creates a checker from one probe declaration.
type Builder func(ctx context.Context, spec config.ProbeConfig, deps Deps) (health.Checker, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{
		"memory":   buildMemory,
		"disk":     buildDisk,
		"http":     buildHTTP,
		"dns":      buildDNS,
		"tcp":      buildTCP,
		"sql":      buildSQL,
		"postgres": buildPostgres,
	}
)

// Register adds a builder for a new probe type.
func Register(typ string, b Builder) error {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || b == nil {
		return fmt.Errorf("%w: empty type or nil builder", ErrInvalidParam)
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	if _, ok := builders[typ]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateType, typ)
	}
	builders[typ] = b
	return nil
}

// Types returns the registered probe types in sorted order.
func Types() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Build creates the checker declared by spec.
func Build(ctx context.Context, spec config.ProbeConfig, deps Deps) (health.Checker, error) {
	typ := strings.ToLower(strings.TrimSpace(spec.Type))
	buildersMu.RLock()
	b, ok := builders[typ]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (probe %q)", ErrUnknownType, spec.Type, spec.Name)
	}

	c, err := b(ctx, spec, deps)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", spec.Name, err)
	}
	return c, nil
}

// RegisterAll builds every probe in specs and registers it with agg under
// the probe's name, tags and timeout. On failure, checkers built so far
// stay registered and the caller should Close the aggregator.
func RegisterAll(ctx context.Context, agg *health.Aggregator, specs []config.ProbeConfig, deps Deps) error {
	log := observe.SafeLogger(deps.Logger)
	for _, spec := range specs {
		c, err := Build(ctx, spec, deps)
		if err != nil {
			return err
		}
		opts := []health.RegisterOption{health.WithTags(spec.Tags...)}
		if spec.Timeout > 0 {
			opts = append(opts, health.WithCheckTimeout(spec.Timeout))
		}
		if err := agg.Register(spec.Name, c, opts...); err != nil {
			return errors.Join(fmt.Errorf("probe %q: %w", spec.Name, err), closeIfCloser(c))
		}
		log.Debug(ctx, "probe registered",
			observe.F("probe.name", spec.Name),
			observe.F("probe.type", spec.Type),
			observe.F("probe.tags", spec.Tags))
	}
	return nil
}

func closeIfCloser(c health.Checker) error {
	if cl, ok := c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func buildMemory(_ context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	warn, err := p.Float("warning_threshold", 0)
	if err != nil {
		return nil, err
	}
	crit, err := p.Float("critical_threshold", 0)
	if err != nil {
		return nil, err
	}
	maxAlloc, err := p.Bytes("max_alloc", 0)
	if err != nil {
		return nil, err
	}
	return health.NewMemoryChecker(health.MemoryCheckerConfig{
		Name:              spec.Name,
		WarningThreshold:  warn,
		CriticalThreshold: crit,
		MaxAlloc:          maxAlloc,
	}), nil
}

func buildDisk(_ context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	path, err := p.String("path", "/")
	if err != nil {
		return nil, err
	}
	minFree, err := p.Bytes("min_free", 0)
	if err != nil {
		return nil, err
	}
	warnFree, err := p.Bytes("warn_free", 0)
	if err != nil {
		return nil, err
	}
	return health.NewDiskChecker(health.DiskCheckerConfig{
		Name:          spec.Name,
		Path:          path,
		MinFreeBytes:  minFree,
		WarnFreeBytes: warnFree,
	}), nil
}

func buildHTTP(_ context.Context, spec config.ProbeConfig, deps Deps) (health.Checker, error) {
	p := Params(spec.Params)
	cfg := HTTPConfig{Name: spec.Name, Client: deps.HTTPClient}

	var err error
	if cfg.URL, err = p.RequiredString("url"); err != nil {
		return nil, err
	}
	if cfg.Method, err = p.String("method", ""); err != nil {
		return nil, err
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	headers, err := p.StringMap("headers")
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		cfg.Header = make(http.Header, len(headers))
		for k, v := range headers {
			cfg.Header.Set(k, v)
		}
	}
	if cfg.ExpectedStatus, err = p.Ints("expected_status"); err != nil {
		return nil, err
	}
	if cfg.DegradedLatency, err = p.Duration("degraded_latency", 0); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxAttempts, err = p.Int("attempts", 1); err != nil {
		return nil, err
	}
	if cfg.Retry.InitialDelay, err = p.Duration("retry_delay", 0); err != nil {
		return nil, err
	}
	backoff, err := p.String("backoff", "exponential")
	if err != nil {
		return nil, err
	}
	cfg.Retry.Strategy = resilience.ParseBackoffStrategy(backoff)
	cfg.Retry.Jitter = true
	if cfg.Circuit.MaxFailures, err = p.Int("failure_threshold", 0); err != nil {
		return nil, err
	}
	if cfg.Circuit.ResetTimeout, err = p.Duration("reset_timeout", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = p.Float("rate_limit", 0); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent, err = p.Int("max_concurrent", 0); err != nil {
		return nil, err
	}
	return NewHTTPChecker(cfg)
}

func buildDNS(_ context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	cfg := DNSConfig{Name: spec.Name}

	var err error
	if cfg.Host, err = p.RequiredString("host"); err != nil {
		return nil, err
	}
	if cfg.Server, err = p.String("server", ""); err != nil {
		return nil, err
	}
	if cfg.RecordType, err = p.String("record_type", "A"); err != nil {
		return nil, err
	}
	if cfg.Network, err = p.String("network", "udp"); err != nil {
		return nil, err
	}
	if cfg.DegradedLatency, err = p.Duration("degraded_latency", 0); err != nil {
		return nil, err
	}
	return NewDNSChecker(cfg)
}

func buildTCP(_ context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	cfg := TCPConfig{Name: spec.Name}

	var err error
	if cfg.Address, err = p.RequiredString("address"); err != nil {
		return nil, err
	}
	if cfg.DegradedLatency, err = p.Duration("degraded_latency", 0); err != nil {
		return nil, err
	}
	return NewTCPChecker(cfg)
}

func buildSQL(_ context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	cfg := SQLConfig{Name: spec.Name}

	var err error
	if cfg.Driver, err = p.RequiredString("driver"); err != nil {
		return nil, err
	}
	if !slices.Contains(SQLDrivers, cfg.Driver) {
		return nil, fmt.Errorf("%w: driver %q, want one of %v", ErrInvalidParam, cfg.Driver, SQLDrivers)
	}
	if cfg.DSN, err = p.RequiredString("dsn"); err != nil {
		return nil, err
	}
	if cfg.Query, err = p.String("query", ""); err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns, err = p.Int("max_open_conns", 0); err != nil {
		return nil, err
	}
	return NewSQLChecker(cfg)
}

func buildPostgres(ctx context.Context, spec config.ProbeConfig, _ Deps) (health.Checker, error) {
	p := Params(spec.Params)
	cfg := PostgresConfig{Name: spec.Name}

	var err error
	if cfg.DSN, err = p.RequiredString("dsn"); err != nil {
		return nil, err
	}
	maxConns, err := p.Int("max_conns", 0)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = int32(maxConns)
	if cfg.DegradedLatency, err = p.Duration("degraded_latency", 0); err != nil {
		return nil, err
	}
	return NewPostgresChecker(ctx, cfg)
}
