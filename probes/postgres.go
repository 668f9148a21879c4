package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/healthops/health"
)

// PostgresConfig configures a native pgx pool probe.
type PostgresConfig struct {
	Name string
	DSN  string

	// MaxConns caps the probe's pool. Default: 2
	MaxConns int32

	// DegradedLatency marks slower pings as degraded. Zero disables it.
	DegradedLatency time.Duration
}

// PostgresChecker pings PostgreSQL through a pgxpool. It owns the pool.
type PostgresChecker struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

// NewPostgresChecker creates the pool without connecting.
func NewPostgresChecker(ctx context.Context, config PostgresConfig) (*PostgresChecker, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("%w: dsn", ErrMissingParam)
	}
	if config.Name == "" {
		config.Name = "postgres"
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 2
	}

	pcfg, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: dsn: %w", ErrInvalidParam, err)
	}
	pcfg.MaxConns = config.MaxConns
	pcfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("probes: postgres pool: %w", err)
	}
	return &PostgresChecker{config: config, pool: pool}, nil
}

// Name returns the checker name.
func (c *PostgresChecker) Name() string { return c.config.Name }

// Check acquires a connection and pings the server.
func (c *PostgresChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	err := c.pool.Ping(ctx)
	latency := time.Since(start)
	stat := c.pool.Stat()

	var res health.Result
	switch {
	case err != nil && ctx.Err() != nil:
		return health.Unhealthy("postgres ping cancelled", ctx.Err())
	case err != nil:
		res = health.Unhealthy(fmt.Sprintf("postgres ping failed: %v", err), err)
	case c.config.DegradedLatency > 0 && latency > c.config.DegradedLatency:
		res = health.Degraded(fmt.Sprintf("postgres ping slow: %s exceeds %s",
			latency.Round(time.Millisecond), c.config.DegradedLatency))
	default:
		res = health.Healthy(fmt.Sprintf("postgres reachable in %s", latency.Round(time.Millisecond)))
	}
	return res.
		WithDetail("total_conns", stat.TotalConns()).
		WithDetail("idle_conns", stat.IdleConns()).
		WithDetail("acquired_conns", stat.AcquiredConns())
}

// Close closes the pool.
func (c *PostgresChecker) Close() error {
	c.pool.Close()
	return nil
}
