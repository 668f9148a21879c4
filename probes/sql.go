package probes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/healthops/health"
)

// SQLDrivers lists the database/sql drivers linked into the binary.
var SQLDrivers = []string{"sqlite", "pgx"}

// SQLConfig configures a database/sql probe.
type SQLConfig struct {
	Name   string
	Driver string // sqlite or pgx
	DSN    string

	// Query, when set, runs after the ping and must return a row.
	Query string

	// MaxOpenConns caps the probe's own pool. Default: 2
	MaxOpenConns int
}

// SQLChecker pings a database through database/sql. It owns the *sql.DB.
type SQLChecker struct {
	config SQLConfig
	db     *sql.DB
}

// NewSQLChecker opens a lazily connecting handle for config.
func NewSQLChecker(config SQLConfig) (*SQLChecker, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("%w: dsn", ErrMissingParam)
	}
	if config.Driver == "" {
		return nil, fmt.Errorf("%w: driver", ErrMissingParam)
	}
	if config.Name == "" {
		config.Name = config.Driver
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 2
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: driver %q: %w", ErrInvalidParam, config.Driver, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(time.Minute)
	return &SQLChecker{config: config, db: db}, nil
}

// Name returns the checker name.
func (c *SQLChecker) Name() string { return c.config.Name }

// Check pings the database and runs the optional query.
func (c *SQLChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		return c.failed(ctx, "ping", err)
	}
	if c.config.Query != "" {
		var v any
		if err := c.db.QueryRowContext(ctx, c.config.Query).Scan(&v); err != nil {
			return c.failed(ctx, "query", err)
		}
	}
	latency := time.Since(start)

	stats := c.db.Stats()
	return health.Healthy(fmt.Sprintf("%s database reachable in %s", c.config.Driver, latency.Round(time.Millisecond))).
		WithDetail("driver", c.config.Driver).
		WithDetail("open_connections", stats.OpenConnections).
		WithDetail("in_use", stats.InUse)
}

func (c *SQLChecker) failed(ctx context.Context, op string, err error) health.Result {
	if ctx.Err() != nil {
		return health.Unhealthy(c.config.Driver+" "+op+" cancelled", ctx.Err())
	}
	return health.Unhealthy(fmt.Sprintf("%s %s failed: %v", c.config.Driver, op, err), err).
		WithDetail("driver", c.config.Driver)
}

// Close closes the underlying pool.
func (c *SQLChecker) Close() error {
	return c.db.Close()
}
