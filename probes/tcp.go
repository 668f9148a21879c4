package probes

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// TCPConfig configures a TCP connect probe.
type TCPConfig struct {
	Name    string
	Address string

	// DegradedLatency marks slower connects as degraded. Zero disables it.
	DegradedLatency time.Duration
}

// TCPChecker verifies that a TCP endpoint accepts connections.
type TCPChecker struct {
	config TCPConfig
	dialer net.Dialer
}

// NewTCPChecker creates a TCP checker.
func NewTCPChecker(config TCPConfig) (*TCPChecker, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("%w: address", ErrMissingParam)
	}
	if _, _, err := net.SplitHostPort(config.Address); err != nil {
		return nil, fmt.Errorf("%w: address: %w", ErrInvalidParam, err)
	}
	if config.Name == "" {
		config.Name = "tcp"
	}
	return &TCPChecker{config: config}, nil
}

// Name returns the checker name.
func (c *TCPChecker) Name() string { return c.config.Name }

// Check dials the address once.
func (c *TCPChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.config.Address)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return health.Unhealthy("dial "+c.config.Address+" cancelled", ctx.Err())
		}
		return health.Unhealthy(fmt.Sprintf("dial %s failed: %v", c.config.Address, err), err).
			WithDetail("address", c.config.Address)
	}
	_ = conn.Close()

	var res health.Result
	if c.config.DegradedLatency > 0 && latency > c.config.DegradedLatency {
		res = health.Degraded(fmt.Sprintf("connect to %s slow: %s exceeds %s",
			c.config.Address, latency.Round(time.Millisecond), c.config.DegradedLatency))
	} else {
		res = health.Healthy(fmt.Sprintf("connected to %s in %s", c.config.Address, latency.Round(time.Millisecond)))
	}
	return res.
		WithDetail("address", c.config.Address).
		WithDetail("latency", latency.String())
}
