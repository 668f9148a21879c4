package probes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/resilience"
)

// maxBodyBytes bounds how much of a response body is read and discarded.
const maxBodyBytes = 64 << 10

// HTTPConfig configures an HTTP probe.
type HTTPConfig struct {
	Name   string
	URL    string
	Method string // GET or HEAD; default GET
	Header http.Header

	// ExpectedStatus lists acceptable status codes. Empty accepts 2xx and 3xx.
	ExpectedStatus []int

	// DegradedLatency marks slower successful responses as degraded.
	// Zero disables the check.
	DegradedLatency time.Duration

	// Retry controls re-attempts on transport errors and 5xx responses.
	Retry resilience.RetryConfig

	// Circuit opens after repeated failed checks so a dead dependency is
	// reported without another request.
	Circuit resilience.CircuitBreakerConfig

	// RateLimit caps requests per second when positive.
	RateLimit float64

	// MaxConcurrent caps in-flight requests when positive.
	MaxConcurrent int

	// Client overrides the HTTP client. The checker owns clients it creates.
	Client *http.Client
}

// HTTPChecker probes an HTTP endpoint.
type HTTPChecker struct {
	config    HTTPConfig
	client    *http.Client
	ownClient bool
	circuit   *resilience.CircuitBreaker
	exec      *resilience.Executor
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d %s", e.code, http.StatusText(e.code))
}

// NewHTTPChecker creates an HTTP checker.
func NewHTTPChecker(config HTTPConfig) (*HTTPChecker, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingParam)
	}
	if config.Name == "" {
		config.Name = "http"
	}
	switch config.Method {
	case "":
		config.Method = http.MethodGet
	case http.MethodGet, http.MethodHead:
	default:
		return nil, fmt.Errorf("%w: method %q", ErrInvalidParam, config.Method)
	}
	if _, err := http.NewRequest(config.Method, config.URL, nil); err != nil {
		return nil, fmt.Errorf("%w: url: %w", ErrInvalidParam, err)
	}

	c := &HTTPChecker{config: config, client: config.Client}
	if c.client == nil {
		c.client = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		c.ownClient = true
	}

	if config.Circuit.Name == "" {
		config.Circuit.Name = config.Name
	}
	c.circuit = resilience.NewCircuitBreaker(config.Circuit)

	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(c.circuit),
		resilience.WithRetry(resilience.NewRetry(config.Retry)),
	}
	if config.RateLimit > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        config.RateLimit,
			Burst:       1,
			WaitOnLimit: true,
		})))
	}
	if config.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
		})))
	}
	c.exec = resilience.NewExecutor(opts...)
	return c, nil
}

// Name returns the checker name.
func (c *HTTPChecker) Name() string { return c.config.Name }

// Circuit returns a snapshot of the checker's circuit breaker.
func (c *HTTPChecker) Circuit() resilience.CircuitSnapshot { return c.circuit.Snapshot() }

// Check performs one request through the resilience pipeline.
func (c *HTTPChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	var (
		code int
		size int64
	)
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		n, status, err := c.do(ctx)
		code, size = status, n
		return err
	})
	latency := time.Since(start)

	res := c.classify(ctx, err, code, size, latency)
	snap := c.circuit.Snapshot()
	return res.
		WithDetail("url", c.config.URL).
		WithDetail("latency", latency.String()).
		WithDetail("circuit", snap.State.String())
}

func (c *HTTPChecker) do(ctx context.Context) (int64, int, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, nil)
	if err != nil {
		return 0, 0, err
	}
	for k, vs := range c.config.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", "healthops-probe")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	n, _ := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		return n, resp.StatusCode, &statusError{code: resp.StatusCode}
	}
	return n, resp.StatusCode, nil
}

func (c *HTTPChecker) classify(ctx context.Context, err error, code int, size int64, latency time.Duration) health.Result {
	target := c.config.Method + " " + c.config.URL
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		snap := c.circuit.Snapshot()
		msg := fmt.Sprintf("%s: circuit open after %d failures", target, snap.Failures)
		if snap.LastError != "" {
			msg += ": " + snap.LastError
		}
		return health.Unhealthy(msg, err)
	case ctx.Err() != nil:
		return health.Unhealthy(target+" cancelled", ctx.Err())
	case err != nil:
		r := health.Unhealthy(fmt.Sprintf("%s failed: %v", target, err), err)
		if code != 0 {
			r = r.WithDetail("status_code", code)
		}
		return r
	}

	r := health.Healthy(fmt.Sprintf("%s returned %d (%s) in %s",
		target, code, humanize.Bytes(uint64(size)), latency.Round(time.Millisecond)))
	if !c.expected(code) {
		r = health.Unhealthy(fmt.Sprintf("%s returned unexpected status %d", target, code), nil)
	} else if c.config.DegradedLatency > 0 && latency > c.config.DegradedLatency {
		r = health.Degraded(fmt.Sprintf("%s slow: %s exceeds %s",
			target, latency.Round(time.Millisecond), c.config.DegradedLatency))
	}
	return r.WithDetail("status_code", code)
}

func (c *HTTPChecker) expected(code int) bool {
	if len(c.config.ExpectedStatus) > 0 {
		return slices.Contains(c.config.ExpectedStatus, code)
	}
	return code >= 200 && code < 400
}

// Close releases idle connections held by a checker-owned client.
func (c *HTTPChecker) Close() error {
	if c.ownClient {
		c.client.CloseIdleConnections()
	}
	return nil
}
