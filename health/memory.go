package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// Name overrides the checker name.
	// Default: "memory"
	Name string

	// WarningThreshold is the fraction of MaxAlloc that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.8 (80%)
	WarningThreshold float64

	// CriticalThreshold is the fraction of MaxAlloc that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes.
	// If zero, the memory obtained from the OS is used.
	MaxAlloc uint64
}

// MemoryChecker compares the Go heap against a budget.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}

	return &MemoryChecker{config: config}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return m.config.Name
}

// Tags returns the default tags of the memory checker.
func (m *MemoryChecker) Tags() []string {
	return []string{"runtime"}
}

// Check performs the memory health check.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("memory check cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	budget := m.config.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	usage := float64(stats.HeapAlloc) / float64(budget)
	details := map[string]any{
		"heap_alloc":    humanize.IBytes(stats.HeapAlloc),
		"heap_in_use":   humanize.IBytes(stats.HeapInuse),
		"sys":           humanize.IBytes(stats.Sys),
		"budget":        humanize.IBytes(budget),
		"usage_percent": fmt.Sprintf("%.1f", usage*100),
		"heap_objects":  stats.HeapObjects,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	msg := fmt.Sprintf("heap %s of %s (%.1f%%)",
		humanize.IBytes(stats.HeapAlloc), humanize.IBytes(budget), usage*100)

	switch {
	case usage >= m.config.CriticalThreshold:
		return Unhealthy("memory usage critical: "+msg, ErrCheckFailed).WithDetails(details)
	case usage >= m.config.WarningThreshold:
		return Degraded("memory usage high: " + msg).WithDetails(details)
	default:
		return Healthy("memory usage normal: " + msg).WithDetails(details)
	}
}
