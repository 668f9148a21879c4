package health

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// DiskCheckerConfig configures the disk space checker.
type DiskCheckerConfig struct {
	// Name overrides the checker name.
	// Default: "disk"
	Name string

	// Path is any path on the filesystem to inspect.
	// Default: "/"
	Path string

	// MinFreeBytes is the free space below which the disk is unhealthy.
	MinFreeBytes uint64

	// WarnFreeBytes is the free space below which the disk is degraded.
	// Default: 2 * MinFreeBytes
	WarnFreeBytes uint64
}

// DiskUsage is a filesystem capacity sample.
type DiskUsage struct {
	Total uint64
	Free  uint64
}

// DiskChecker reports on free space of the filesystem holding Path.
type DiskChecker struct {
	config DiskCheckerConfig
	stat   func(path string) (DiskUsage, error)
}

// NewDiskChecker creates a new disk space checker.
func NewDiskChecker(config DiskCheckerConfig) *DiskChecker {
	if config.Name == "" {
		config.Name = "disk"
	}
	if config.Path == "" {
		config.Path = "/"
	}
	if config.WarnFreeBytes < config.MinFreeBytes {
		config.WarnFreeBytes = 2 * config.MinFreeBytes
	}
	return &DiskChecker{config: config, stat: statFS}
}

// Name returns the name of this checker.
func (d *DiskChecker) Name() string {
	return d.config.Name
}

// Tags returns the default tags of the disk checker.
func (d *DiskChecker) Tags() []string {
	return []string{"runtime"}
}

// Check samples the filesystem.
func (d *DiskChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("disk check cancelled", err)
	}

	usage, err := d.stat(d.config.Path)
	if err != nil {
		return Unhealthy(fmt.Sprintf("cannot stat %s: %v", d.config.Path, err), err)
	}

	details := map[string]any{
		"path":  d.config.Path,
		"free":  humanize.IBytes(usage.Free),
		"total": humanize.IBytes(usage.Total),
	}
	msg := fmt.Sprintf("%s free of %s on %s",
		humanize.IBytes(usage.Free), humanize.IBytes(usage.Total), d.config.Path)

	switch {
	case usage.Free < d.config.MinFreeBytes:
		return Unhealthy("disk space critical: "+msg, ErrCheckFailed).WithDetails(details)
	case usage.Free < d.config.WarnFreeBytes:
		return Degraded("disk space low: " + msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
