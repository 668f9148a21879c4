package probes

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// Params is the decoded params block of one probe.
type Params map[string]any

// has reports whether key is present with a non-nil value.
func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns key as a string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	if !p.has(key) {
		return def, nil
	}
	s, err := cast.ToStringE(p[key])
	if err != nil {
		return "", invalid(key, err)
	}
	return s, nil
}

// RequiredString returns key as a non-empty string.
func (p Params) RequiredString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return s, nil
}

// Duration returns key as a duration. Strings use time.ParseDuration syntax.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	if !p.has(key) {
		return def, nil
	}
	d, err := cast.ToDurationE(p[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	if d < 0 {
		return 0, invalid(key, fmt.Errorf("negative duration %s", d))
	}
	return d, nil
}

// Int returns key as an int.
func (p Params) Int(key string, def int) (int, error) {
	if !p.has(key) {
		return def, nil
	}
	n, err := cast.ToIntE(p[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	return n, nil
}

// Float returns key as a float64.
func (p Params) Float(key string, def float64) (float64, error) {
	if !p.has(key) {
		return def, nil
	}
	f, err := cast.ToFloat64E(p[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	return f, nil
}

// Bytes returns key as a byte count. Strings accept humanized sizes such
// as "512MiB" or "2 GB".
func (p Params) Bytes(key string, def uint64) (uint64, error) {
	if !p.has(key) {
		return def, nil
	}
	if s, ok := p[key].(string); ok {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return 0, invalid(key, err)
		}
		return n, nil
	}
	n, err := cast.ToUint64E(p[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	return n, nil
}

// Strings returns key as a string slice.
func (p Params) Strings(key string) ([]string, error) {
	if !p.has(key) {
		return nil, nil
	}
	s, err := cast.ToStringSliceE(p[key])
	if err != nil {
		return nil, invalid(key, err)
	}
	return s, nil
}

// Ints returns key as an int slice.
func (p Params) Ints(key string) ([]int, error) {
	if !p.has(key) {
		return nil, nil
	}
	s, err := cast.ToIntSliceE(p[key])
	if err != nil {
		return nil, invalid(key, err)
	}
	return s, nil
}

// StringMap returns key as a string map.
func (p Params) StringMap(key string) (map[string]string, error) {
	if !p.has(key) {
		return nil, nil
	}
	m, err := cast.ToStringMapStringE(p[key])
	if err != nil {
		return nil, invalid(key, err)
	}
	return m, nil
}

func invalid(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidParam, key, err)
}
