//go:build !linux && !darwin

package health

import "errors"

var errStatUnsupported = errors.New("health: disk statistics unsupported on this platform")

func statFS(string) (DiskUsage, error) {
	return DiskUsage{}, errStatUnsupported
}
