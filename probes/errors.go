package probes

import "errors"

var (
	ErrUnknownType   = errors.New("probes: unknown probe type")
	ErrMissingParam  = errors.New("probes: missing required param")
	ErrInvalidParam  = errors.New("probes: invalid param")
	ErrDuplicateType = errors.New("probes: builder already registered")
)
