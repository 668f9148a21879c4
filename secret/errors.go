package secret

import "errors"

var (
	ErrMissingEnv            = errors.New("secret: missing required environment variables")
	ErrProviderNotRegistered = errors.New("secret: provider not registered")
	ErrInvalidRef            = errors.New("secret: invalid reference")
	ErrEmptySecret           = errors.New("secret: provider returned empty value")
	ErrInvalidRegistration   = errors.New("secret: invalid provider registration")
	ErrDuplicateProvider     = errors.New("secret: provider already registered")
)
