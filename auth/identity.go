package auth

import (
	"slices"
	"time"
)

// Method indicates how a request was authenticated.
type Method string

const (
	MethodAPIKey    Method = "api_key"
	MethodJWT       Method = "jwt"
	MethodAnonymous Method = "anonymous"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Principal is the unique caller identifier (key ID or token subject).
	Principal string

	// Scopes are the capabilities granted to the caller, e.g. "health:read".
	Scopes []string

	// Method indicates how authentication was performed.
	Method Method

	// Claims contains the raw token claims or key metadata.
	Claims map[string]any

	// ExpiresAt is when this identity expires. Zero means never.
	ExpiresAt time.Time
}

// HasScope reports whether the identity carries scope.
func (id *Identity) HasScope(scope string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Scopes, scope)
}

// IsExpired reports whether the identity has expired at now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}

// AnonymousIdentity returns the identity used when no authenticator is
// configured.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    MethodAnonymous,
		Claims:    map[string]any{},
	}
}
