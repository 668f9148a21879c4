package auth

import (
	"encoding/json"
	"net/http"
)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	scope   string
	onError func(r *http.Request, err error)
}

// WithRequiredScope rejects identities lacking scope with 403.
func WithRequiredScope(scope string) MiddlewareOption {
	return func(c *middlewareConfig) { c.scope = scope }
}

// WithErrorHook is called for every rejected request.
func WithErrorHook(fn func(r *http.Request, err error)) MiddlewareOption {
	return func(c *middlewareConfig) { c.onError = fn }
}

// Middleware authenticates requests with a. Rejected credentials get 401,
// missing scope gets 403, and internal errors get 500. Accepted requests
// carry the identity on their context. A nil authenticator lets every
// request through as anonymous.
func Middleware(a Authenticator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
				return
			}

			req := NewRequest(r)
			if !a.Supports(req) {
				cfg.reject(w, r, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			res, err := a.Authenticate(r.Context(), req)
			if err != nil {
				cfg.reject(w, r, http.StatusInternalServerError, err)
				return
			}
			if !res.Authenticated() {
				err := res.Err
				if err == nil {
					err = ErrInvalidCredentials
				}
				cfg.reject(w, r, http.StatusUnauthorized, err)
				return
			}
			if cfg.scope != "" && !res.Identity.HasScope(cfg.scope) {
				cfg.reject(w, r, http.StatusForbidden, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

func (c *middlewareConfig) reject(w http.ResponseWriter, r *http.Request, code int, err error) {
	if c.onError != nil {
		c.onError(r, err)
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "auth: internal error"
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="healthops"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
