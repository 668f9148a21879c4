package auth

import (
	"context"
	"net/http"
)

// Authenticator validates request credentials and returns an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Authenticate should honor cancellation.
// - Errors: Authenticate returns (nil, err) for internal errors and
//   (*Result, nil) for both accepted and rejected credentials.
type Authenticator interface {
	// Name returns a stable identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(req *Request) bool

	// Authenticate validates the credentials in req.
	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request holds the parts of an HTTP request authenticators look at.
type Request struct {
	Header http.Header
	Path   string
}

// NewRequest extracts an authentication request from r.
func NewRequest(r *http.Request) *Request {
	return &Request{Header: r.Header, Path: r.URL.Path}
}

// Get returns the first value of header key, or "".
func (r *Request) Get(key string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(key)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	// Identity is set when the credentials were accepted.
	Identity *Identity

	// Err explains why the credentials were rejected.
	Err error

	// Method names the authenticator that produced the result.
	Method string
}

// Authenticated reports whether the credentials were accepted.
func (r *Result) Authenticated() bool {
	return r != nil && r.Identity != nil && r.Err == nil
}

// Accept returns a successful result for id.
func Accept(id *Identity) *Result {
	return &Result{Identity: id, Method: string(id.Method)}
}

// Reject returns a failed result.
func Reject(err error, method string) *Result {
	return &Result{Err: err, Method: method}
}

// AuthenticatorFunc adapts plain functions to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(req *Request) bool
	auth     func(ctx context.Context, req *Request) (*Result, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc. A nil supports
// accepts every request.
func NewAuthenticatorFunc(
	name string,
	supports func(req *Request) bool,
	auth func(ctx context.Context, req *Request) (*Result, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string { return f.name }

// Supports reports whether the request is handled.
func (f *AuthenticatorFunc) Supports(req *Request) bool {
	if f.supports == nil {
		return true
	}
	return f.supports(req)
}

// Authenticate validates credentials.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return f.auth(ctx, req)
}
