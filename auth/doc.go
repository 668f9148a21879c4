// Package auth guards health endpoints that expose probe details.
//
// Authenticators inspect the request headers and return an Identity. The
// package ships an API key authenticator backed by an in-memory store, an
// HS256 JWT authenticator, and a composite that tries each in order.
// Middleware adapts any Authenticator to net/http.
package auth
