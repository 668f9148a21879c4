package auth

import "context"

// CompositeAuthenticator tries authenticators in order and returns the
// first accepted result.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries
// are skipped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Len returns the number of wrapped authenticators.
func (c *CompositeAuthenticator) Len() int { return len(c.authenticators) }

// Supports reports whether any wrapped authenticator supports req.
func (c *CompositeAuthenticator) Supports(req *Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(req) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in order. Internal
// errors stop the chain; rejections fall through to the next one.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	var last *Result
	for _, a := range c.authenticators {
		if !a.Supports(req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated() {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return Reject(ErrMissingCredentials, c.Name()), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
