package auth

import "fmt"

// Config selects the authenticators guarding the detailed health routes.
type Config struct {
	// APIKeys maps key IDs to plaintext keys.
	APIKeys map[string]string `mapstructure:"api_keys" yaml:"api_keys"`

	// JWTSecret enables bearer tokens signed with HS256.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTIssuer, when set, must match the token issuer.
	JWTIssuer string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`

	// JWTAudience, when set, must appear in the token audience.
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// Scope, when set, must be granted to the caller.
	Scope string `mapstructure:"scope" yaml:"scope"`
}

// Enabled reports whether any authenticator is configured.
func (c Config) Enabled() bool {
	return len(c.APIKeys) > 0 || c.JWTSecret != ""
}

// New builds the authenticator described by cfg. It returns nil when
// nothing is configured.
func New(cfg Config) (Authenticator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var auths []Authenticator
	if len(cfg.APIKeys) > 0 {
		store := NewMemoryAPIKeyStore()
		for id, key := range cfg.APIKeys {
			if key == "" {
				return nil, fmt.Errorf("auth: api key %q: %w", id, ErrMissingCredentials)
			}
			store.AddKey(id, key, cfg.Scope)
		}
		a, err := NewAPIKeyAuthenticator("", store)
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	if cfg.JWTSecret != "" {
		a, err := NewJWTAuthenticator(JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	if len(auths) == 1 {
		return auths[0], nil
	}
	return NewCompositeAuthenticator(auths...), nil
}
