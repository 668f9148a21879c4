package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/secret"
)

// Sentinel errors.
var (
	ErrReadConfig       = errors.New("config: read failed")
	ErrDecodeConfig     = errors.New("config: decode failed")
	ErrMissingService   = errors.New("config: service.name is required")
	ErrInvalidTimeout   = errors.New("config: timeouts must not be negative")
	ErrMissingProbeName = errors.New("config: probe name is required")
	ErrMissingProbeType = errors.New("config: probe type is required")
	ErrDuplicateProbe   = errors.New("config: duplicate probe name")
	ErrResolveSecret    = errors.New("config: secret resolution failed")
)

// Default values.
const (
	DefaultEnvPrefix  = "HEALTHOPS"
	DefaultConfigName = "healthops"
	DefaultAddr       = ":8080"
	DefaultCacheTTL   = 5 * time.Second
)

// Config is the top-level healthops configuration.
type Config struct {
	Service    ServiceConfig             `mapstructure:"service"`
	Aggregator AggregatorConfig          `mapstructure:"aggregator"`
	Server     ServerConfig              `mapstructure:"server"`
	Observe    observe.Config            `mapstructure:"observe"`
	Secrets    map[string]map[string]any `mapstructure:"secrets"`
	Probes     []ProbeConfig             `mapstructure:"probes"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// AggregatorConfig bounds evaluation time.
type AggregatorConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	UnhealthyTTL   time.Duration `mapstructure:"unhealthy_ttl"`
	MetricsPath    string        `mapstructure:"metrics_path"`
	Auth           auth.Config   `mapstructure:"auth"`
}

// ProbeConfig declares one health probe.
type ProbeConfig struct {
	Name    string         `mapstructure:"name"`
	Type    string         `mapstructure:"type"`
	Tags    []string       `mapstructure:"tags"`
	Timeout time.Duration  `mapstructure:"timeout"`
	Params  map[string]any `mapstructure:"params"`
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	envPrefix   string
	searchPaths []string
	resolver    *secret.Resolver
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// WithSearchPaths adds directories searched for healthops.yaml when no
// explicit path is given.
func WithSearchPaths(paths ...string) Option {
	return func(l *loader) { l.searchPaths = append(l.searchPaths, paths...) }
}

// WithResolver resolves secrets with r instead of the providers in
// secret.DefaultRegistry.
func WithResolver(r *secret.Resolver) Option {
	return func(l *loader) { l.resolver = r }
}

// Load reads configuration from path, or from healthops.yaml in the search
// paths when path is empty. A missing file in the search paths is not an
// error; defaults and environment overrides still apply.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{
		envPrefix:   DefaultEnvPrefix,
		searchPaths: []string{".", "/etc/healthops"},
	}
	for _, opt := range opts {
		opt(l)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		for _, p := range l.searchPaths {
			v.AddConfigPath(p)
		}
	}
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeConfig, err)
	}
	cfg.applyDefaults()

	resolver := l.resolver
	if resolver == nil {
		r, err := secret.DefaultRegistry.NewResolver(true, cfg.Secrets)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolveSecret, err)
		}
		defer r.Close()
		resolver = r
	}
	if err := cfg.resolveSecrets(context.Background(), resolver); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "healthops")
	v.SetDefault("service.version", "dev")
	v.SetDefault("aggregator.timeout", 10*time.Second)
	v.SetDefault("aggregator.check_timeout", 5*time.Second)
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.cache_ttl", DefaultCacheTTL)
	v.SetDefault("server.unhealthy_ttl", time.Second)
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("server.auth.jwt_secret", "")
	v.SetDefault("server.auth.jwt_issuer", "")
	v.SetDefault("server.auth.jwt_audience", "")
	v.SetDefault("server.auth.scope", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "none")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")
	v.SetDefault("observe.logging.backend", "zap")
	v.SetDefault("observe.logging.file", "")
}

func (c *Config) applyDefaults() {
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = c.Service.Name
	}
	if c.Observe.Version == "" {
		c.Observe.Version = c.Service.Version
	}
}

// resolveSecrets expands credentials and probe params in place.
func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	var err error
	if c.Server.Auth.JWTSecret, err = r.ResolveValue(ctx, c.Server.Auth.JWTSecret); err != nil {
		return fmt.Errorf("%w: server.auth.jwt_secret: %w", ErrResolveSecret, err)
	}
	if c.Server.Auth.APIKeys, err = r.ResolveMap(ctx, c.Server.Auth.APIKeys); err != nil {
		return fmt.Errorf("%w: server.auth.api_keys: %w", ErrResolveSecret, err)
	}
	for i := range c.Probes {
		p := &c.Probes[i]
		if p.Params == nil {
			continue
		}
		resolved, err := r.ResolveTree(ctx, p.Params)
		if err != nil {
			return fmt.Errorf("%w: probe %q: %w", ErrResolveSecret, p.Name, err)
		}
		p.Params = resolved.(map[string]any)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.Name) == "" {
		return ErrMissingService
	}
	if c.Aggregator.Timeout < 0 || c.Aggregator.CheckTimeout < 0 || c.Server.CacheTTL < 0 {
		return ErrInvalidTimeout
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("config: observe: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Probes))
	for i, p := range c.Probes {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: probes[%d]", ErrMissingProbeName, i)
		}
		if strings.TrimSpace(p.Type) == "" {
			return fmt.Errorf("%w: probe %q", ErrMissingProbeType, p.Name)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("%w: probe %q", ErrInvalidTimeout, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateProbe, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// ProbeNames returns the configured probe names in declaration order.
func (c *Config) ProbeNames() []string {
	names := make([]string, len(c.Probes))
	for i, p := range c.Probes {
		names[i] = p.Name
	}
	return names
}

// Tags returns the sorted set of tags used by any probe.
func (c *Config) Tags() []string {
	set := make(map[string]struct{})
	for _, p := range c.Probes {
		for _, t := range p.Tags {
			set[t] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}
