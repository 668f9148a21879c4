package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/cache"
	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probes"
)

// App is a fully wired aggregator built from a Config.
type App struct {
	Config     *config.Config
	Observer   observe.Observer
	Logger     observe.Logger
	Aggregator *health.Aggregator
	Reports    *cache.ReportCache
	Auth       auth.Authenticator
}

// NewApp wires observability, probes, the report cache and authentication
// from cfg. The caller must Close the returned App.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("cli: nil config")
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	inst, err := observe.InstrumentationFromObserver(obs)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("instrumentation: %w", err), obs.Shutdown(ctx))
	}

	app := &App{
		Config:   cfg,
		Observer: obs,
		Logger:   observe.SafeLogger(obs.Logger()),
	}
	app.Aggregator = health.NewAggregator(health.AggregatorConfig{
		Timeout:      cfg.Aggregator.Timeout,
		CheckTimeout: cfg.Aggregator.CheckTimeout,
		Logger:       app.Logger,
		Telemetry:    inst,
	})

	deps := probes.Deps{Logger: app.Logger}
	if err := probes.RegisterAll(ctx, app.Aggregator, cfg.Probes, deps); err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	app.Reports, err = cache.NewReportCache(cache.NewMemoryCache(), nil, cache.Policy{
		DefaultTTL:   cfg.Server.CacheTTL,
		UnhealthyTTL: cfg.Server.UnhealthyTTL,
	})
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	app.Auth, err = auth.New(cfg.Server.Auth)
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	app.Logger.Info(ctx, "healthops ready",
		observe.F("service.name", cfg.Service.Name),
		observe.F("probes", len(cfg.Probes)))
	return app, nil
}

// Close releases probe resources and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Aggregator != nil {
		if err := a.Aggregator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close probes: %w", err))
		}
	}
	if a.Observer != nil {
		if err := a.Observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
