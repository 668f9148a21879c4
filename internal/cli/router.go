package cli

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
)

// NewRouter returns the HTTP surface of app.
//
// /healthz and /readyz are always open so orchestrators can probe them.
// /health and /health/{name} require credentials when authentication is
// configured.
func NewRouter(app *App) http.Handler {
	srv := app.Config.Server

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(srv.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", auth.DefaultAPIKeyHeader},
		ExposedHeaders: []string{"X-Health-Cache"},
		MaxAge:         300,
	}))

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(app.Aggregator))

	r.Group(func(r chi.Router) {
		opts := []auth.MiddlewareOption{auth.WithErrorHook(func(req *http.Request, err error) {
			app.Logger.Warn(req.Context(), "request rejected",
				observe.F("http.path", req.URL.Path),
				observe.F("request.id", middleware.GetReqID(req.Context())),
				observe.F("error", err.Error()))
		})}
		if srv.Auth.Scope != "" {
			opts = append(opts, auth.WithRequiredScope(srv.Auth.Scope))
		}
		r.Use(auth.Middleware(app.Auth, opts...))

		r.Get("/health", health.DetailedHandler(app.Aggregator, health.WithReportCache(app.Reports)))
		r.Get("/health/{name}", health.NamedCheckHandler(app.Aggregator, func(req *http.Request) string {
			return chi.URLParam(req, "name")
		}))
	})

	if srv.MetricsPath != "" {
		r.Handle(srv.MetricsPath, promhttp.Handler())
	}
	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
