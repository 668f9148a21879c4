package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jonwraymond/healthops/cache"
)

// HandlerOption configures the report handlers.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	cache *cache.ReportCache
}

// WithReportCache serves recent reports from rc instead of evaluating on
// every request.
func WithReportCache(rc *cache.ReportCache) HandlerOption {
	return func(c *handlerConfig) { c.cache = rc }
}

func newHandlerConfig(opts []HandlerOption) handlerConfig {
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// StatusCode maps a status to an HTTP response code: 503 for unhealthy,
// 200 otherwise.
func StatusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// This runs every registered check, or those matching ?tag= when given.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.Evaluate(r.Context(), tagPredicate(r))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(StatusCode(report.Status()))
		_, _ = w.Write([]byte(strings.ToUpper(report.Status().String())))
	}
}

// DetailedHandler returns an HTTP handler that writes the full Report as
// JSON. Repeated ?tag= parameters restrict the evaluation to checks with
// any of those tags.
func DetailedHandler(agg *Aggregator, opts ...HandlerOption) http.HandlerFunc {
	cfg := newHandlerConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		tags := requestTags(r)
		eval := func(ctx context.Context) (cache.Evaluation, error) {
			report := agg.Evaluate(ctx, tagPredicate(r))
			body, err := json.Marshal(report)
			if err != nil {
				return cache.Evaluation{}, err
			}
			return cache.Evaluation{Status: report.Status().String(), Body: body}, nil
		}

		var (
			ev  cache.Evaluation
			err error
		)
		if cfg.cache != nil {
			ev, err = cfg.cache.Get(r.Context(), r.URL.Path, tags, eval)
		} else {
			ev, err = eval(r.Context())
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}

		status, err := ParseStatus(ev.Status)
		if err != nil {
			status = StatusDegraded
		}

		w.Header().Set("Content-Type", "application/json")
		if ev.Cached {
			w.Header().Set("X-Health-Cache", "hit")
		} else {
			w.Header().Set("X-Health-Cache", "miss")
		}
		w.WriteHeader(StatusCode(status))
		_, _ = w.Write(ev.Body)
		_, _ = w.Write([]byte("\n"))
	}
}

// SingleCheckHandler returns an HTTP handler for checking a single component.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return NamedCheckHandler(agg, func(*http.Request) string { return name })
}

// NamedCheckHandler returns an HTTP handler that checks the component named
// by nameOf, typically a path parameter.
func NamedCheckHandler(agg *Aggregator, nameOf func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := nameOf(r)
		result, err := agg.Check(r.Context(), name)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err)
			return
		}

		var tags []string
		for _, reg := range agg.Registrations() {
			if reg.Name == name {
				tags = reg.Tags
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusCode(result.Status))
		_ = json.NewEncoder(w).Encode(entryDocument(Entry{Name: name, Tags: tags, Result: result}))
	}
}

// RegisterHandlers registers all health check handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator, opts ...HandlerOption) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg, opts...))
	mux.HandleFunc("GET /health/{name}", NamedCheckHandler(agg, func(r *http.Request) string {
		return r.PathValue("name")
	}))
}

func requestTags(r *http.Request) []string {
	var tags []string
	for _, v := range r.URL.Query()["tag"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func tagPredicate(r *http.Request) Predicate {
	tags := requestTags(r)
	if len(tags) == 0 {
		return nil
	}
	return ByTags(tags...)
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
