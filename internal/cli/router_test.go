package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/health"
)

const serverConfig = `
service:
  name: checkout
server:
  addr: "127.0.0.1:0"
  allowed_origins: ["https://status.example.com"]
  cache_ttl: 1m
  auth:
    api_keys:
      ci: s3cret
observe:
  logging:
    enabled: false
probes:
  - name: primary
    type: sql
    tags: [ready]
    params:
      driver: sqlite
      dsn: ":memory:"
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, serverConfig))
	require.NoError(t, err)

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, []string{"primary"}, app.Aggregator.CheckerNames())
	assert.NotNil(t, app.Auth)
	assert.True(t, app.Reports.Policy().ShouldCache())
}

func TestNewApp_BadProbe(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
observe:
  logging:
    enabled: false
probes:
  - name: mystery
    type: carrier-pigeon
`))
	require.NoError(t, err)

	_, err = NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestRouter_OpenEndpoints(t *testing.T) {
	h := NewRouter(newTestApp(t))

	rec := get(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HEALTHY", rec.Body.String())

	rec = get(t, h, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_DetailedRequiresAuth(t *testing.T) {
	h := NewRouter(newTestApp(t))

	rec := get(t, h, "/health", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, h, "/health", http.Header{"X-Api-Key": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	key := http.Header{"X-Api-Key": {"s3cret"}}
	rec = get(t, h, "/health", key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Health-Cache"))

	var doc health.ReportDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, health.StatusHealthy, doc.Status)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "primary", doc.Entries[0].Name)

	rec = get(t, h, "/health", key)
	assert.Equal(t, "hit", rec.Header().Get("X-Health-Cache"))
}

func TestRouter_SingleCheck(t *testing.T) {
	h := NewRouter(newTestApp(t))
	key := http.Header{"X-Api-Key": {"s3cret"}}

	rec := get(t, h, "/health/primary", key)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc health.EntryDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "primary", doc.Name)
	assert.Equal(t, []string{"ready"}, doc.Tags)

	rec = get(t, h, "/health/nope", key)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	h := NewRouter(newTestApp(t))

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://status.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", auth.DefaultAPIKeyHeader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://status.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrs := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, app, time.Second, func(a net.Addr) { addrs <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrs:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ListenError(t *testing.T) {
	app := newTestApp(t)
	app.Config.Server.Addr = "127.0.0.1:99999"

	err := serve(context.Background(), app, time.Second, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}
