package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/dualfs/backends/noop"
	"github.com/ebogdum/dualfs/backends/sqlite"
	"github.com/ebogdum/dualfs/config"
	"github.com/ebogdum/dualfs/core"
)

func testConfig() config.MetricsConfig {
	return config.DefaultAppConfig().Metrics
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := NewRouter(core.NewDispatcher(noop.NewNoopAdapter(), nil), testConfig(), nil)

	rec := get(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "noop", body["backend"])
}

func TestCapabilitiesOfBlockingOnlyBackend(t *testing.T) {
	adapter, err := sqlite.NewSQLiteAdapter(filepath.Join(t.TempDir(), "caps.sqlite3"), nil)
	require.NoError(t, err)
	defer adapter.Close()
	router := NewRouter(core.NewDispatcher(adapter, nil), testConfig(), nil)

	rec := get(t, router, "/capabilities")
	require.Equal(t, http.StatusOK, rec.Code)

	var caps Capabilities
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.Equal(t, "sqlite", caps.Backend)
	require.Len(t, caps.Operations, 8)
	for _, op := range caps.Operations {
		assert.True(t, op.Blocking, op.Name)
		assert.False(t, op.Callback, op.Name)
	}
	assert.Equal(t, "readBytes", caps.Operations[3].Name)
	assert.Equal(t, []string{"path", "bytes"}, caps.Operations[3].Inputs)
}

func TestMetricsEndpoint(t *testing.T) {
	d := core.NewDispatcher(noop.NewNoopAdapter(), nil)
	_ = d.MkDir(context.Background(), "/a")
	router := NewRouter(d, testConfig(), nil)

	rec := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dualfs_operations_total")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	router := NewRouter(core.NewDispatcher(noop.NewNoopAdapter(), nil), testConfig(), nil)

	rec := get(t, router, "/health")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimitPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	router := NewRouter(core.NewDispatcher(noop.NewNoopAdapter(), nil), cfg, nil)

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = ip + ":40000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestUnknownRoute(t *testing.T) {
	router := NewRouter(core.NewDispatcher(noop.NewNoopAdapter(), nil), testConfig(), nil)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/files/a.txt").Code)
}

func TestServeStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	router := NewRouter(core.NewDispatcher(noop.NewNoopAdapter(), nil), testConfig(), nil)
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, ln, router, nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeRejectsBadAddress(t *testing.T) {
	err := Serve(context.Background(), "not-an-address", http.NotFoundHandler(), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to listen"))
}
