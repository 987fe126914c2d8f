package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(checks map[string]Check) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(0, checks, prometheus.NewRegistry(), logger)
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := testServer(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestReadyzReportsCheckResults(t *testing.T) {
	checks := map[string]Check{
		"rabbitmq": func(ctx context.Context) error { return nil },
		"jobs_db":  func(ctx context.Context) error { return nil },
	}
	s := testServer(checks)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestReadyzFailingCheckIsServiceUnavailable(t *testing.T) {
	checks := map[string]Check{
		"rabbitmq": func(ctx context.Context) error { return errors.New("not connected") },
		"jobs_db":  func(ctx context.Context) error { return nil },
	}
	s := testServer(checks)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not connected")
	assert.Contains(t, rec.Body.String(), `"jobs_db":"ok"`)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_jobs_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(0, nil, registry, logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_jobs_total 1")
}
