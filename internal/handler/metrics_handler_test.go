package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-ops-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	healthy := newTestRouter(nil, http.MethodGet, "/ready", NewMetricsHandler(nil, map[string]Pinger{"postgres": ok}).Ready)
	assert.Equal(t, http.StatusOK, do(healthy, http.MethodGet, "/ready", nil).Code)

	failing := newTestRouter(nil, http.MethodGet, "/ready", NewMetricsHandler(nil, map[string]Pinger{"postgres": ok, "redis": down}).Ready)
	rec := do(failing, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerServesPrometheusAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordLLMCache(true)
	h := NewMetricsHandler(metrics, nil)

	rec := do(newTestRouter(nil, http.MethodGet, "/metrics", h.Prometheus), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "llm_cache")

	rec = do(newTestRouter(wardenClaims, http.MethodGet, "/summary", h.Summary), http.MethodGet, "/summary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"llm_cache_hit_ratio":1`)

	disabled := NewMetricsHandler(nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(newTestRouter(nil, http.MethodGet, "/metrics", disabled.Prometheus), http.MethodGet, "/metrics", nil).Code)
}
