package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SymbolsTotal.WithLabelValues("screened").Inc()
	m.SymbolsTotal.WithLabelValues("screened").Inc()
	m.ModelFallbacks.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("screened")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelFallbacks))

	srv := NewServer(":0", NewHealthStatus(false), reg)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "screener_model_fallbacks_total 1")
}

func TestHealthz(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer db.Close()

	h := NewHealthStatus(false)
	srv := NewServer(":0", h, prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "sqlite not checked yet")

	h.Check(context.Background(), nil, db)
	h.SetUsingModel(true)
	h.SetLastRun("run-1", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["using_model"])
	assert.Equal(t, "run-1", body["last_run_id"])
	assert.Equal(t, "2025-01-02T03:04:05Z", body["last_run_at"])
}
