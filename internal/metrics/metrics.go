package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for batch runs.
type Metrics struct {
	SymbolsTotal   *prometheus.CounterVec // labels: outcome
	SymbolDuration prometheus.Histogram
	ModelFallbacks prometheus.Counter
	RunDuration    prometheus.Histogram
	LastRun        prometheus.Gauge
	Eligible       prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_symbols_total",
			Help: "Symbols processed, by outcome (screened, insufficient, failed)",
		}, []string{"outcome"}),
		SymbolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_symbol_duration_seconds",
			Help:    "Fetch, screen and signal latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		ModelFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_model_fallbacks_total",
			Help: "Predictive model failures answered by the rule strategy",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of a full batch run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_run_timestamp_seconds",
			Help: "Unix time the last batch run finished",
		}),
		Eligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_eligible_symbols",
			Help: "Records above the consensus floor in the last run",
		}),
	}

	reg.MustRegister(
		m.SymbolsTotal,
		m.SymbolDuration,
		m.ModelFallbacks,
		m.RunDuration,
		m.LastRun,
		m.Eligible,
	)
	return m
}

// HealthStatus tracks dependency health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	UsingModel     bool      `json:"using_model"`
	LastRunID      string    `json:"last_run_id"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`

	redisEnabled bool
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), redisEnabled: redisEnabled}
}

func (h *HealthStatus) SetUsingModel(v bool) {
	h.mu.Lock()
	h.UsingModel = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRun(id string, at time.Time) {
	h.mu.Lock()
	h.LastRunID = id
	h.LastRunAt = at
	h.mu.Unlock()
}

// Check pings Redis and SQLite when present.
func (h *HealthStatus) Check(ctx context.Context, rdb *redis.Client, db *sql.DB) {
	redisOK := false
	if rdb != nil {
		redisOK = rdb.Ping(ctx).Err() == nil
	}
	sqliteOK := false
	if db != nil {
		sqliteOK = db.PingContext(ctx) == nil
	}

	h.mu.Lock()
	h.RedisConnected = redisOK
	h.SQLiteOK = sqliteOK
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs Check every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *redis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.Check(probeCtx, rdb, db)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.SQLiteOK || (h.redisEnabled && !h.RedisConnected) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		RedisConnected bool   `json:"redis_connected"`
		SQLiteOK       bool   `json:"sqlite_ok"`
		UsingModel     bool   `json:"using_model"`
		LastRunID      string `json:"last_run_id,omitempty"`
		LastRunAt      string `json:"last_run_at,omitempty"`
	}{
		Status:         status,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected: h.RedisConnected,
		SQLiteOK:       h.SQLiteOK,
		UsingModel:     h.UsingModel,
		LastRunID:      h.LastRunID,
	}
	if !h.LastRunAt.IsZero() {
		body.LastRunAt = h.LastRunAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server. gatherer may be nil for the default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
