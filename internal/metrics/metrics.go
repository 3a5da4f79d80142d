package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the evaluation engine.
type Metrics struct {
	CellsEvaluated prometheus.Counter
	CellsSkipped   *prometheus.CounterVec // labels: reason
	BacktestsTotal prometheus.Counter
	CombosRejected prometheus.Counter
	TradesRecorded prometheus.Counter

	CellEvalDur     prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
	RedisWriteDur   prometheus.Histogram

	RunProgress   prometheus.Gauge // fraction of cells completed, 0..1
	ActiveWorkers prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CellsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategylab_cells_evaluated_total",
			Help: "Walk-forward cells (strategy x instrument x window) evaluated",
		}),
		CellsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategylab_cells_skipped_total",
			Help: "Cells skipped before evaluation (by reason)",
		}, []string{"reason"}),
		BacktestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategylab_backtests_total",
			Help: "Individual backtest runs executed",
		}),
		CombosRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategylab_combos_rejected_total",
			Help: "Parameter combinations rejected for insufficient training trades",
		}),
		TradesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategylab_trades_recorded_total",
			Help: "Out-of-sample trades recorded",
		}),

		CellEvalDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategylab_cell_eval_duration_seconds",
			Help:    "Wall time to evaluate one walk-forward cell",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategylab_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategylab_redis_write_duration_seconds",
			Help:    "Redis cache write latency",
			Buckets: prometheus.DefBuckets,
		}),

		RunProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategylab_run_progress",
			Help: "Fraction of the current run's cells completed (0..1)",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategylab_active_workers",
			Help: "Worker goroutines currently evaluating cells",
		}),
	}

	prometheus.MustRegister(
		m.CellsEvaluated,
		m.CellsSkipped,
		m.BacktestsTotal,
		m.CombosRejected,
		m.TradesRecorded,
		m.CellEvalDur,
		m.SQLiteCommitDur,
		m.RedisWriteDur,
		m.RunProgress,
		m.ActiveWorkers,
	)

	return m
}

// HealthStatus represents dependency health for the evaluation service.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool
	SQLiteOK       bool
	RunActive      bool

	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetRunActive(v bool) {
	h.mu.Lock()
	h.RunActive = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.SQLiteOK && !h.RedisConnected {
		overallStatus = "unhealthy"
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RunActive       bool    `json:"run_active"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RunActive:       h.RunActive,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
