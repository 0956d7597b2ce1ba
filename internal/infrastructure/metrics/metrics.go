package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Trade metrics
	Trades        *prometheus.CounterVec
	TradeDuration prometheus.Histogram
	Undos         *prometheus.CounterVec
	Redos         *prometheus.CounterVec
	Overrides     *prometheus.CounterVec

	// Persistence metrics
	PersistenceFailures *prometheus.CounterVec
	BackupsCreated      prometheus.Counter

	// Rate metrics
	RateLookups   *prometheus.CounterVec
	RateCacheHits *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Scheduler metrics
	AdvisoryRuns *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		Trades: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_trades_total",
				Help: "Total trade attempts by pair and outcome",
			},
			[]string{"pair", "status"},
		),
		TradeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxledger_trade_duration_seconds",
			Help:    "Duration of trade execution including persistence",
			Buckets: prometheus.DefBuckets,
		}),
		Undos: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_undos_total",
				Help: "Total undo attempts by outcome",
			},
			[]string{"status"},
		),
		Redos: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_redos_total",
				Help: "Total redo attempts by outcome",
			},
			[]string{"status"},
		),
		Overrides: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_overrides_total",
				Help: "Total balance override attempts by outcome",
			},
			[]string{"status"},
		),

		PersistenceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_persistence_failures_total",
				Help: "Total ledger file write failures by operation",
			},
			[]string{"op"},
		),
		BackupsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_backups_created_total",
			Help: "Total backup files created before writes",
		}),

		RateLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_rate_lookups_total",
				Help: "Total rate lookups by source and outcome",
			},
			[]string{"source", "status"},
		),
		RateCacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_rate_cache_hits_total",
				Help: "Rate cache hits and misses",
			},
			[]string{"result"},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),

		AdvisoryRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_advisory_runs_total",
				Help: "Total advisory scheduler runs by outcome",
			},
			[]string{"status"},
		),
	}
}

// RecordTrade implements usecase.LedgerMetrics.
func (m *Metrics) RecordTrade(pair string, status string, duration time.Duration) {
	m.Trades.WithLabelValues(pair, status).Inc()
	m.TradeDuration.Observe(duration.Seconds())
}

// RecordUndo implements usecase.LedgerMetrics.
func (m *Metrics) RecordUndo(status string) {
	m.Undos.WithLabelValues(status).Inc()
}

// RecordRedo implements usecase.LedgerMetrics.
func (m *Metrics) RecordRedo(status string) {
	m.Redos.WithLabelValues(status).Inc()
}

// RecordOverride implements usecase.LedgerMetrics.
func (m *Metrics) RecordOverride(status string) {
	m.Overrides.WithLabelValues(status).Inc()
}

// RecordPersistenceFailure implements usecase.LedgerMetrics.
func (m *Metrics) RecordPersistenceFailure(op string) {
	m.PersistenceFailures.WithLabelValues(op).Inc()
}
