package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mshibata/fxledger/internal/infrastructure/metrics"
)

// MetricsMiddleware records per-request counters and latencies into the
// shared registry.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Wrap wraps an http.Handler with request metrics.
func (m *MetricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		m.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses path parameters to keep label cardinality low.
// /api/v1/trades/01ABC123 -> /api/v1/trades/:id
func normalizePath(path string) string {
	for _, prefix := range []string{"/api/v1/trades/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		switch rest {
		case "undo", "redo", "statistics":
			return path
		}
		return prefix + ":id"
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/balance/"); ok && rest != "" {
		switch rest {
		case "history", "valuation":
			return path
		}
		return "/api/v1/balance/:currency"
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/rates/"); ok && rest != "" && rest != "cache" {
		return "/api/v1/rates/:pair"
	}

	return path
}
