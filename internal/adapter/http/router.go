package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mshibata/fxledger/internal/adapter/http/handler"
	"github.com/mshibata/fxledger/internal/adapter/http/middleware"
	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/infrastructure/auth"
	"github.com/mshibata/fxledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler  *handler.LedgerHandler
	BalanceHandler *handler.BalanceHandler
	RateHandler    *handler.RateHandler
	HealthHandler  *handler.HealthHandler
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics

	// JWTManager enables authentication when non-nil. Reads stay open;
	// mutating routes require a trader, overrides an admin.
	JWTManager *auth.JWTManager

	// RateLimiter throttles per client IP when non-nil.
	RateLimiter *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	authenticated := cfg.JWTManager != nil
	requireTrader := passthrough
	requireAdmin := passthrough
	if authenticated {
		requireTrader = middleware.RequireRole(domain.RoleTrader)
		requireAdmin = middleware.RequireRole(domain.RoleAdmin)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if authenticated {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		}

		// Trades
		r.Route("/trades", func(r chi.Router) {
			r.With(requireTrader).Post("/", cfg.LedgerHandler.CreateTrade)
			r.With(requireTrader).Post("/undo", cfg.LedgerHandler.Undo)
			r.With(requireTrader).Post("/redo", cfg.LedgerHandler.Redo)
			r.Get("/", cfg.LedgerHandler.List)
			r.Get("/statistics", cfg.LedgerHandler.Statistics)
			r.Get("/{id}", cfg.LedgerHandler.Get)
		})

		// Balance
		r.Route("/balance", func(r chi.Router) {
			r.Get("/", cfg.BalanceHandler.Get)
			r.Get("/history", cfg.BalanceHandler.History)
			r.Get("/valuation", cfg.BalanceHandler.Valuation)
			r.With(requireAdmin).Put("/{currency}", cfg.BalanceHandler.Override)
		})

		// Rates
		r.Route("/rates", func(r chi.Router) {
			r.Get("/cache", cfg.RateHandler.CacheStatus)
			r.Get("/{pair}", cfg.RateHandler.Get)
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
