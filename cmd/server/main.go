package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	httpAdapter "github.com/mshibata/fxledger/internal/adapter/http"
	"github.com/mshibata/fxledger/internal/adapter/http/handler"
	filerepo "github.com/mshibata/fxledger/internal/adapter/repository/file"
	"github.com/mshibata/fxledger/internal/adapter/ratesource"
	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/infrastructure/auth"
	"github.com/mshibata/fxledger/internal/infrastructure/config"
	"github.com/mshibata/fxledger/internal/infrastructure/logger"
	"github.com/mshibata/fxledger/internal/infrastructure/metrics"
	"github.com/mshibata/fxledger/internal/infrastructure/notifier"
	"github.com/mshibata/fxledger/internal/infrastructure/redis"
	"github.com/mshibata/fxledger/internal/scheduler"
	"github.com/mshibata/fxledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	initialBalance, err := cfg.InitialBalanceAmount()
	if err != nil {
		return fmt.Errorf("parse initial balance: %w", err)
	}
	floor, err := cfg.BalanceFloorAmount()
	if err != nil {
		return fmt.Errorf("parse balance floor: %w", err)
	}

	currencies := domain.Currencies{
		Supported:      cfg.SupportedCurrencies,
		Home:           cfg.HomeCurrency,
		InitialBalance: initialBalance,
	}

	m := metrics.New()

	// File-backed stores
	balanceStore, err := filerepo.NewBalanceStore(filerepo.BalanceStoreConfig{
		Path:         cfg.BalancePath(),
		Currencies:   currencies,
		Floor:        floor,
		KeepBackups:  cfg.BalanceBackups,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("open balance store: %w", err)
	}

	txLog, err := filerepo.NewTransactionLog(filerepo.TransactionLogConfig{
		Path:        cfg.TransactionLogPath(),
		KeepBackups: cfg.LogBackups,
		IDGen:       filerepo.NewULIDGenerator(),
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("open transaction log: %w", err)
	}

	// Rate source chain: HTTP client, static fallback, then a cache in
	// front (redis when configured, in-process otherwise)
	rateClient := ratesource.NewClient(ratesource.ClientConfig{
		BaseURL: cfg.RateAPIURL,
		APIKey:  cfg.RateAPIKey,
		Logger:  log,
	})
	fallback, err := ratesource.NewFallback(rateClient, cfg.RateFallbackTable, log)
	if err != nil {
		return fmt.Errorf("build rate fallback: %w", err)
	}

	var rates ratesource.Source
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
		rates = ratesource.NewRedisCache(redisClient, fallback, cfg.RateCacheTTL, log)
	} else {
		rates = ratesource.NewCache(fallback, cfg.RateCacheTTL, log)
	}

	// Notifier
	var notify usecase.Notifier
	if cfg.NotifyWebhookURL != "" {
		notify = notifier.NewWebhook(cfg.NotifyWebhookURL, cfg.HTTPWriteTimeout, log)
	} else {
		notify = notifier.NewLog(log)
	}

	// Use cases
	ledgerUC := usecase.NewLedgerUseCase(balanceStore, txLog, currencies, notify, m, log)
	rateUC := usecase.NewRateUseCase(rates, balanceStore, currencies, log)

	// Advisory scheduler
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.AdvisorEnabled {
		advisor := scheduler.NewMarketAdvisor(ledgerUC, rateUC, currencies, log)
		sched := scheduler.New(scheduler.Config{
			Advisor:  advisor,
			Notifier: notify,
			Interval: cfg.AdvisorInterval,
			Logger:   log,
		})
		go func() {
			if err := sched.Start(schedulerCtx); err != nil && schedulerCtx.Err() == nil {
				log.Error().Err(err).Msg("advisory scheduler stopped")
			}
		}()
	}

	// Authentication
	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("AUTH_ENABLED requires JWT_SECRET")
		}
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:  handler.NewLedgerHandler(ledgerUC),
		BalanceHandler: handler.NewBalanceHandler(ledgerUC, rateUC),
		RateHandler:    handler.NewRateHandler(rateUC),
		HealthHandler:  handler.NewHealthHandler(cfg.DataDir),
		Logger:         log,
		Metrics:        m,
		JWTManager:     jwtManager,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down server...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
