// Package scheduler runs the periodic advisory job: read balances, quote
// rates, compose a market report, hand it to the notifier. It never mutates
// the ledger.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mshibata/fxledger/internal/usecase"
)

// Advisor composes the advisory report for one cycle.
type Advisor interface {
	Report(ctx context.Context) (string, error)
}

// Config for Scheduler.
type Config struct {
	Advisor  Advisor
	Notifier usecase.Notifier
	Interval time.Duration
	Logger   zerolog.Logger
}

// Scheduler drives the Advisor on a fixed interval. A cycle that is still
// running when the next tick fires is not overlapped; the tick is skipped.
type Scheduler struct {
	advisor  Advisor
	notifier usecase.Notifier
	interval time.Duration
	logger   zerolog.Logger
	running  atomic.Bool
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Scheduler{
		advisor:  cfg.Advisor,
		notifier: cfg.Notifier,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start runs the advisory loop until the context is cancelled. The first
// cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("advisory scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("advisory scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("previous advisory cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	report, err := s.advisor.Report(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("advisory report failed")
		return
	}

	if err := s.notifier.Notify(ctx, "market advisory", report); err != nil {
		s.logger.Error().Err(err).Msg("advisory delivery failed")
		return
	}

	s.logger.Info().Msg("advisory report delivered")
}
