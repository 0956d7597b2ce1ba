package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// BalanceStore persists the current balance snapshot.
type BalanceStore interface {
	Read(ctx context.Context) domain.Balance
	Write(ctx context.Context, balance domain.Balance) error
	History(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error)
}

// TransactionLog persists the append-only transaction sequence.
type TransactionLog interface {
	Append(ctx context.Context, tx *domain.Transaction) (string, error)
	Get(ctx context.Context, limit int) ([]*domain.Transaction, error)
	GetLastActive(ctx context.Context) (*domain.Transaction, error)
	GetLastReversal(ctx context.Context) (*domain.Transaction, error)
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	MarkUndone(ctx context.Context, id string) (bool, error)
	Statistics(ctx context.Context) (*domain.TransactionStats, error)
}

// RateSource quotes an exchange rate for a currency pair. Quotes are for
// display and advisory use only; executed trades carry the rate the caller
// supplied.
type RateSource interface {
	GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	CacheStatus() map[string]time.Time
}

// Notifier delivers out-of-band messages to the operator channel.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
	NotifyCritical(ctx context.Context, subject, message string) error
}

// LedgerMetrics records operation outcomes. Implemented by the prometheus
// registry in infrastructure/metrics; tests use the no-op variant.
type LedgerMetrics interface {
	RecordTrade(pair string, status string, duration time.Duration)
	RecordUndo(status string)
	RecordRedo(status string)
	RecordOverride(status string)
	RecordPersistenceFailure(op string)
}
