package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// LedgerUseCase is the single writer of the ledger. Every mutating operation
// holds mu across the whole read-validate-mutate-persist sequence, so
// concurrent commands serialize and no trade can spend funds another trade
// just spent. Reads run without the lock and are eventually consistent.
type LedgerUseCase struct {
	mu         sync.Mutex
	balances   BalanceStore
	log        TransactionLog
	currencies domain.Currencies
	notifier   Notifier
	metrics    LedgerMetrics
	logger     zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	balances BalanceStore,
	log TransactionLog,
	currencies domain.Currencies,
	notifier Notifier,
	metrics LedgerMetrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		balances:   balances,
		log:        log,
		currencies: currencies,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// TradeResult is the outcome of a successful mutating operation.
type TradeResult struct {
	TransactionID string
	Balance       domain.Balance
}

// ExecuteTrade validates and applies a trade, persists the new balance, and
// records the transaction. No partial application: a rejected trade leaves
// both files untouched.
func (uc *LedgerUseCase) ExecuteTrade(
	ctx context.Context,
	pair domain.Pair,
	amount, rate decimal.Decimal,
	user domain.User,
) (*TradeResult, error) {
	start := time.Now()

	if err := uc.authorizeTrade(user); err != nil {
		return nil, err
	}
	if err := pair.Validate(uc.currencies); err != nil {
		uc.metrics.RecordTrade(string(pair), "rejected", time.Since(start))
		return nil, err
	}
	if amount.IsZero() {
		uc.metrics.RecordTrade(string(pair), "rejected", time.Since(start))
		return nil, domain.ErrZeroAmount
	}
	if !rate.IsPositive() {
		uc.metrics.RecordTrade(string(pair), "rejected", time.Since(start))
		return nil, domain.ErrInvalidRate
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	balance := uc.balances.Read(ctx)

	currency, required := domain.RequiredFunds(pair, amount, rate)
	if available := balance.Get(currency); available.LessThan(required) {
		uc.metrics.RecordTrade(string(pair), "insufficient_funds", time.Since(start))
		return nil, &domain.InsufficientFundsError{
			Currency:  currency,
			Required:  required,
			Available: available,
		}
	}

	next := balance.ApplyTrade(pair, amount, rate)
	if err := uc.balances.Write(ctx, next); err != nil {
		uc.metrics.RecordTrade(string(pair), "error", time.Since(start))
		return nil, uc.escalate(ctx, "trade: balance write", err)
	}

	id, err := uc.log.Append(ctx, &domain.Transaction{
		CurrencyPair: pair,
		Amount:       amount,
		Rate:         rate,
		UserID:       user.ID,
		Type:         domain.TypeTrade,
	})
	if err != nil {
		// The balance is already updated; the record may or may not be
		// durable. Escalate rather than pretend the trade failed cleanly.
		uc.metrics.RecordTrade(string(pair), "error", time.Since(start))
		return nil, uc.escalate(ctx, "trade: log append", err)
	}

	uc.metrics.RecordTrade(string(pair), "ok", time.Since(start))
	uc.logger.Info().
		Str("transaction_id", id).
		Str("pair", string(pair)).
		Str("amount", amount.String()).
		Str("rate", rate.String()).
		Str("user_id", user.ID).
		Msg("trade executed")

	return &TradeResult{TransactionID: id, Balance: next}, nil
}

// UndoLast reverses the most recent active trade by applying its inverse
// transfer, marks the original superseded, and records a reversal linked to
// it. Only the inverse leg is funds-checked.
func (uc *LedgerUseCase) UndoLast(ctx context.Context, user domain.User) (*TradeResult, error) {
	if err := uc.authorizeTrade(user); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	last, err := uc.log.GetLastActive(ctx)
	if err != nil {
		uc.metrics.RecordUndo("error")
		return nil, err
	}
	if last == nil {
		uc.metrics.RecordUndo("rejected")
		if rev, err := uc.log.GetLastReversal(ctx); err == nil && rev != nil {
			return nil, domain.ErrAlreadyUndone
		}
		return nil, domain.ErrNothingToUndo
	}

	pair, amount, rate := last.Inverse()

	balance := uc.balances.Read(ctx)
	currency, required := domain.RequiredFunds(pair, amount, rate)
	if available := balance.Get(currency); available.LessThan(required) {
		uc.metrics.RecordUndo("insufficient_funds")
		return nil, &domain.InsufficientFundsError{
			Currency:  currency,
			Required:  required,
			Available: available,
			ForUndo:   true,
		}
	}

	next := balance.ApplyTrade(pair, amount, rate)
	if err := uc.balances.Write(ctx, next); err != nil {
		uc.metrics.RecordUndo("error")
		return nil, uc.escalate(ctx, "undo: balance write", err)
	}

	found, err := uc.log.MarkUndone(ctx, last.ID)
	if err != nil {
		uc.metrics.RecordUndo("error")
		return nil, uc.escalate(ctx, "undo: mark undone", err)
	}
	if !found {
		uc.logger.Warn().Str("transaction_id", last.ID).Msg("undo: original vanished from log")
	}

	id, err := uc.log.Append(ctx, &domain.Transaction{
		CurrencyPair:          pair,
		Amount:                amount,
		Rate:                  rate,
		UserID:                user.ID,
		Type:                  domain.TypeReversal,
		OriginalTransactionID: last.ID,
	})
	if err != nil {
		uc.metrics.RecordUndo("error")
		return nil, uc.escalate(ctx, "undo: log append", err)
	}

	uc.metrics.RecordUndo("ok")
	uc.logger.Info().
		Str("transaction_id", id).
		Str("original_id", last.ID).
		Str("user_id", user.ID).
		Msg("trade undone")

	return &TradeResult{TransactionID: id, Balance: next}, nil
}

// RedoLast re-applies the trade that the most recent reversal undid. The
// original record stays superseded; a fresh redo record carries the replay,
// so loading the log never double-applies anything.
func (uc *LedgerUseCase) RedoLast(ctx context.Context, user domain.User) (*TradeResult, error) {
	if err := uc.authorizeTrade(user); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	reversal, err := uc.log.GetLastReversal(ctx)
	if err != nil {
		uc.metrics.RecordRedo("error")
		return nil, err
	}
	if reversal == nil {
		uc.metrics.RecordRedo("rejected")
		return nil, domain.ErrNothingToRedo
	}

	original, err := uc.log.GetByID(ctx, reversal.OriginalTransactionID)
	if err != nil {
		uc.metrics.RecordRedo("rejected")
		return nil, fmt.Errorf("%w: %s", domain.ErrOriginalNotFound, reversal.OriginalTransactionID)
	}

	balance := uc.balances.Read(ctx)
	next := balance.ApplyTrade(original.CurrencyPair, original.Amount, original.Rate)
	if err := uc.balances.Write(ctx, next); err != nil {
		uc.metrics.RecordRedo("error")
		return nil, uc.escalate(ctx, "redo: balance write", err)
	}

	id, err := uc.log.Append(ctx, &domain.Transaction{
		CurrencyPair:          original.CurrencyPair,
		Amount:                original.Amount,
		Rate:                  original.Rate,
		UserID:                user.ID,
		Type:                  domain.TypeRedo,
		OriginalTransactionID: original.ID,
	})
	if err != nil {
		uc.metrics.RecordRedo("error")
		return nil, uc.escalate(ctx, "redo: log append", err)
	}

	uc.metrics.RecordRedo("ok")
	uc.logger.Info().
		Str("transaction_id", id).
		Str("original_id", original.ID).
		Str("user_id", user.ID).
		Msg("trade redone")

	return &TradeResult{TransactionID: id, Balance: next}, nil
}

// OverrideBalance sets a currency to an absolute amount, bypassing funds
// validation, and records an override transaction carrying the delta. An
// override is not undoable through UndoLast.
func (uc *LedgerUseCase) OverrideBalance(
	ctx context.Context,
	currency string,
	newAmount decimal.Decimal,
	user domain.User,
) (*TradeResult, error) {
	if user.Role != "" && !user.Role.CanOverride() {
		uc.metrics.RecordOverride("unauthorized")
		return nil, domain.ErrUnauthorized
	}
	if !uc.currencies.IsSupported(currency) {
		uc.metrics.RecordOverride("rejected")
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, currency)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	balance := uc.balances.Read(ctx)
	delta := newAmount.Sub(balance.Get(currency))

	next := balance.Clone()
	next[currency] = newAmount
	if err := uc.balances.Write(ctx, next); err != nil {
		uc.metrics.RecordOverride("error")
		return nil, uc.escalate(ctx, "override: balance write", err)
	}

	id, err := uc.log.Append(ctx, &domain.Transaction{
		CurrencyPair: domain.OverridePair(currency),
		Amount:       delta,
		Rate:         decimal.Zero,
		UserID:       user.ID,
		Type:         domain.TypeOverride,
	})
	if err != nil {
		uc.metrics.RecordOverride("error")
		return nil, uc.escalate(ctx, "override: log append", err)
	}

	uc.metrics.RecordOverride("ok")
	uc.logger.Info().
		Str("transaction_id", id).
		Str("currency", currency).
		Str("new_amount", newAmount.String()).
		Str("delta", delta.String()).
		Str("user_id", user.ID).
		Msg("balance overridden")

	return &TradeResult{TransactionID: id, Balance: next}, nil
}

// ReadBalance returns the current balance. Lock-free; a concurrent write is
// observed entirely before or entirely after.
func (uc *LedgerUseCase) ReadBalance(ctx context.Context) domain.Balance {
	return uc.balances.Read(ctx)
}

// BalanceHistory returns the most recent limit entries of the history trail.
func (uc *LedgerUseCase) BalanceHistory(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error) {
	return uc.balances.History(ctx, limit)
}

// GetTransactions returns up to limit records, most recent first.
func (uc *LedgerUseCase) GetTransactions(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	return uc.log.Get(ctx, limit)
}

// GetTransaction returns one record by id.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.log.GetByID(ctx, id)
}

// GetUserTransactions returns up to limit records for one user, most recent
// first.
func (uc *LedgerUseCase) GetUserTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	return uc.log.GetByUser(ctx, userID, limit)
}

// Statistics summarizes the transaction log.
func (uc *LedgerUseCase) Statistics(ctx context.Context) (*domain.TransactionStats, error) {
	return uc.log.Statistics(ctx)
}

func (uc *LedgerUseCase) authorizeTrade(user domain.User) error {
	// An empty role means authentication is disabled.
	if user.Role != "" && !user.Role.CanTrade() {
		return domain.ErrUnauthorized
	}
	return nil
}

// escalate logs and notifies on a persistence failure, then returns the
// error for the caller to surface. Validation errors pass through untouched.
func (uc *LedgerUseCase) escalate(ctx context.Context, op string, err error) error {
	if !domain.IsPersistenceError(err) {
		return err
	}

	uc.metrics.RecordPersistenceFailure(op)
	uc.logger.Error().Err(err).Str("op", op).Msg("ledger persistence failure")

	if notifyErr := uc.notifier.NotifyCritical(ctx, "ledger persistence failure",
		fmt.Sprintf("%s: %v", op, err)); notifyErr != nil {
		uc.logger.Error().Err(notifyErr).Msg("operator notification failed")
	}

	return err
}
