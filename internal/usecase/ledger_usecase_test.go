package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCurrencies() domain.Currencies {
	return domain.Currencies{
		Supported:      []string{"JPY", "USD", "EUR"},
		Home:           "JPY",
		InitialBalance: dec("1000000"),
	}
}

type ledgerFixture struct {
	uc       *LedgerUseCase
	balances *mocks.MockBalanceStore
	log      *mocks.MockTransactionLog
	notifier *mocks.MockNotifier
}

func newLedgerFixture() *ledgerFixture {
	currencies := testCurrencies()
	balances := mocks.NewMockBalanceStore(currencies.Seed())
	log := mocks.NewMockTransactionLog()
	notifier := mocks.NewMockNotifier()
	uc := NewLedgerUseCase(balances, log, currencies, notifier, mocks.NopMetrics{}, zerolog.Nop())
	return &ledgerFixture{uc: uc, balances: balances, log: log, notifier: notifier}
}

func trader() domain.User {
	return domain.User{ID: "U123", Name: "taro", Role: domain.RoleTrader}
}

func admin() domain.User {
	return domain.User{ID: "U001", Name: "ops", Role: domain.RoleAdmin}
}

func TestExecuteTradeBuy(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	result, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("300"), dec("172.4"), trader())
	require.NoError(t, err)
	assert.NotEmpty(t, result.TransactionID)
	assert.True(t, result.Balance.Get("USD").Equal(dec("300")))
	assert.True(t, result.Balance.Get("JPY").Equal(dec("948280")))

	txs, err := f.log.Get(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TypeTrade, txs[0].Type)
	assert.Equal(t, domain.StatusActive, txs[0].State.Status)
	assert.Equal(t, "U123", txs[0].UserID)
}

func TestExecuteTradeValidation(t *testing.T) {
	tests := []struct {
		name        string
		pair        domain.Pair
		amount      string
		rate        string
		expectedErr error
	}{
		{name: "unsupported pair", pair: "GBPJPY", amount: "100", rate: "190", expectedErr: domain.ErrUnsupportedPair},
		{name: "malformed pair", pair: "USD", amount: "100", rate: "150", expectedErr: domain.ErrUnsupportedPair},
		{name: "zero amount", pair: "USDJPY", amount: "0", rate: "150", expectedErr: domain.ErrZeroAmount},
		{name: "zero rate", pair: "USDJPY", amount: "100", rate: "0", expectedErr: domain.ErrInvalidRate},
		{name: "negative rate", pair: "USDJPY", amount: "100", rate: "-1", expectedErr: domain.ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			_, err := f.uc.ExecuteTrade(context.Background(), tt.pair, dec(tt.amount), dec(tt.rate), trader())
			assert.ErrorIs(t, err, tt.expectedErr)

			// Nothing may have been applied or recorded.
			assert.True(t, f.uc.ReadBalance(context.Background()).Get("JPY").Equal(dec("1000000")))
			txs, _ := f.log.Get(context.Background(), 0)
			assert.Empty(t, txs)
		})
	}
}

func TestExecuteTradeInsufficientFunds(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	// 6000 USD at 172.4 needs 1,034,400 JPY against 1,000,000 available.
	_, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("6000"), dec("172.4"), trader())

	var ife *domain.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "JPY", ife.Currency)
	assert.True(t, ife.Required.Equal(dec("1034400")))
	assert.True(t, ife.Available.Equal(dec("1000000")))
	assert.True(t, ife.Shortfall().Equal(dec("34400")))
	assert.False(t, ife.ForUndo)

	// No partial fill.
	balance := f.uc.ReadBalance(ctx)
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")))
	assert.True(t, balance.Get("USD").IsZero())
	txs, _ := f.log.Get(ctx, 0)
	assert.Empty(t, txs)
}

func TestExecuteTradeSellRequiresBase(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("-100"), dec("172.4"), trader())

	var ife *domain.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "USD", ife.Currency)
	assert.True(t, ife.Required.Equal(dec("100")))
}

func TestExecuteTradeConservation(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	result, err := f.uc.ExecuteTrade(ctx, "EURJPY", dec("1000"), dec("165"), trader())
	require.NoError(t, err)

	// The quote leg shrinks by exactly amount*rate while the base leg grows
	// by exactly amount.
	assert.True(t, result.Balance.Get("EUR").Equal(dec("1000")))
	assert.True(t, result.Balance.Get("JPY").Equal(dec("1000000").Sub(dec("165000"))))
}

func TestExecuteTradeUnauthorized(t *testing.T) {
	f := newLedgerFixture()

	viewer := domain.User{ID: "U777", Role: domain.RoleViewer}
	_, err := f.uc.ExecuteTrade(context.Background(), "USDJPY", dec("100"), dec("150"), viewer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestExecuteTradePersistenceFailureEscalates(t *testing.T) {
	f := newLedgerFixture()
	f.balances.WriteFunc = func(ctx context.Context, balance domain.Balance) error {
		return &domain.PersistenceError{
			Op:               "balance.write",
			RestoreAttempted: true,
			RestoreOK:        true,
			Err:              errors.New("disk full"),
		}
	}

	_, err := f.uc.ExecuteTrade(context.Background(), "USDJPY", dec("100"), dec("150"), trader())
	require.Error(t, err)
	assert.True(t, domain.IsPersistenceError(err))
	assert.Equal(t, 1, f.notifier.CriticalCount(), "persistence failure must reach the operator")

	txs, _ := f.log.Get(context.Background(), 0)
	assert.Empty(t, txs, "no record may be appended when the balance write failed")
}

func TestUndoLastInvertsTrade(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	traded, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("300"), dec("172.4"), trader())
	require.NoError(t, err)

	undone, err := f.uc.UndoLast(ctx, trader())
	require.NoError(t, err)

	balance := undone.Balance
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")), "undo must restore the original JPY amount")
	assert.True(t, balance.Get("USD").IsZero())

	original, err := f.log.GetByID(ctx, traded.TransactionID)
	require.NoError(t, err)
	assert.True(t, original.State.Superseded())
	require.NotNil(t, original.State.UndoneAt)

	reversal, err := f.log.GetByID(ctx, undone.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeReversal, reversal.Type)
	assert.Equal(t, traded.TransactionID, reversal.OriginalTransactionID)
	assert.True(t, reversal.Amount.Equal(dec("-300")))
}

func TestUndoLastNothingToUndo(t *testing.T) {
	f := newLedgerFixture()
	_, err := f.uc.UndoLast(context.Background(), trader())
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)
}

func TestUndoLastAlreadyUndone(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("300"), dec("172.4"), trader())
	require.NoError(t, err)
	_, err = f.uc.UndoLast(ctx, trader())
	require.NoError(t, err)

	_, err = f.uc.UndoLast(ctx, trader())
	assert.ErrorIs(t, err, domain.ErrAlreadyUndone)
}

func TestUndoLastInsufficientFundsForInverse(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("300"), dec("172.4"), trader())
	require.NoError(t, err)

	// Drain the USD that the inverse leg needs.
	_, err = f.uc.OverrideBalance(ctx, "USD", dec("50"), admin())
	require.NoError(t, err)

	_, err = f.uc.UndoLast(ctx, trader())
	var ife *domain.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.True(t, ife.ForUndo)
	assert.Equal(t, "USD", ife.Currency)

	// The original trade stays active and the balance untouched.
	last, lerr := f.log.GetLastActive(ctx)
	require.NoError(t, lerr)
	require.NotNil(t, last)
	assert.True(t, f.uc.ReadBalance(ctx).Get("USD").Equal(dec("50")))
}

func TestRedoLastRestoresTrade(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	traded, err := f.uc.ExecuteTrade(ctx, "USDJPY", dec("300"), dec("172.4"), trader())
	require.NoError(t, err)
	_, err = f.uc.UndoLast(ctx, trader())
	require.NoError(t, err)

	redone, err := f.uc.RedoLast(ctx, trader())
	require.NoError(t, err)

	balance := redone.Balance
	assert.True(t, balance.Get("USD").Equal(dec("300")))
	assert.True(t, balance.Get("JPY").Equal(dec("948280")))

	redo, err := f.log.GetByID(ctx, redone.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeRedo, redo.Type)
	assert.Equal(t, traded.TransactionID, redo.OriginalTransactionID)

	// The original stays superseded: replaying the log must not
	// double-apply the trade.
	original, err := f.log.GetByID(ctx, traded.TransactionID)
	require.NoError(t, err)
	assert.True(t, original.State.Superseded())
}

func TestRedoLastNothingToRedo(t *testing.T) {
	f := newLedgerFixture()
	_, err := f.uc.RedoLast(context.Background(), trader())
	assert.ErrorIs(t, err, domain.ErrNothingToRedo)
}

func TestRedoLastOriginalMissing(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.log.Append(ctx, &domain.Transaction{
		CurrencyPair:          "USDJPY",
		Amount:                dec("-300"),
		Rate:                  dec("172.4"),
		Type:                  domain.TypeReversal,
		OriginalTransactionID: "gone",
	})
	require.NoError(t, err)

	_, err = f.uc.RedoLast(ctx, trader())
	assert.ErrorIs(t, err, domain.ErrOriginalNotFound)
}

func TestOverrideBalance(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	result, err := f.uc.OverrideBalance(ctx, "JPY", dec("2000000"), admin())
	require.NoError(t, err)
	assert.True(t, result.Balance.Get("JPY").Equal(dec("2000000")))

	tx, err := f.log.GetByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeOverride, tx.Type)
	assert.Equal(t, domain.Pair("JPY/OVERRIDE"), tx.CurrencyPair)
	assert.True(t, tx.Amount.Equal(dec("1000000")), "override records the delta")

	// An override is not undoable: no active trade exists.
	_, err = f.uc.UndoLast(ctx, trader())
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)

	assert.True(t, f.uc.ReadBalance(ctx).Get("JPY").Equal(dec("2000000")))
}

func TestOverrideBalanceAuthorization(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.uc.OverrideBalance(ctx, "JPY", dec("500"), trader())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.uc.OverrideBalance(ctx, "GBP", dec("500"), admin())
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestConcurrentTradesSerialize(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	// 1,000,000 JPY funds exactly five trades of 1000 USD at 200.
	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.ExecuteTrade(ctx, "USDJPY", dec("1000"), dec("200"), trader())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var ife *domain.InsufficientFundsError
		require.ErrorAs(t, err, &ife)
	}
	assert.Equal(t, 5, succeeded)

	balance := f.uc.ReadBalance(ctx)
	assert.True(t, balance.Get("JPY").IsZero())
	assert.True(t, balance.Get("USD").Equal(dec("5000")))
}
