package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filerepo "github.com/mshibata/fxledger/internal/adapter/repository/file"
	"github.com/mshibata/fxledger/internal/domain"
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

func newBalanceStore(t *testing.T, keepBackups int) (*filerepo.BalanceStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balance.json")
	store, err := filerepo.NewBalanceStore(filerepo.BalanceStoreConfig{
		Path:        path,
		Currencies:  testCurrencies(),
		Floor:       dec("-1000000"),
		KeepBackups: keepBackups,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return store, path
}

func TestBalanceStoreSeedsOnFirstUse(t *testing.T) {
	store, path := newBalanceStore(t, 5)

	_, err := os.Stat(path)
	require.NoError(t, err, "snapshot file must be created eagerly")

	balance := store.Read(context.Background())
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")))
	assert.True(t, balance.Get("USD").IsZero())
	assert.True(t, balance.Get("EUR").IsZero())
}

func TestBalanceStoreWriteReadRoundTrip(t *testing.T) {
	store, _ := newBalanceStore(t, 5)
	ctx := context.Background()

	next := domain.Balance{"JPY": dec("948280"), "USD": dec("300"), "EUR": dec("0")}
	require.NoError(t, store.Write(ctx, next))

	got := store.Read(ctx)
	assert.True(t, got.Get("JPY").Equal(dec("948280")))
	assert.True(t, got.Get("USD").Equal(dec("300")))
}

func TestBalanceStoreMalformedSnapshotFallsBackToSeed(t *testing.T) {
	store, path := newBalanceStore(t, 5)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	balance := store.Read(context.Background())
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")), "malformed snapshot must be treated as missing")
}

func TestBalanceStoreFillsMissingCurrencies(t *testing.T) {
	store, path := newBalanceStore(t, 5)

	require.NoError(t, os.WriteFile(path, []byte(`{"balances":{"USD":"42"},"version":"1.0"}`), 0o644))

	balance := store.Read(context.Background())
	assert.True(t, balance.Get("USD").Equal(dec("42")))
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")))
	assert.True(t, balance.Get("EUR").IsZero())
}

func TestBalanceStoreWriteValidation(t *testing.T) {
	store, _ := newBalanceStore(t, 5)
	ctx := context.Background()

	err := store.Write(ctx, domain.Balance{"usd": dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	err = store.Write(ctx, domain.Balance{"JPY": dec("-2000000")})
	assert.ErrorIs(t, err, domain.ErrBelowFloor)

	// A rejected write must not disturb the snapshot.
	balance := store.Read(ctx)
	assert.True(t, balance.Get("JPY").Equal(dec("1000000")))
}

func TestBalanceStoreBackupRetention(t *testing.T) {
	const keep = 3
	store, path := newBalanceStore(t, keep)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Write(ctx, domain.Balance{"JPY": dec("1000000").Add(decimal.NewFromInt(int64(i)))}))
	}

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(path), "balance_backup_*.json"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), keep)
	assert.NotEmpty(t, backups)
}

func TestBalanceStoreHistoryTrail(t *testing.T) {
	store, _ := newBalanceStore(t, 5)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Write(ctx, domain.Balance{"JPY": decimal.NewFromInt(int64(i))}))
	}

	history, err := store.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Balances.Get("JPY").Equal(dec("4")), "newest entry first")
	assert.True(t, history[1].Balances.Get("JPY").Equal(dec("3")))

	all, err := store.History(ctx, 0)
	require.NoError(t, err)
	// Seed write plus four explicit writes.
	assert.Len(t, all, 5)
}
