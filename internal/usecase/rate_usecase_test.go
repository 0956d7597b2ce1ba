package usecase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase/mocks"
)

func newRateFixture() (*RateUseCase, *mocks.MockRateSource, *mocks.MockBalanceStore) {
	currencies := testCurrencies()
	rates := mocks.NewMockRateSource()
	balances := mocks.NewMockBalanceStore(currencies.Seed())
	uc := NewRateUseCase(rates, balances, currencies, zerolog.Nop())
	return uc, rates, balances
}

func TestGetCurrentRate(t *testing.T) {
	uc, rates, _ := newRateFixture()
	rates.SetRate("USDJPY", dec("172.4"))

	rate, err := uc.GetCurrentRate(context.Background(), "USDJPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("172.4")))

	_, err = uc.GetCurrentRate(context.Background(), "GBPJPY")
	assert.ErrorIs(t, err, domain.ErrUnsupportedPair)

	_, err = uc.GetCurrentRate(context.Background(), "EURJPY")
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestValuation(t *testing.T) {
	uc, rates, balances := newRateFixture()
	ctx := context.Background()

	require.NoError(t, balances.Write(ctx, domain.Balance{
		"JPY": dec("500000"),
		"USD": dec("1000"),
		"EUR": dec("200"),
	}))
	rates.SetRate("USDJPY", dec("150"))
	rates.SetRate("EURJPY", dec("165"))

	v, err := uc.Valuation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "JPY", v.HomeCurrency)
	assert.True(t, v.Complete)
	// 500000 + 1000*150 + 200*165
	assert.True(t, v.Total.Equal(dec("683000")))
	require.Len(t, v.Lines, 3)

	for _, line := range v.Lines {
		assert.True(t, line.RateKnown)
		if line.Currency == "JPY" {
			assert.True(t, line.Rate.Equal(dec("1")))
		}
	}
}

func TestValuationIncompleteWhenRateMissing(t *testing.T) {
	uc, rates, balances := newRateFixture()
	ctx := context.Background()

	require.NoError(t, balances.Write(ctx, domain.Balance{
		"JPY": dec("500000"),
		"USD": dec("1000"),
	}))
	rates.SetRate("EURJPY", dec("165"))
	// No USDJPY quote.

	v, err := uc.Valuation(ctx)
	require.NoError(t, err)
	assert.False(t, v.Complete)
	assert.True(t, v.Total.Equal(dec("500000")), "unquoted holdings contribute nothing")

	for _, line := range v.Lines {
		if line.Currency == "USD" {
			assert.False(t, line.RateKnown)
		}
	}
}
