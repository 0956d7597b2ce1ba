package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// RateUseCase quotes exchange rates and values the balance in the home
// currency. Strictly display and advisory: nothing here ever feeds the rate
// of an executed trade or mutates the ledger.
type RateUseCase struct {
	rates      RateSource
	balances   BalanceStore
	currencies domain.Currencies
	logger     zerolog.Logger
}

// NewRateUseCase creates a new RateUseCase.
func NewRateUseCase(
	rates RateSource,
	balances BalanceStore,
	currencies domain.Currencies,
	logger zerolog.Logger,
) *RateUseCase {
	return &RateUseCase{
		rates:      rates,
		balances:   balances,
		currencies: currencies,
		logger:     logger,
	}
}

// GetCurrentRate quotes the pair through the rate source.
func (uc *RateUseCase) GetCurrentRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if err := pair.Validate(uc.currencies); err != nil {
		return decimal.Zero, err
	}
	return uc.rates.GetRate(ctx, pair)
}

// ValuationLine is one currency's contribution to the home-currency total.
type ValuationLine struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	HomeValue decimal.Decimal `json:"home_value"`
	RateKnown bool            `json:"rate_known"`
}

// Valuation is the balance expressed in the home currency.
type Valuation struct {
	HomeCurrency string          `json:"home_currency"`
	Total        decimal.Decimal `json:"total"`
	Lines        []ValuationLine `json:"lines"`
	Complete     bool            `json:"complete"`
}

// Valuation converts every holding to the home currency at current quotes.
// A currency whose rate cannot be quoted contributes nothing to the total
// and flags the valuation incomplete rather than failing the whole request.
func (uc *RateUseCase) Valuation(ctx context.Context) (*Valuation, error) {
	balance := uc.balances.Read(ctx)

	v := &Valuation{
		HomeCurrency: uc.currencies.Home,
		Total:        decimal.Zero,
		Complete:     true,
	}

	currencies := make([]string, 0, len(balance))
	for currency := range balance {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		amount := balance.Get(currency)
		line := ValuationLine{Currency: currency, Amount: amount}

		if currency == uc.currencies.Home {
			line.Rate = decimal.NewFromInt(1)
			line.HomeValue = amount
			line.RateKnown = true
		} else {
			rate, err := uc.rates.GetRate(ctx, domain.Pair(currency+uc.currencies.Home))
			if err != nil {
				uc.logger.Warn().Err(err).Str("currency", currency).Msg("valuation rate unavailable")
				v.Complete = false
				v.Lines = append(v.Lines, line)
				continue
			}
			line.Rate = rate
			line.HomeValue = amount.Mul(rate)
			line.RateKnown = true
		}

		v.Total = v.Total.Add(line.HomeValue)
		v.Lines = append(v.Lines, line)
	}

	return v, nil
}

// CacheStatus reports which pairs the rate source currently holds and when
// each expires.
func (uc *RateUseCase) CacheStatus() map[string]time.Time {
	return uc.rates.CacheStatus()
}
