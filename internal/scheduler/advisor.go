package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase"
)

// MarketAdvisor composes an advisory text from current balances, quotes for
// every supported pair against the home currency, and the home-currency
// valuation. Advisory only; nothing here places trades.
type MarketAdvisor struct {
	ledger     *usecase.LedgerUseCase
	rates      *usecase.RateUseCase
	currencies domain.Currencies
	logger     zerolog.Logger
}

// NewMarketAdvisor creates a MarketAdvisor.
func NewMarketAdvisor(
	ledger *usecase.LedgerUseCase,
	rates *usecase.RateUseCase,
	currencies domain.Currencies,
	logger zerolog.Logger,
) *MarketAdvisor {
	return &MarketAdvisor{
		ledger:     ledger,
		rates:      rates,
		currencies: currencies,
		logger:     logger,
	}
}

// Report implements Advisor.
func (a *MarketAdvisor) Report(ctx context.Context) (string, error) {
	balance := a.ledger.ReadBalance(ctx)

	var b strings.Builder
	b.WriteString("Holdings:\n")
	for _, currency := range a.currencies.Supported {
		fmt.Fprintf(&b, "  %s: %s\n", currency, balance.Get(currency).String())
	}

	b.WriteString("Rates:\n")
	for _, currency := range a.currencies.Supported {
		if currency == a.currencies.Home {
			continue
		}
		pair := domain.Pair(currency + a.currencies.Home)
		rate, err := a.rates.GetCurrentRate(ctx, pair)
		if err != nil {
			a.logger.Warn().Err(err).Str("pair", string(pair)).Msg("advisory quote unavailable")
			fmt.Fprintf(&b, "  %s: unavailable\n", pair)
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", pair, rate.String())
	}

	valuation, err := a.rates.Valuation(ctx)
	if err != nil {
		return "", fmt.Errorf("valuation: %w", err)
	}
	fmt.Fprintf(&b, "Total (%s): %s", valuation.HomeCurrency, valuation.Total.String())
	if !valuation.Complete {
		b.WriteString(" (partial: some rates unavailable)")
	}

	return b.String(), nil
}
