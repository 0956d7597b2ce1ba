package ratesource

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mshibata/fxledger/internal/domain"
)

// defaultFallbackRates are the compiled-in quotes used when the upstream is
// unreachable and no fallback file overrides them. Stale by definition;
// display and advisory use only.
var defaultFallbackRates = map[string]string{
	"USDJPY": "150.0",
	"EURJPY": "165.0",
	"GBPJPY": "190.0",
	"AUDJPY": "100.0",
	"CHFJPY": "170.0",
	"CADJPY": "110.0",
	"EURUSD": "1.10",
	"GBPUSD": "1.27",
	"AUDUSD": "0.67",
	"USDCHF": "0.88",
	"USDCAD": "1.36",
}

// Fallback answers from a static table when the inner source fails. A pair
// absent from the table surfaces the inner source's error.
type Fallback struct {
	inner  Source
	table  map[domain.Pair]decimal.Decimal
	logger zerolog.Logger
}

// NewFallback wraps inner with the compiled-in rate table, optionally
// overridden from a YAML file of pair: rate entries.
func NewFallback(inner Source, tablePath string, logger zerolog.Logger) (*Fallback, error) {
	table := make(map[domain.Pair]decimal.Decimal, len(defaultFallbackRates))
	for pair, rate := range defaultFallbackRates {
		table[domain.Pair(pair)] = decimal.RequireFromString(rate)
	}

	if tablePath != "" {
		loaded, err := loadRateTable(tablePath)
		if err != nil {
			return nil, fmt.Errorf("load fallback rate table: %w", err)
		}
		for pair, rate := range loaded {
			table[pair] = rate
		}
		logger.Info().Str("path", tablePath).Int("pairs", len(loaded)).Msg("fallback rate table loaded")
	}

	return &Fallback{inner: inner, table: table, logger: logger}, nil
}

// GetRate asks the inner source and falls back to the static table.
func (f *Fallback) GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	rate, err := f.inner.GetRate(ctx, pair)
	if err == nil {
		return rate, nil
	}

	if fallback, ok := f.table[pair]; ok {
		f.logger.Warn().Err(err).Str("pair", string(pair)).Str("fallback", fallback.String()).
			Msg("upstream rate unavailable, serving fallback")
		return fallback, nil
	}

	return decimal.Zero, err
}

// CacheStatus passes through to the inner source.
func (f *Fallback) CacheStatus() map[string]time.Time {
	return f.inner.CacheStatus()
}

func loadRateTable(path string) (map[domain.Pair]decimal.Decimal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make(map[domain.Pair]decimal.Decimal, len(raw))
	for pair, rate := range raw {
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", pair, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("pair %s: rate must be positive", pair)
		}
		out[domain.Pair(pair)] = d
	}

	return out, nil
}
