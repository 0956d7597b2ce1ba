package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance maps a currency code to its current amount.
type Balance map[string]decimal.Decimal

// Get returns the amount held in currency, zero if absent.
func (b Balance) Get(currency string) decimal.Decimal {
	if amount, ok := b[currency]; ok {
		return amount
	}
	return decimal.Zero
}

// Clone returns an independent copy of the balance.
func (b Balance) Clone() Balance {
	out := make(Balance, len(b))
	for currency, amount := range b {
		out[currency] = amount
	}
	return out
}

// ApplyTrade returns the balance after trading amount of the pair's base
// currency at rate (quote units per base unit). A positive amount buys base
// with quote, a negative amount sells base for quote; the single formula
// base += amount, quote -= amount*rate covers both directions.
func (b Balance) ApplyTrade(pair Pair, amount, rate decimal.Decimal) Balance {
	out := b.Clone()
	base, quote := pair.Base(), pair.Quote()
	out[base] = out.Get(base).Add(amount)
	out[quote] = out.Get(quote).Sub(amount.Mul(rate))
	return out
}

// RequiredFunds returns the currency and amount that must be available for
// the trade to execute: buying base requires amount*rate in quote, selling
// base requires |amount| in base.
func RequiredFunds(pair Pair, amount, rate decimal.Decimal) (string, decimal.Decimal) {
	if amount.IsPositive() {
		return pair.Quote(), amount.Mul(rate)
	}
	return pair.Base(), amount.Abs()
}

// BalanceSnapshot is one entry of the balance history trail.
type BalanceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Balances  Balance   `json:"balances"`
}

// Currencies describes the configured currency universe: the supported set,
// the home currency, and the amount the home currency is seeded with.
type Currencies struct {
	Supported      []string
	Home           string
	InitialBalance decimal.Decimal
}

// IsSupported reports whether code belongs to the supported set.
func (c Currencies) IsSupported(code string) bool {
	for _, s := range c.Supported {
		if s == code {
			return true
		}
	}
	return false
}

// Seed returns the initial balance: the home currency holds the configured
// initial amount, every other supported currency holds zero.
func (c Currencies) Seed() Balance {
	b := make(Balance, len(c.Supported))
	for _, code := range c.Supported {
		if code == c.Home {
			b[code] = c.InitialBalance
		} else {
			b[code] = decimal.Zero
		}
	}
	return b
}

// Normalize fills in any supported currency missing from b with its seed
// amount. The input is not modified.
func (c Currencies) Normalize(b Balance) Balance {
	out := b.Clone()
	seed := c.Seed()
	for _, code := range c.Supported {
		if _, ok := out[code]; !ok {
			out[code] = seed[code]
		}
	}
	return out
}
