package dto

import (
	"github.com/shopspring/decimal"
)

// TradeRequest represents a request to execute a trade.
type TradeRequest struct {
	CurrencyPair string          `json:"currency_pair"`
	Amount       decimal.Decimal `json:"amount"`
	Rate         decimal.Decimal `json:"rate"`
}

// OverrideRequest represents a request to force a currency balance to an
// absolute amount.
type OverrideRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
