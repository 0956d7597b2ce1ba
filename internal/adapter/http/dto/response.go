package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase"
)

// TradeResponse represents the outcome of a mutating ledger operation.
type TradeResponse struct {
	TransactionID string                     `json:"transaction_id"`
	Balance       map[string]decimal.Decimal `json:"balance"`
}

// TradeResultFromUseCase converts a use case trade result to a response.
func TradeResultFromUseCase(res *usecase.TradeResult) *TradeResponse {
	return &TradeResponse{
		TransactionID: res.TransactionID,
		Balance:       res.Balance,
	}
}

// BalanceResponse represents the current balance in API responses.
type BalanceResponse struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

// BalanceFromDomain converts a domain balance to a response.
func BalanceFromDomain(b domain.Balance) *BalanceResponse {
	return &BalanceResponse{Balances: b}
}

// BalanceSnapshotResponse represents one entry of the balance history trail.
type BalanceSnapshotResponse struct {
	Timestamp time.Time                  `json:"timestamp"`
	Balances  map[string]decimal.Decimal `json:"balances"`
}

// BalanceHistoryFromDomain converts domain snapshots to responses.
func BalanceHistoryFromDomain(snapshots []domain.BalanceSnapshot) []*BalanceSnapshotResponse {
	result := make([]*BalanceSnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		result[i] = &BalanceSnapshotResponse{
			Timestamp: s.Timestamp,
			Balances:  s.Balances,
		}
	}
	return result
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                    string          `json:"id"`
	Timestamp             time.Time       `json:"timestamp"`
	CurrencyPair          string          `json:"currency_pair"`
	Amount                decimal.Decimal `json:"amount"`
	Rate                  decimal.Decimal `json:"rate"`
	UserID                string          `json:"user_id,omitempty"`
	Type                  string          `json:"type"`
	Status                string          `json:"status"`
	UndoneAt              *time.Time      `json:"undone_at,omitempty"`
	OriginalTransactionID string          `json:"original_transaction_id,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                    t.ID,
		Timestamp:             t.Timestamp,
		CurrencyPair:          string(t.CurrencyPair),
		Amount:                t.Amount,
		Rate:                  t.Rate,
		UserID:                t.UserID,
		Type:                  string(t.Type),
		Status:                string(t.State.Status),
		UndoneAt:              t.State.UndoneAt,
		OriginalTransactionID: t.OriginalTransactionID,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse wraps a transaction listing.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int                    `json:"total"`
}

// StatisticsResponse summarizes the transaction log in API responses.
type StatisticsResponse struct {
	Total         int            `json:"total"`
	Completed     int            `json:"completed"`
	Undone        int            `json:"undone"`
	CurrencyPairs []string       `json:"currency_pairs"`
	PerType       map[string]int `json:"per_type"`
	Earliest      *time.Time     `json:"earliest,omitempty"`
	Latest        *time.Time     `json:"latest,omitempty"`
}

// StatisticsFromDomain converts domain stats to a response.
func StatisticsFromDomain(s *domain.TransactionStats) *StatisticsResponse {
	perType := make(map[string]int, len(s.PerType))
	for t, n := range s.PerType {
		perType[string(t)] = n
	}
	return &StatisticsResponse{
		Total:         s.Total,
		Completed:     s.Completed,
		Undone:        s.Undone,
		CurrencyPairs: s.CurrencyPairs,
		PerType:       perType,
		Earliest:      s.Earliest,
		Latest:        s.Latest,
	}
}

// ValuationLineResponse is one currency's contribution to the valuation.
type ValuationLineResponse struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	HomeValue decimal.Decimal `json:"home_value"`
	RateKnown bool            `json:"rate_known"`
}

// ValuationResponse represents the balance valued in the home currency.
type ValuationResponse struct {
	HomeCurrency string                  `json:"home_currency"`
	Total        decimal.Decimal         `json:"total"`
	Lines        []ValuationLineResponse `json:"lines"`
	Complete     bool                    `json:"complete"`
}

// ValuationFromUseCase converts a use case valuation to a response.
func ValuationFromUseCase(v *usecase.Valuation) *ValuationResponse {
	lines := make([]ValuationLineResponse, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = ValuationLineResponse{
			Currency:  l.Currency,
			Amount:    l.Amount,
			Rate:      l.Rate,
			HomeValue: l.HomeValue,
			RateKnown: l.RateKnown,
		}
	}
	return &ValuationResponse{
		HomeCurrency: v.HomeCurrency,
		Total:        v.Total,
		Lines:        lines,
		Complete:     v.Complete,
	}
}

// RateResponse represents a quoted exchange rate.
type RateResponse struct {
	CurrencyPair string          `json:"currency_pair"`
	Rate         decimal.Decimal `json:"rate"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
