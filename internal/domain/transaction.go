package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TypeTrade    TransactionType = "trade"
	TypeReversal TransactionType = "reversal"
	TypeRedo     TransactionType = "redo"
	TypeOverride TransactionType = "override"
)

// TransactionStatus is the lifecycle status of a transaction record.
type TransactionStatus string

const (
	StatusActive     TransactionStatus = "active"
	StatusSuperseded TransactionStatus = "superseded"
)

// TransactionState pairs the mutable status with the time it was superseded.
// It is the only part of a transaction that changes after append, and it
// changes at most once.
type TransactionState struct {
	Status   TransactionStatus `json:"status"`
	UndoneAt *time.Time        `json:"undone_at,omitempty"`
}

// ActiveState returns the state every transaction is appended with.
func ActiveState() TransactionState {
	return TransactionState{Status: StatusActive}
}

// Superseded reports whether the transaction has been undone.
func (s TransactionState) Superseded() bool {
	return s.Status == StatusSuperseded
}

// MarkSuperseded flips the state to superseded at the given time. It returns
// false, leaving the state untouched, when the transaction was already
// superseded.
func (s *TransactionState) MarkSuperseded(at time.Time) bool {
	if s.Superseded() {
		return false
	}
	s.Status = StatusSuperseded
	s.UndoneAt = &at
	return true
}

// Transaction is an immutable-once-written ledger record. Only State may be
// updated after append, through TransactionLog.MarkUndone.
type Transaction struct {
	ID                    string           `json:"id"`
	Timestamp             time.Time        `json:"timestamp"`
	CurrencyPair          Pair             `json:"currency_pair"`
	Amount                decimal.Decimal  `json:"amount"`
	Rate                  decimal.Decimal  `json:"rate"`
	UserID                string           `json:"user_id"`
	Type                  TransactionType  `json:"type"`
	State                 TransactionState `json:"state"`
	OriginalTransactionID string           `json:"original_transaction_id,omitempty"`
}

// Inverse returns the compensating trade parameters: negated amount, same
// pair and rate.
func (t *Transaction) Inverse() (Pair, decimal.Decimal, decimal.Decimal) {
	return t.CurrencyPair, t.Amount.Neg(), t.Rate
}

// TransactionStats summarizes the transaction log. Purely derived, never
// mutates the log.
type TransactionStats struct {
	Total         int                     `json:"total"`
	Completed     int                     `json:"completed"`
	Undone        int                     `json:"undone"`
	CurrencyPairs []string                `json:"currency_pairs"`
	PerType       map[TransactionType]int `json:"per_type"`
	Earliest      *time.Time              `json:"earliest,omitempty"`
	Latest        *time.Time              `json:"latest,omitempty"`
}
