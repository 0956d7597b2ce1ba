package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Validation errors
	ErrUnsupportedPair = errors.New("unsupported currency pair")
	ErrZeroAmount      = errors.New("trade amount is zero")
	ErrInvalidRate     = errors.New("rate must be positive")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrBelowFloor      = errors.New("balance below catastrophic-negative threshold")

	// Undo/redo errors
	ErrNothingToUndo    = errors.New("no transaction to undo")
	ErrAlreadyUndone    = errors.New("transaction already undone")
	ErrNothingToRedo    = errors.New("no reversal to redo")
	ErrOriginalNotFound = errors.New("original transaction not found")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRateUnavailable     = errors.New("rate unavailable")
)

// InsufficientFundsError rejects a trade whose required leg exceeds the
// available balance. ForUndo marks the variant raised when the inverse leg of
// an undo cannot be funded.
type InsufficientFundsError struct {
	Currency  string
	Required  decimal.Decimal
	Available decimal.Decimal
	ForUndo   bool
}

func (e *InsufficientFundsError) Error() string {
	op := "trade"
	if e.ForUndo {
		op = "undo"
	}
	return fmt.Sprintf("insufficient %s funds for %s: required %s, available %s",
		e.Currency, op, e.Required.String(), e.Available.String())
}

// Shortfall returns how much the available balance falls short of the
// required amount.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// ErrRestoreFailed marks a write failure with no backup to restore from.
var ErrRestoreFailed = errors.New("restore from backup failed")

// PersistenceError reports a failed write to a ledger file, including the
// outcome of the restore-from-backup attempt. Callers must treat it as "the
// ledger may be inconsistent" rather than a plain rejection.
type PersistenceError struct {
	Op               string // "balance.write", "log.append", ...
	RestoreAttempted bool
	RestoreOK        bool
	Err              error
}

func (e *PersistenceError) Error() string {
	switch {
	case !e.RestoreAttempted:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	case e.RestoreOK:
		return fmt.Sprintf("%s failed (prior state restored from backup): %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed and restore from backup failed: %v", e.Op, e.Err)
	}
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err carries a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
