package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps a domain error to a status code and writes it. A
// persistence failure gets a fixed message so callers can tell a rejected
// request from a ledger that may no longer match its files.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	if domain.IsPersistenceError(err) {
		writeError(w, http.StatusInternalServerError, "ledger may be inconsistent", err.Error())
		return
	}
	writeError(w, mapDomainError(err), fallback, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	var insufficientFunds *domain.InsufficientFundsError

	switch {
	case errors.Is(err, domain.ErrUnsupportedPair),
		errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrBelowFloor):
		return http.StatusBadRequest
	case errors.As(err, &insufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrNothingToUndo),
		errors.Is(err, domain.ErrNothingToRedo),
		errors.Is(err, domain.ErrOriginalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyUndone):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
