package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	ReadBalance(ctx context.Context) domain.Balance
	BalanceHistory(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error)
	OverrideBalance(ctx context.Context, currency string, newAmount decimal.Decimal, user domain.User) (*usecase.TradeResult, error)
}

// ValuationService values the balance in the home currency.
type ValuationService interface {
	Valuation(ctx context.Context) (*usecase.Valuation, error)
}

// BalanceHandler handles balance-related HTTP requests.
type BalanceHandler struct {
	balanceUC   BalanceService
	valuationUC ValuationService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService, valuationUC ValuationService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC, valuationUC: valuationUC}
}

// Get returns the current balance.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	balance := h.balanceUC.ReadBalance(r.Context())
	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// History returns recent balance snapshots, newest first.
func (h *BalanceHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 10)

	snapshots, err := h.balanceUC.BalanceHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read balance history", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceHistoryFromDomain(snapshots))
}

// Valuation returns the balance valued in the home currency at current
// quotes.
func (h *BalanceHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	v, err := h.valuationUC.Valuation(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to value balance")
		return
	}

	writeJSON(w, http.StatusOK, dto.ValuationFromUseCase(v))
}

// Override sets a currency balance to an absolute amount.
func (h *BalanceHandler) Override(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, "missing currency", "")
		return
	}

	var req dto.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.balanceUC.OverrideBalance(r.Context(), currency, req.Amount, requestUser(r))
	if err != nil {
		writeDomainError(w, err, "failed to override balance")
		return
	}

	writeJSON(w, http.StatusOK, dto.TradeResultFromUseCase(result))
}
