package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/domain"
)

// RateService defines the behavior needed by RateHandler.
type RateService interface {
	GetCurrentRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	CacheStatus() map[string]time.Time
}

// RateHandler handles exchange rate HTTP requests.
type RateHandler struct {
	rateUC RateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateUC RateService) *RateHandler {
	return &RateHandler{rateUC: rateUC}
}

// Get quotes the current rate for a currency pair.
func (h *RateHandler) Get(w http.ResponseWriter, r *http.Request) {
	pair := chi.URLParam(r, "pair")
	if pair == "" {
		writeError(w, http.StatusBadRequest, "missing currency pair", "")
		return
	}

	rate, err := h.rateUC.GetCurrentRate(r.Context(), domain.Pair(pair))
	if err != nil {
		writeDomainError(w, err, "failed to quote rate")
		return
	}

	writeJSON(w, http.StatusOK, dto.RateResponse{
		CurrencyPair: pair,
		Rate:         rate,
	})
}

// CacheStatus reports which pairs are cached and when each quote expires.
func (h *RateHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rateUC.CacheStatus())
}
