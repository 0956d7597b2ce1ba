package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/adapter/http/middleware"
	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	ExecuteTrade(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error)
	UndoLast(ctx context.Context, user domain.User) (*usecase.TradeResult, error)
	RedoLast(ctx context.Context, user domain.User) (*usecase.TradeResult, error)
	GetTransactions(ctx context.Context, limit int) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	Statistics(ctx context.Context) (*domain.TransactionStats, error)
}

// LedgerHandler handles trade-related HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// CreateTrade executes a trade.
func (h *LedgerHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req dto.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.ledgerUC.ExecuteTrade(
		r.Context(),
		domain.Pair(req.CurrencyPair),
		req.Amount,
		req.Rate,
		requestUser(r),
	)
	if err != nil {
		writeDomainError(w, err, "failed to execute trade")
		return
	}

	writeJSON(w, http.StatusCreated, dto.TradeResultFromUseCase(result))
}

// Undo reverses the most recent active trade.
func (h *LedgerHandler) Undo(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerUC.UndoLast(r.Context(), requestUser(r))
	if err != nil {
		writeDomainError(w, err, "failed to undo")
		return
	}

	writeJSON(w, http.StatusOK, dto.TradeResultFromUseCase(result))
}

// Redo re-applies the most recently reversed trade.
func (h *LedgerHandler) Redo(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerUC.RedoLast(r.Context(), requestUser(r))
	if err != nil {
		writeDomainError(w, err, "failed to redo")
		return
	}

	writeJSON(w, http.StatusOK, dto.TradeResultFromUseCase(result))
}

// List lists transactions, newest first.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)

	var (
		txs []*domain.Transaction
		err error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		txs, err = h.ledgerUC.GetUserTransactions(r.Context(), userID, limit)
	} else {
		txs, err = h.ledgerUC.GetTransactions(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txs),
		Total:        len(txs),
	})
}

// Get retrieves a transaction by ID.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	tx, err := h.ledgerUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(tx))
}

// Statistics summarizes the transaction log.
func (h *LedgerHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledgerUC.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute statistics", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.StatisticsFromDomain(stats))
}

// requestUser returns the authenticated user, or the zero user when the
// request carries no identity. The use case treats a roleless user as
// trusted, which is how single-operator deployments run without auth.
func requestUser(r *http.Request) domain.User {
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		return *user
	}
	return domain.User{}
}
