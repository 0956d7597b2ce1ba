package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/adapter/http/middleware"
	"github.com/mshibata/fxledger/internal/domain"
	"github.com/mshibata/fxledger/internal/usecase"
)

type ledgerServiceStub struct {
	executeFn    func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error)
	undoFn       func(ctx context.Context, user domain.User) (*usecase.TradeResult, error)
	redoFn       func(ctx context.Context, user domain.User) (*usecase.TradeResult, error)
	listFn       func(ctx context.Context, limit int) ([]*domain.Transaction, error)
	getFn        func(ctx context.Context, id string) (*domain.Transaction, error)
	listByUserFn func(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	statsFn      func(ctx context.Context) (*domain.TransactionStats, error)
}

func (s *ledgerServiceStub) ExecuteTrade(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
	return s.executeFn(ctx, pair, amount, rate, user)
}

func (s *ledgerServiceStub) UndoLast(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
	return s.undoFn(ctx, user)
}

func (s *ledgerServiceStub) RedoLast(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
	return s.redoFn(ctx, user)
}

func (s *ledgerServiceStub) GetTransactions(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	return s.listFn(ctx, limit)
}

func (s *ledgerServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *ledgerServiceStub) GetUserTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	return s.listByUserFn(ctx, userID, limit)
}

func (s *ledgerServiceStub) Statistics(ctx context.Context) (*domain.TransactionStats, error) {
	return s.statsFn(ctx)
}

func sampleResult() *usecase.TradeResult {
	return &usecase.TradeResult{
		TransactionID: "tx-1",
		Balance: domain.Balance{
			"JPY": decimal.NewFromInt(948280),
			"USD": decimal.NewFromInt(300),
		},
	}
}

func TestLedgerHandler_CreateTrade_Success(t *testing.T) {
	var capturedPair domain.Pair
	var capturedUser domain.User
	handler := NewLedgerHandler(&ledgerServiceStub{
		executeFn: func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
			capturedPair = pair
			capturedUser = user
			return sampleResult(), nil
		},
	})

	body, _ := json.Marshal(dto.TradeRequest{
		CurrencyPair: "USDJPY",
		Amount:       decimal.NewFromInt(300),
		Rate:         decimal.RequireFromString("172.4"),
	})

	req := httptest.NewRequest(http.MethodPost, "/trades", bytes.NewReader(body))
	user := &domain.User{ID: "U123", Name: "taro", Role: domain.RoleTrader}
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
	rec := httptest.NewRecorder()

	handler.CreateTrade(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedPair != "USDJPY" {
		t.Fatalf("expected pair USDJPY, got %s", capturedPair)
	}
	if capturedUser.ID != "U123" || capturedUser.Role != domain.RoleTrader {
		t.Fatalf("expected authenticated user to be forwarded, got %+v", capturedUser)
	}

	var resp dto.TradeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TransactionID != "tx-1" {
		t.Fatalf("expected transaction ID tx-1, got %s", resp.TransactionID)
	}
	if !resp.Balance["JPY"].Equal(decimal.NewFromInt(948280)) {
		t.Fatalf("expected JPY 948280, got %s", resp.Balance["JPY"])
	}
}

func TestLedgerHandler_CreateTrade_NoAuthForwardsZeroUser(t *testing.T) {
	var capturedUser domain.User
	handler := NewLedgerHandler(&ledgerServiceStub{
		executeFn: func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
			capturedUser = user
			return sampleResult(), nil
		},
	})

	body, _ := json.Marshal(dto.TradeRequest{
		CurrencyPair: "USDJPY",
		Amount:       decimal.NewFromInt(100),
		Rate:         decimal.NewFromInt(150),
	})
	req := httptest.NewRequest(http.MethodPost, "/trades", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateTrade(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if capturedUser.ID != "" || capturedUser.Role != "" {
		t.Fatalf("expected zero user without auth, got %+v", capturedUser)
	}
}

func TestLedgerHandler_CreateTrade_InvalidJSON(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		executeFn: func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
			t.Fatal("ExecuteTrade should not be called for invalid payload")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/trades", bytes.NewBufferString("{invalid json"))
	rec := httptest.NewRecorder()

	handler.CreateTrade(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLedgerHandler_CreateTrade_ErrorStatuses(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "unsupported pair",
			err:      domain.ErrUnsupportedPair,
			expected: http.StatusBadRequest,
		},
		{
			name: "insufficient funds",
			err: &domain.InsufficientFundsError{
				Currency:  "JPY",
				Required:  decimal.NewFromInt(1034400),
				Available: decimal.NewFromInt(1000000),
			},
			expected: http.StatusBadRequest,
		},
		{
			name:     "unauthorized",
			err:      domain.ErrUnauthorized,
			expected: http.StatusForbidden,
		},
		{
			name: "persistence failure",
			err: &domain.PersistenceError{
				Op:               "trade: balance write",
				RestoreAttempted: true,
				RestoreOK:        true,
			},
			expected: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewLedgerHandler(&ledgerServiceStub{
				executeFn: func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
					return nil, tc.err
				},
			})

			body, _ := json.Marshal(dto.TradeRequest{
				CurrencyPair: "USDJPY",
				Amount:       decimal.NewFromInt(100),
				Rate:         decimal.NewFromInt(150),
			})
			req := httptest.NewRequest(http.MethodPost, "/trades", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.CreateTrade(rec, req)

			if rec.Code != tc.expected {
				t.Fatalf("expected %d, got %d: %s", tc.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLedgerHandler_CreateTrade_PersistenceFailureMarksInconsistency(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		executeFn: func(ctx context.Context, pair domain.Pair, amount, rate decimal.Decimal, user domain.User) (*usecase.TradeResult, error) {
			return nil, &domain.PersistenceError{Op: "trade: log append", RestoreAttempted: true}
		},
	})

	body, _ := json.Marshal(dto.TradeRequest{
		CurrencyPair: "USDJPY",
		Amount:       decimal.NewFromInt(100),
		Rate:         decimal.NewFromInt(150),
	})
	req := httptest.NewRequest(http.MethodPost, "/trades", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateTrade(rec, req)

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "ledger may be inconsistent" {
		t.Fatalf("expected inconsistency marker, got %q", resp.Error)
	}
}

func TestLedgerHandler_Undo(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		undoFn: func(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
			return sampleResult(), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/trades/undo", nil)
	rec := httptest.NewRecorder()

	handler.Undo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLedgerHandler_Undo_NothingToUndo(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		undoFn: func(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
			return nil, domain.ErrNothingToUndo
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/trades/undo", nil)
	rec := httptest.NewRecorder()

	handler.Undo(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandler_Undo_AlreadyUndone(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		undoFn: func(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
			return nil, domain.ErrAlreadyUndone
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/trades/undo", nil)
	rec := httptest.NewRecorder()

	handler.Undo(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLedgerHandler_Redo_NothingToRedo(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		redoFn: func(ctx context.Context, user domain.User) (*usecase.TradeResult, error) {
			return nil, domain.ErrNothingToRedo
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/trades/redo", nil)
	rec := httptest.NewRecorder()

	handler.Redo(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandler_List(t *testing.T) {
	now := time.Now()
	var capturedLimit int
	handler := NewLedgerHandler(&ledgerServiceStub{
		listFn: func(ctx context.Context, limit int) ([]*domain.Transaction, error) {
			capturedLimit = limit
			return []*domain.Transaction{
				{
					ID:           "tx-2",
					Timestamp:    now,
					CurrencyPair: "USDJPY",
					Amount:       decimal.NewFromInt(100),
					Rate:         decimal.NewFromInt(150),
					Type:         domain.TypeTrade,
					State:        domain.ActiveState(),
				},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/trades?limit=5", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedLimit != 5 {
		t.Fatalf("expected limit 5, got %d", capturedLimit)
	}

	var resp dto.ListTransactionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || resp.Transactions[0].ID != "tx-2" {
		t.Fatalf("unexpected listing: %+v", resp)
	}
	if resp.Transactions[0].Status != "active" {
		t.Fatalf("expected status active, got %s", resp.Transactions[0].Status)
	}
}

func TestLedgerHandler_List_ByUser(t *testing.T) {
	var capturedUserID string
	handler := NewLedgerHandler(&ledgerServiceStub{
		listByUserFn: func(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
			capturedUserID = userID
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/trades?user_id=U123", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if capturedUserID != "U123" {
		t.Fatalf("expected user filter U123, got %q", capturedUserID)
	}
}

func TestLedgerHandler_Get_NotFound(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return nil, domain.ErrTransactionNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/trades/tx-404", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "tx-404")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandler_Statistics(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		statsFn: func(ctx context.Context) (*domain.TransactionStats, error) {
			return &domain.TransactionStats{
				Total:         3,
				Completed:     2,
				Undone:        1,
				CurrencyPairs: []string{"EURJPY", "USDJPY"},
				PerType:       map[domain.TransactionType]int{domain.TypeTrade: 2, domain.TypeReversal: 1},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/trades/statistics", nil)
	rec := httptest.NewRecorder()

	handler.Statistics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.StatisticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 || resp.Undone != 1 {
		t.Fatalf("unexpected statistics: %+v", resp)
	}
	if resp.PerType["trade"] != 2 {
		t.Fatalf("expected 2 trades in per_type, got %+v", resp.PerType)
	}
}
