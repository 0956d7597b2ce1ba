package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/adapter/http/dto"
	"github.com/mshibata/fxledger/internal/domain"
)

type rateServiceStub struct {
	getFn    func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	statusFn func() map[string]time.Time
}

func (s *rateServiceStub) GetCurrentRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return s.getFn(ctx, pair)
}

func (s *rateServiceStub) CacheStatus() map[string]time.Time {
	return s.statusFn()
}

func rateRequest(pair string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/rates/"+pair, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("pair", pair)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRateHandler_Get(t *testing.T) {
	handler := NewRateHandler(&rateServiceStub{
		getFn: func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
			if pair != "USDJPY" {
				t.Fatalf("expected pair USDJPY, got %s", pair)
			}
			return decimal.RequireFromString("150.25"), nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, rateRequest("USDJPY"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.RateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CurrencyPair != "USDJPY" || !resp.Rate.Equal(decimal.RequireFromString("150.25")) {
		t.Fatalf("unexpected quote: %+v", resp)
	}
}

func TestRateHandler_Get_UnsupportedPair(t *testing.T) {
	handler := NewRateHandler(&rateServiceStub{
		getFn: func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
			return decimal.Zero, domain.ErrUnsupportedPair
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, rateRequest("XXXYYY"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRateHandler_Get_RateUnavailable(t *testing.T) {
	handler := NewRateHandler(&rateServiceStub{
		getFn: func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
			return decimal.Zero, domain.ErrRateUnavailable
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, rateRequest("EURJPY"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestRateHandler_CacheStatus(t *testing.T) {
	expiry := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	handler := NewRateHandler(&rateServiceStub{
		statusFn: func() map[string]time.Time {
			return map[string]time.Time{"USDJPY": expiry}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/rates/cache", nil)
	rec := httptest.NewRecorder()

	handler.CacheStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]time.Time
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["USDJPY"].Equal(expiry) {
		t.Fatalf("expected USDJPY expiry %v, got %v", expiry, resp["USDJPY"])
	}
}
