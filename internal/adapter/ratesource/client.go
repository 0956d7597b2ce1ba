// Package ratesource quotes exchange rates for display and advisory use.
// Sources compose: an upstream HTTP client, a static fallback table, and a
// TTL cache (in-process or redis-backed) stacked on top.
package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// Source quotes a rate for a currency pair.
type Source interface {
	GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	CacheStatus() map[string]time.Time
}

// ClientConfig configures the upstream rate client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Logger     zerolog.Logger
}

// Client fetches quotes from an upstream HTTP rate API with exponential
// backoff on transient failures. Client errors (4xx) are permanent: retrying
// a bad pair will not make it tradable.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	logger     zerolog.Logger
}

// NewClient creates a new upstream rate client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}
}

type rateResponse struct {
	Pair string          `json:"pair"`
	Rate decimal.Decimal `json:"rate"`
}

// GetRate fetches the current quote for pair.
func (c *Client) GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	var rate decimal.Decimal

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 15 * time.Second

	retryCount := 0
	operation := func() error {
		r, err := c.fetch(ctx, pair)
		if err == nil {
			rate = r
			return nil
		}

		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > c.maxRetries {
			return backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Str("pair", string(pair)).Int("retry", retryCount).
			Msg("rate fetch failed, retrying")
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}

	return rate, nil
}

// CacheStatus reports nothing: the client holds no state.
func (c *Client) CacheStatus() map[string]time.Time {
	return map[string]time.Time{}
}

func (c *Client) fetch(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/rates/%s", c.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return decimal.Zero, &statusError{code: resp.StatusCode}
	}

	var out rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}
	if !out.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("upstream returned non-positive rate %s", out.Rate)
	}

	return out.Rate, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.code)
}
