// Package mocks provides hand-written mock implementations of the usecase
// interfaces. Each method delegates to an overridable Func field; when the
// field is nil a reasonable in-memory default runs instead.
package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

// MockBalanceStore is an in-memory BalanceStore.
type MockBalanceStore struct {
	mu      sync.RWMutex
	balance domain.Balance
	history []domain.BalanceSnapshot

	ReadFunc    func(ctx context.Context) domain.Balance
	WriteFunc   func(ctx context.Context, balance domain.Balance) error
	HistoryFunc func(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error)
}

func NewMockBalanceStore(initial domain.Balance) *MockBalanceStore {
	return &MockBalanceStore{balance: initial.Clone()}
}

func (m *MockBalanceStore) Read(ctx context.Context) domain.Balance {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance.Clone()
}

func (m *MockBalanceStore) Write(ctx context.Context, balance domain.Balance) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, balance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance.Clone()
	m.history = append(m.history, domain.BalanceSnapshot{
		Timestamp: time.Now().UTC(),
		Balances:  balance.Clone(),
	})
	return nil
}

func (m *MockBalanceStore) History(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BalanceSnapshot, len(m.history))
	copy(out, m.history)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockTransactionLog is an in-memory TransactionLog.
type MockTransactionLog struct {
	mu   sync.RWMutex
	txs  []*domain.Transaction
	next int

	AppendFunc          func(ctx context.Context, tx *domain.Transaction) (string, error)
	GetFunc             func(ctx context.Context, limit int) ([]*domain.Transaction, error)
	GetLastActiveFunc   func(ctx context.Context) (*domain.Transaction, error)
	GetLastReversalFunc func(ctx context.Context) (*domain.Transaction, error)
	GetByIDFunc         func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByUserFunc       func(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	MarkUndoneFunc      func(ctx context.Context, id string) (bool, error)
	StatisticsFunc      func(ctx context.Context) (*domain.TransactionStats, error)
}

func NewMockTransactionLog() *MockTransactionLog {
	return &MockTransactionLog{}
}

func (m *MockTransactionLog) Append(ctx context.Context, tx *domain.Transaction) (string, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == "" {
		m.next++
		tx.ID = "tx-" + strconv.Itoa(m.next)
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if tx.State.Status == "" {
		tx.State = domain.ActiveState()
	}
	m.txs = append(m.txs, tx)
	return tx.ID, nil
}

func (m *MockTransactionLog) Get(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(m.txs))
	for i := len(m.txs) - 1; i >= 0; i-- {
		out = append(out, m.txs[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTransactionLog) GetLastActive(ctx context.Context) (*domain.Transaction, error) {
	if m.GetLastActiveFunc != nil {
		return m.GetLastActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].Type == domain.TypeTrade && !m.txs[i].State.Superseded() {
			return m.txs[i], nil
		}
	}
	return nil, nil
}

func (m *MockTransactionLog) GetLastReversal(ctx context.Context) (*domain.Transaction, error) {
	if m.GetLastReversalFunc != nil {
		return m.GetLastReversalFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].Type == domain.TypeReversal {
			return m.txs[i], nil
		}
	}
	return nil, nil
}

func (m *MockTransactionLog) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionLog) GetByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if m.GetByUserFunc != nil {
		return m.GetByUserFunc(ctx, userID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTransactionLog) MarkUndone(ctx context.Context, id string) (bool, error) {
	if m.MarkUndoneFunc != nil {
		return m.MarkUndoneFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txs {
		if tx.ID == id {
			tx.State.MarkSuperseded(time.Now().UTC())
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTransactionLog) Statistics(ctx context.Context) (*domain.TransactionStats, error) {
	if m.StatisticsFunc != nil {
		return m.StatisticsFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.TransactionStats{PerType: make(map[domain.TransactionType]int)}
	for _, tx := range m.txs {
		stats.Total++
		if tx.State.Superseded() {
			stats.Undone++
		} else {
			stats.Completed++
		}
		stats.PerType[tx.Type]++
	}
	return stats, nil
}

// MockRateSource quotes from a fixed table.
type MockRateSource struct {
	mu    sync.RWMutex
	rates map[domain.Pair]decimal.Decimal

	GetRateFunc     func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	CacheStatusFunc func() map[string]time.Time
}

func NewMockRateSource() *MockRateSource {
	return &MockRateSource{rates: make(map[domain.Pair]decimal.Decimal)}
}

// SetRate seeds the quote table.
func (m *MockRateSource) SetRate(pair domain.Pair, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[pair] = rate
}

func (m *MockRateSource) GetRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if m.GetRateFunc != nil {
		return m.GetRateFunc(ctx, pair)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rate, ok := m.rates[pair]; ok {
		return rate, nil
	}
	return decimal.Zero, domain.ErrRateUnavailable
}

func (m *MockRateSource) CacheStatus() map[string]time.Time {
	if m.CacheStatusFunc != nil {
		return m.CacheStatusFunc()
	}
	return map[string]time.Time{}
}

// MockNotifier records delivered messages.
type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
	Critical []string

	NotifyFunc         func(ctx context.Context, subject, message string) error
	NotifyCriticalFunc func(ctx context.Context, subject, message string) error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, subject, message string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, subject, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, subject+": "+message)
	return nil
}

func (m *MockNotifier) NotifyCritical(ctx context.Context, subject, message string) error {
	if m.NotifyCriticalFunc != nil {
		return m.NotifyCriticalFunc(ctx, subject, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Critical = append(m.Critical, subject+": "+message)
	return nil
}

// CriticalCount returns how many critical notifications were delivered.
func (m *MockNotifier) CriticalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Critical)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordTrade(pair string, status string, duration time.Duration) {}
func (NopMetrics) RecordUndo(status string)                                       {}
func (NopMetrics) RecordRedo(status string)                                       {}
func (NopMetrics) RecordOverride(status string)                                   {}
func (NopMetrics) RecordPersistenceFailure(op string)                             {}
