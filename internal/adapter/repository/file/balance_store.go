package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mshibata/fxledger/internal/domain"
)

const snapshotVersion = "1.0"

// balanceFile is the persisted snapshot layout.
type balanceFile struct {
	Balances    map[string]decimal.Decimal `json:"balances"`
	LastUpdated time.Time                  `json:"last_updated"`
	Version     string                     `json:"version"`
}

// BalanceStoreConfig configures a BalanceStore.
type BalanceStoreConfig struct {
	Path         string
	Currencies   domain.Currencies
	Floor        decimal.Decimal // catastrophic-negative rejection threshold
	KeepBackups  int
	HistoryLimit int
	Logger       zerolog.Logger
}

// BalanceStore persists the balance snapshot as a single JSON file with
// backup-before-write and restore-on-failure. It is the only durable home of
// the current balance; LedgerUseCase is its sole writer.
type BalanceStore struct {
	mu           sync.Mutex
	path         string
	currencies   domain.Currencies
	floor        decimal.Decimal
	keepBackups  int
	historyLimit int
	logger       zerolog.Logger
}

// NewBalanceStore creates the store, its data directory, and a seeded
// snapshot when none exists yet.
func NewBalanceStore(cfg BalanceStoreConfig) (*BalanceStore, error) {
	if cfg.KeepBackups <= 0 {
		cfg.KeepBackups = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &BalanceStore{
		path:         cfg.Path,
		currencies:   cfg.Currencies,
		floor:        cfg.Floor,
		keepBackups:  cfg.KeepBackups,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Write(context.Background(), s.currencies.Seed()); err != nil {
			return nil, fmt.Errorf("seed balance snapshot: %w", err)
		}
		s.logger.Info().Str("path", s.path).Msg("seeded initial balance snapshot")
	}

	return s, nil
}

// Read returns the persisted balance. A missing or malformed snapshot is
// logged and treated as absent: the seeded initial balance is returned, never
// an error. Reads run without the store lock; a write in flight is observed
// either entirely before or entirely after thanks to atomic renames.
func (s *BalanceStore) Read(ctx context.Context) domain.Balance {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("balance snapshot unreadable, using seed")
		}
		return s.currencies.Seed()
	}

	var snap balanceFile
	if err := json.Unmarshal(data, &snap); err != nil || snap.Balances == nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("balance snapshot malformed, using seed")
		return s.currencies.Seed()
	}

	return s.currencies.Normalize(domain.Balance(snap.Balances))
}

// Write validates the balance, backs up the current snapshot, then atomically
// replaces it. On failure it restores the most recent backup and returns a
// PersistenceError describing whether the restore succeeded. The best-effort
// history trail is appended after a successful write and never fails it.
func (s *BalanceStore) Write(ctx context.Context, balance domain.Balance) error {
	if err := s.validate(balance); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if err := createBackup(s.path, s.keepBackups, now); err != nil {
		// Proceed: a failed backup degrades crash recovery but must not
		// block the write itself.
		s.logger.Warn().Err(err).Msg("balance backup failed")
	}

	data, err := json.MarshalIndent(balanceFile{
		Balances:    balance,
		LastUpdated: now,
		Version:     snapshotVersion,
	}, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "balance.write", Err: err}
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		restoreErr := restoreLatestBackup(s.path)
		if restoreErr != nil {
			s.logger.Error().Err(restoreErr).Msg("balance restore from backup failed")
		}
		return &domain.PersistenceError{
			Op:               "balance.write",
			RestoreAttempted: true,
			RestoreOK:        restoreErr == nil,
			Err:              err,
		}
	}

	if err := s.appendHistory(domain.BalanceSnapshot{Timestamp: now, Balances: balance}); err != nil {
		s.logger.Warn().Err(err).Msg("balance history trail update failed")
	}

	return nil
}

// History returns the most recent limit entries of the history trail, newest
// first. Best-effort: a missing or unreadable trail yields an empty slice.
func (s *BalanceStore) History(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error) {
	data, err := os.ReadFile(s.historyPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var trail []domain.BalanceSnapshot
	if err := json.Unmarshal(data, &trail); err != nil {
		s.logger.Warn().Err(err).Msg("balance history trail malformed")
		return nil, nil
	}

	if limit > 0 && len(trail) > limit {
		trail = trail[len(trail)-limit:]
	}

	// Newest first.
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}

	return trail, nil
}

func (s *BalanceStore) validate(balance domain.Balance) error {
	for currency, amount := range balance {
		if !domain.ValidCurrencyCode(currency) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, currency)
		}
		if amount.LessThan(s.floor) {
			return fmt.Errorf("%w: %s=%s", domain.ErrBelowFloor, currency, amount.String())
		}
	}
	return nil
}

func (s *BalanceStore) historyPath() string {
	return strings.TrimSuffix(s.path, ".json") + "_history.json"
}

func (s *BalanceStore) appendHistory(entry domain.BalanceSnapshot) error {
	var trail []domain.BalanceSnapshot
	if data, err := os.ReadFile(s.historyPath()); err == nil {
		// A malformed trail starts over rather than poisoning the write.
		_ = json.Unmarshal(data, &trail)
	}

	trail = append(trail, entry)
	if len(trail) > s.historyLimit {
		trail = trail[len(trail)-s.historyLimit:]
	}

	data, err := json.MarshalIndent(trail, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(s.historyPath(), data)
}
