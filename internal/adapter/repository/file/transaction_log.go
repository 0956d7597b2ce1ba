package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mshibata/fxledger/internal/domain"
)

const logVersion = "1.0"

// logFile is the persisted transaction-log layout.
type logFile struct {
	Transactions []json.RawMessage `json:"transactions"`
	LastUpdated  time.Time         `json:"last_updated"`
	Version      string            `json:"version"`
	TotalCount   int               `json:"total_count"`
}

// TransactionLogConfig configures a TransactionLog.
type TransactionLogConfig struct {
	Path        string
	KeepBackups int
	IDGen       IDGenerator
	Logger      zerolog.Logger
}

// TransactionLog persists the append-only transaction sequence as a single
// JSON file with the same backup discipline as BalanceStore. Records are
// never deleted; MarkUndone is the single sanctioned mutation and touches
// only the state fields.
type TransactionLog struct {
	mu          sync.Mutex
	path        string
	keepBackups int
	idGen       IDGenerator
	logger      zerolog.Logger
}

// NewTransactionLog creates the log and an empty log file when none exists.
func NewTransactionLog(cfg TransactionLogConfig) (*TransactionLog, error) {
	if cfg.KeepBackups <= 0 {
		cfg.KeepBackups = 10
	}
	if cfg.IDGen == nil {
		cfg.IDGen = NewULIDGenerator()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	l := &TransactionLog{
		path:        cfg.Path,
		keepBackups: cfg.KeepBackups,
		idGen:       cfg.IDGen,
		logger:      cfg.Logger,
	}

	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		if err := l.save(nil); err != nil {
			return nil, fmt.Errorf("create transaction log: %w", err)
		}
		l.logger.Info().Str("path", l.path).Msg("created empty transaction log")
	}

	return l, nil
}

// Append assigns an id (and timestamp, if absent) to tx, adds it to the
// stored sequence and persists the whole file. On persistence failure the
// caller must treat the transaction as "may or may not be durably recorded".
func (l *TransactionLog) Append(ctx context.Context, tx *domain.Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.ID == "" {
		tx.ID = l.idGen.Generate()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if tx.State.Status == "" {
		tx.State = domain.ActiveState()
	}

	txs := l.load()
	txs = append(txs, tx)

	if err := l.save(txs); err != nil {
		return "", err
	}

	l.logger.Info().
		Str("id", tx.ID).
		Str("type", string(tx.Type)).
		Str("pair", string(tx.CurrencyPair)).
		Msg("transaction appended")

	return tx.ID, nil
}

// Get returns up to limit records, most recent first. limit <= 0 returns all.
func (l *TransactionLog) Get(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	txs := l.load()
	sortNewestFirst(txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// GetLastActive returns the most recent trade record still in the active
// state, or nil when none exists.
func (l *TransactionLog) GetLastActive(ctx context.Context) (*domain.Transaction, error) {
	txs := l.load()
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Type == domain.TypeTrade && !txs[i].State.Superseded() {
			return txs[i], nil
		}
	}
	return nil, nil
}

// GetLastReversal returns the most recent reversal record, or nil.
func (l *TransactionLog) GetLastReversal(ctx context.Context) (*domain.Transaction, error) {
	txs := l.load()
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Type == domain.TypeReversal {
			return txs[i], nil
		}
	}
	return nil, nil
}

// GetByID returns the record with the given id.
func (l *TransactionLog) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, tx := range l.load() {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

// GetByUser returns up to limit records for a user, most recent first.
func (l *TransactionLog) GetByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, tx := range l.load() {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkUndone marks the record superseded and stamps undone_at. Unknown ids
// return false. Calling twice is a no-op returning true: the record is
// already in the requested state and must not be touched again.
func (l *TransactionLog) MarkUndone(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txs := l.load()
	for _, tx := range txs {
		if tx.ID != id {
			continue
		}
		if !tx.State.MarkSuperseded(time.Now().UTC()) {
			return true, nil
		}
		if err := l.save(txs); err != nil {
			return false, err
		}
		l.logger.Info().Str("id", id).Msg("transaction marked undone")
		return true, nil
	}

	l.logger.Warn().Str("id", id).Msg("mark undone: transaction not found")
	return false, nil
}

// Statistics derives aggregate counts over the whole log.
func (l *TransactionLog) Statistics(ctx context.Context) (*domain.TransactionStats, error) {
	txs := l.load()

	stats := &domain.TransactionStats{
		PerType: make(map[domain.TransactionType]int),
	}

	pairs := make(map[string]bool)
	for _, tx := range txs {
		stats.Total++
		if tx.State.Superseded() {
			stats.Undone++
		} else {
			stats.Completed++
		}
		if tx.CurrencyPair != "" {
			pairs[string(tx.CurrencyPair)] = true
		}
		stats.PerType[tx.Type]++

		ts := tx.Timestamp
		if stats.Earliest == nil || ts.Before(*stats.Earliest) {
			earliest := ts
			stats.Earliest = &earliest
		}
		if stats.Latest == nil || ts.After(*stats.Latest) {
			latest := ts
			stats.Latest = &latest
		}
	}

	for pair := range pairs {
		stats.CurrencyPairs = append(stats.CurrencyPairs, pair)
	}
	sort.Strings(stats.CurrencyPairs)

	return stats, nil
}

// load reads the stored sequence in append order. A missing or wholly
// malformed file yields an empty sequence; individually malformed records
// are skipped with a warning rather than aborting the read.
func (l *TransactionLog) load() []*domain.Transaction {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("transaction log unreadable")
		}
		return nil
	}

	var f logFile
	if err := json.Unmarshal(data, &f); err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).Msg("transaction log malformed")
		return nil
	}

	txs := make([]*domain.Transaction, 0, len(f.Transactions))
	for _, raw := range f.Transactions {
		var tx domain.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil || tx.ID == "" {
			l.logger.Warn().Err(err).Msg("skipping malformed transaction record")
			continue
		}
		txs = append(txs, &tx)
	}

	return txs
}

func (l *TransactionLog) save(txs []*domain.Transaction) error {
	now := time.Now().UTC()
	if err := createBackup(l.path, l.keepBackups, now); err != nil {
		l.logger.Warn().Err(err).Msg("transaction log backup failed")
	}

	raws := make([]json.RawMessage, len(txs))
	for i, tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			return &domain.PersistenceError{Op: "log.append", Err: err}
		}
		raws[i] = data
	}

	data, err := json.MarshalIndent(logFile{
		Transactions: raws,
		LastUpdated:  now,
		Version:      logVersion,
		TotalCount:   len(raws),
	}, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "log.append", Err: err}
	}

	if err := writeFileAtomic(l.path, data); err != nil {
		restoreErr := restoreLatestBackup(l.path)
		if restoreErr != nil {
			l.logger.Error().Err(restoreErr).Msg("transaction log restore from backup failed")
		}
		return &domain.PersistenceError{
			Op:               "log.append",
			RestoreAttempted: true,
			RestoreOK:        restoreErr == nil,
			Err:              err,
		}
	}

	return nil
}

func sortNewestFirst(txs []*domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})
}
