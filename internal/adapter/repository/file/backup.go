package file

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mshibata/fxledger/internal/domain"
)

const backupTimeFormat = "20060102_150405.000000000"

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

func backupName(path string, now time.Time) string {
	return strings.TrimSuffix(path, ".json") + "_backup_" + now.UTC().Format(backupTimeFormat) + ".json"
}

func backupGlob(path string) string {
	return strings.TrimSuffix(path, ".json") + "_backup_*.json"
}

// createBackup copies the current file at path to a timestamped backup and
// trims the backup set down to keep files. A missing primary is not an
// error: there is nothing to back up yet.
func createBackup(path string, keep int, now time.Time) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(backupName(path, now), data, 0o644); err != nil {
		return err
	}

	return cleanupBackups(path, keep)
}

// cleanupBackups deletes all but the keep most recently modified backups of
// path, oldest first.
func cleanupBackups(path string, keep int) error {
	backups, err := sortedBackups(path)
	if err != nil {
		return err
	}

	if len(backups) <= keep {
		return nil
	}

	for _, stale := range backups[:len(backups)-keep] {
		if err := os.Remove(stale); err != nil {
			return err
		}
	}

	return nil
}

// restoreLatestBackup copies the most recently modified backup of path back
// over the primary. When no backup exists it reports ErrRestoreFailed rather
// than fabricating data.
func restoreLatestBackup(path string) error {
	backups, err := sortedBackups(path)
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		return domain.ErrRestoreFailed
	}

	data, err := os.ReadFile(backups[len(backups)-1])
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

// sortedBackups returns the backup files for path ordered oldest to newest by
// modification time, breaking ties on the embedded timestamp in the name.
func sortedBackups(path string) ([]string, error) {
	matches, err := filepath.Glob(backupGlob(path))
	if err != nil {
		return nil, err
	}

	type entry struct {
		name  string
		mtime time.Time
	}

	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{name: m, mtime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mtime.Equal(entries[j].mtime) {
			return entries[i].name < entries[j].name
		}
		return entries[i].mtime.Before(entries[j].mtime)
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}

	return out, nil
}
