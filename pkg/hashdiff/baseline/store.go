// Package baseline persists snapshots as ';'-delimited CSV. The same row
// codec is used for the added/removed/modified report files.
package baseline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/logging"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

var logger = logging.Get("baseline")

var (
	// ErrExists is returned by Initialize when a baseline is already stored.
	ErrExists = errors.New("baseline already exists")

	// ErrNotExist is returned by Load when no baseline is stored.
	ErrNotExist = errors.New("baseline does not exist")
)

// CorruptBaselineError reports a baseline that cannot be parsed. Nothing is
// recovered from a corrupt baseline.
type CorruptBaselineError struct {
	Path   string
	Line   int
	Reason string
}

func (e *CorruptBaselineError) Error() string {
	return fmt.Sprintf("corrupt baseline %s: line %d: %s", e.Path, e.Line, e.Reason)
}

// Store is a baseline file at a fixed path.
type Store struct {
	path string
}

// New returns a store backed by the file at path. The file is not touched.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the baseline file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a baseline file is present.
func (s *Store) Exists() (bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking baseline: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("baseline path %s is a directory", s.path)
	}
	return true, nil
}

// Initialize persists the first snapshot. It fails with ErrExists rather
// than overwrite an existing baseline.
func (s *Store) Initialize(snap types.Snapshot, ts time.Time) error {
	exists, err := s.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", s.path, ErrExists)
	}

	if err := WriteFile(s.path, Rows(snap, ts)); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}

	logger.Info("baseline created", "path", s.path, "files", snap.Len())
	return nil
}

// Commit replaces the stored baseline with snap. The file is rewritten
// atomically, so a failed commit leaves the previous baseline intact.
func (s *Store) Commit(snap types.Snapshot, ts time.Time) error {
	if err := WriteFile(s.path, Rows(snap, ts)); err != nil {
		return fmt.Errorf("committing baseline: %w", err)
	}

	logger.Info("baseline committed", "path", s.path, "files", snap.Len())
	return nil
}

// Load reads the stored snapshot.
func (s *Store) Load() (types.Snapshot, error) {
	rows, err := s.LoadRows()
	if err != nil {
		return types.Snapshot{}, err
	}

	entries := make(map[types.FileIdentity]types.DigestSet, len(rows))
	for _, r := range rows {
		entries[r.Path] = r.Digests
	}

	logger.Debug("baseline loaded", "path", s.path, "files", len(entries))
	return types.NewSnapshot(entries), nil
}

// LoadRows reads the stored rows, timestamps included.
func (s *Store) LoadRows() ([]Row, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("opening baseline: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		var re *rowError
		if errors.As(err, &re) {
			return nil, &CorruptBaselineError{Path: s.path, Line: re.line, Reason: re.reason}
		}
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	return rows, nil
}

// Remove deletes the stored baseline. A missing baseline is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing baseline: %w", err)
	}
	return nil
}

// WriteFile atomically writes rows (with header) to path, creating parent
// directories as needed. The data is synced to a temp file in the same
// directory before it is renamed over path.
func WriteFile(path string, rows []Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := WriteRows(tmp, rows); err != nil {
		cleanup()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Cleanup temp file on rename failure
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
