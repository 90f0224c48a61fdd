package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// ErrNotFound is returned by Get when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// Manifest manages run history in a directory.
type Manifest struct {
	dir string
	mu  sync.Mutex

	// now is replaced in tests.
	now func() time.Time
}

// New creates a new Manifest with the given directory.
// The directory is created on the first write.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir, now: time.Now}, nil
}

// Dir returns the history directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// LogBootstrap records the scan that created a baseline.
func (m *Manifest) LogBootstrap(baselinePath string, res *types.ScanResult) (*Entry, error) {
	entry := scanEntry(OpBootstrap, baselinePath, res)
	return m.log(entry)
}

// LogCompare records a comparison and the reports it produced.
func (m *Manifest) LogCompare(baselinePath string, res *types.ScanResult, c diff.Classification, reports []string) (*Entry, error) {
	entry := scanEntry(OpCompare, baselinePath, res)
	entry.Changes = &Changes{
		Added:    c.Added,
		Removed:  c.Removed,
		Modified: c.Modified,
	}
	entry.Summary.Added = len(c.Added)
	entry.Summary.Removed = len(c.Removed)
	entry.Summary.Modified = len(c.Modified)
	entry.Summary.Unchanged = c.Unchanged
	entry.Reports = reports
	return m.log(entry)
}

// LogCommit records a baseline being replaced by snap.
func (m *Manifest) LogCommit(root, baselinePath string, snap types.Snapshot) (*Entry, error) {
	return m.log(&Entry{
		Operation:   OpCommit,
		Root:        root,
		Baseline:    baselinePath,
		Fingerprint: snap.Fingerprint(),
		Summary:     Summary{Files: snap.Len()},
	})
}

// LogReset records a baseline being removed.
func (m *Manifest) LogReset(root, baselinePath string) (*Entry, error) {
	return m.log(&Entry{
		Operation: OpReset,
		Root:      root,
		Baseline:  baselinePath,
	})
}

func scanEntry(op OperationType, baselinePath string, res *types.ScanResult) *Entry {
	return &Entry{
		Operation:   op,
		Root:        res.Root,
		Baseline:    baselinePath,
		Fingerprint: res.Snapshot.Fingerprint(),
		Summary: Summary{
			Files:       res.Snapshot.Len(),
			FilesHashed: res.FilesHashed,
			BytesHashed: res.BytesHashed,
			CacheHits:   res.CacheHits,
			Errors:      len(res.Errors),
			Elapsed:     res.Elapsed.Milliseconds(),
		},
		Errors: res.Errors,
	}
}

// log assigns an ID and timestamp and persists the entry.
func (m *Manifest) log(entry *Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = m.now().UTC()

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}

	return entry, nil
}

// writeEntry writes an entry to a JSON file in the manifest directory.
func (m *Manifest) writeEntry(entry *Entry) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	filePath := filepath.Join(m.dir, entryFilename(entry))

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// entryFilename sorts by time in a directory listing.
func entryFilename(entry *Entry) string {
	ts := entry.Timestamp.Format("20060102T150405")
	return fmt.Sprintf("%s-%s-%s.json", ts, entry.Operation, entry.ID)
}

// List returns entries newest first. If root is non-empty only entries for
// that root are returned. If limit is 0 or negative, all entries are
// returned.
func (m *Manifest) List(root string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.readAll()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if root == "" || e.Root == root {
			entries = append(entries, e)
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves an entry by ID or by a unique ID prefix.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.readAll()
	if err != nil {
		return nil, err
	}

	var matches []Entry
	for _, e := range all {
		if e.ID == id {
			return &e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous entry ID %q matches %d entries", id, len(matches))
	}
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. A retention of 0 or less keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		ts, err := m.entryTime(f)
		if err != nil || !ts.Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(m.dir, f.Name())); err != nil {
			continue
		}
		removed++
	}

	return removed, nil
}

// entryTime returns the recorded timestamp of an entry file, falling back to
// the file's modification time when it cannot be parsed.
func (m *Manifest) entryTime(f os.DirEntry) (time.Time, error) {
	if entry, err := m.readEntryFile(f.Name()); err == nil {
		return entry.Timestamp, nil
	}
	info, err := f.Info()
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// readAll reads every parsable entry, newest first.
func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// readEntryFile reads and parses a manifest entry from a JSON file.
func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}
