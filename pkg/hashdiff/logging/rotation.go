package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size in bytes at which the file is rotated.
	// Zero uses the default of 10MB.
	MaxSize int64

	// MaxBackups is the number of rotated files to keep. Zero keeps all.
	MaxBackups int
}

// DefaultRotationConfig returns the default rotation settings.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 5,
	}
}

// RotatingWriter is an io.WriteCloser that renames the log file aside once
// it grows past MaxSize. It is safe for concurrent use.
type RotatingWriter struct {
	path string
	cfg  RotationConfig
	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p, rotating first if it would exceed MaxSize.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		w.file = nil
		return fmt.Errorf("syncing log file: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) openFile() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("2006-01-02-150405.000000000"), ext)

	if err := os.Rename(w.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.openFile(); err != nil {
		return err
	}

	w.prune()
	return nil
}

// prune removes rotated files beyond MaxBackups, oldest first.
func (w *RotatingWriter) prune() {
	if w.cfg.MaxBackups <= 0 {
		return
	}

	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var rotated []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		rotated = append(rotated, name)
	}

	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(rotated)))
	for _, name := range rotated[min(len(rotated), w.cfg.MaxBackups):] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}
