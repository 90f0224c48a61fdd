// Package report writes one CSV file per change category. A category with
// no files produces no file at all.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/baseline"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/logging"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

var logger = logging.Get("report")

// OutputWriteError is returned when a category's report cannot be written.
type OutputWriteError struct {
	Kind diff.Kind
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("writing %s report %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// Writer writes reports into a directory.
type Writer struct {
	dir string
}

// New returns a writer for dir. The directory is created on first write.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the report file for kind.
func (w *Writer) Path(kind diff.Kind) string {
	return filepath.Join(w.dir, string(kind)+".csv")
}

// Write replaces the report for kind with rows. Empty rows are a no-op:
// no file is created and an existing file is left as is.
func (w *Writer) Write(kind diff.Kind, rows []baseline.Row) error {
	if len(rows) == 0 {
		return nil
	}

	path := w.Path(kind)
	if err := baseline.WriteFile(path, rows); err != nil {
		return &OutputWriteError{Kind: kind, Path: path, Err: err}
	}

	logger.Debug("report written", "kind", kind, "path", path, "rows", len(rows))
	return nil
}

// WriteAll writes every non-empty category of c. A failure in one category
// does not prevent the others; all failures are joined.
func (w *Writer) WriteAll(c diff.Classification, base, current types.Snapshot, ts time.Time) error {
	var errs []error
	for _, kind := range diff.Kinds() {
		if err := w.Write(kind, c.Rows(kind, base, current, ts)); err != nil {
			logger.Error("report write failed", "kind", kind, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes report files left by an earlier run, so that after a
// comparison a missing file always means nothing changed in that category.
func (w *Writer) Clear() error {
	var errs []error
	for _, kind := range diff.Kinds() {
		path := w.Path(kind)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &OutputWriteError{Kind: kind, Path: path, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Existing returns the report files currently present, in report order.
func (w *Writer) Existing() []string {
	var paths []string
	for _, kind := range diff.Kinds() {
		path := w.Path(kind)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			paths = append(paths, path)
		}
	}
	return paths
}
