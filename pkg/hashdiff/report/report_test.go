package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/baseline"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/digest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func snap(files map[string]string) types.Snapshot {
	entries := make(map[types.FileIdentity]types.DigestSet, len(files))
	for path, content := range files {
		entries[path] = digest.Bytes([]byte(content))
	}
	return types.NewSnapshot(entries)
}

func readReport(t *testing.T, path string) []baseline.Row {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := baseline.ReadRows(f)
	require.NoError(t, err)
	return rows
}

func TestWriteEmptyRowsCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	w := New(dir)

	for _, kind := range diff.Kinds() {
		require.NoError(t, w.Write(kind, nil))
	}

	_, err := os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist), "output dir must not be created")
}

func TestWriteAllOnlyNonEmptyBuckets(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	base := snap(map[string]string{"/keep": "k", "/mod": "v1"})
	current := snap(map[string]string{"/keep": "k", "/mod": "v2", "/new": "n"})
	c := diff.Compare(base, current)

	require.NoError(t, w.WriteAll(c, base, current, ts))

	assert.FileExists(t, w.Path(diff.KindAdded))
	assert.FileExists(t, w.Path(diff.KindModified))
	assert.NoFileExists(t, w.Path(diff.KindRemoved))

	added := readReport(t, w.Path(diff.KindAdded))
	require.Len(t, added, 1)
	assert.Equal(t, "/new", added[0].Path)
	assert.Equal(t, "2026-10-19", added[0].Timestamp)

	modified := readReport(t, w.Path(diff.KindModified))
	require.Len(t, modified, 1)
	assert.Equal(t, digest.Bytes([]byte("v2")), modified[0].Digests)

	assert.Equal(t, []string{w.Path(diff.KindAdded), w.Path(diff.KindModified)}, w.Existing())
}

func TestWriteAllNoChangesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	s := snap(map[string]string{"/a": "1"})
	require.NoError(t, w.WriteAll(diff.Compare(s, s), s, s, ts))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteOverwrites(t *testing.T) {
	w := New(t.TempDir())
	rows := []baseline.Row{
		{Timestamp: "2026-10-18", Path: "/a", Digests: digest.Bytes([]byte("a"))},
		{Timestamp: "2026-10-18", Path: "/b", Digests: digest.Bytes([]byte("b"))},
	}
	require.NoError(t, w.Write(diff.KindRemoved, rows))
	require.NoError(t, w.Write(diff.KindRemoved, rows[:1]))

	assert.Equal(t, rows[:1], readReport(t, w.Path(diff.KindRemoved)))
}

func TestClearRemovesStaleReports(t *testing.T) {
	w := New(t.TempDir())
	row := []baseline.Row{{Timestamp: "2026-10-18", Path: "/x", Digests: digest.Bytes([]byte("x"))}}
	for _, kind := range diff.Kinds() {
		require.NoError(t, w.Write(kind, row))
	}
	require.Len(t, w.Existing(), 3)

	require.NoError(t, w.Clear())
	assert.Empty(t, w.Existing())

	// Clearing an already clean or missing directory is fine.
	require.NoError(t, w.Clear())
	require.NoError(t, New(filepath.Join(t.TempDir(), "missing")).Clear())
}

func TestWriteFailureIsTyped(t *testing.T) {
	// A regular file where the output directory should be.
	blocker := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))
	w := New(blocker)

	base := snap(map[string]string{"/gone": "g"})
	current := snap(map[string]string{"/new": "n"})
	err := w.WriteAll(diff.Compare(base, current), base, current, ts)
	require.Error(t, err)

	var owe *OutputWriteError
	require.ErrorAs(t, err, &owe)
	assert.Contains(t, err.Error(), "added")
	assert.Contains(t, err.Error(), "removed")
	assert.NotContains(t, err.Error(), "modified report")
}
