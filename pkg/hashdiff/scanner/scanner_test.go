package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/digest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) under a fresh temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{}
	opts.Validate()

	assert.Equal(t, ".", opts.Root)
	assert.GreaterOrEqual(t, opts.Workers, 4)
	assert.GreaterOrEqual(t, opts.QueueSize, 64)

	opts = Options{Root: "/data", Workers: 3, QueueSize: 10}
	opts.Validate()
	assert.Equal(t, "/data", opts.Root)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 10, opts.QueueSize)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, ".", opts.Root)
	assert.GreaterOrEqual(t, opts.Workers, 4)
	assert.LessOrEqual(t, opts.Workers, 64)
	assert.Nil(t, opts.Cache)
}

func TestScanHashesEveryRegularFile(t *testing.T) {
	files := map[string]string{
		"a.txt":            "alpha",
		"docs/b.txt":       "bravo",
		"docs/deep/c.bin":  "charlie",
		"empty/zero.txt":   "",
		"docs/deep/d.conf": "delta",
	}
	root := writeTree(t, files)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-files-here"), 0o755))

	result, err := New(Options{Root: root, Workers: 2}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, root, result.Root)
	assert.Equal(t, len(files), result.Snapshot.Len())
	assert.Equal(t, int64(len(files)), result.FilesHashed)
	assert.Equal(t, int64(len("alpha")+len("bravo")+len("charlie")+len("delta")), result.BytesHashed)
	assert.Empty(t, result.Errors)

	for rel, content := range files {
		ds, ok := result.Snapshot.Get(filepath.Join(root, rel))
		require.True(t, ok, "missing %s", rel)
		assert.Equal(t, digest.Bytes([]byte(content)), ds, rel)
	}

	// Directories are never entries.
	assert.False(t, result.Snapshot.Has(filepath.Join(root, "docs")))
	assert.False(t, result.Snapshot.Has(filepath.Join(root, "no-files-here")))
}

func TestScanEmptyDirectory(t *testing.T) {
	result, err := New(Options{Root: t.TempDir()}).Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Snapshot.Len())
}

func TestScanRelativeRootYieldsAbsolutePaths(t *testing.T) {
	root := writeTree(t, map[string]string{"f.txt": "x"})
	t.Chdir(root)

	result, err := New(Options{Root: "."}).Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Snapshot.Has(filepath.Join(root, "f.txt")))
}

func TestScanMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := New(Options{Root: missing}).Scan(context.Background())
	require.Error(t, err)

	var dnf *types.DirectoryNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Equal(t, missing, dnf.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScanRootIsFile(t *testing.T) {
	root := writeTree(t, map[string]string{"file.txt": "x"})

	_, err := New(Options{Root: filepath.Join(root, "file.txt")}).Scan(context.Background())

	var dnf *types.DirectoryNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.True(t, errors.Is(err, types.ErrNotDirectory))
}

func TestScanSkipsSymlinks(t *testing.T) {
	root := writeTree(t, map[string]string{"real.txt": "content"})
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	result, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Snapshot.Len())
	assert.True(t, result.Snapshot.Has(filepath.Join(root, "real.txt")))
	assert.False(t, result.Snapshot.Has(filepath.Join(root, "link.txt")))
	assert.Equal(t, int64(1), result.Skipped)
}

func TestScanExclusions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.txt":           "k",
		"skip.log":           "s",
		"node_modules/x.js":  "x",
		"state/baseline.csv": "b",
		"state/output/a.csv": "a",
		"src/keep/also.go":   "g",
		"src/node_modules/y": "y",
	})

	result, err := New(Options{
		Root:    root,
		Exclude: []string{"*.log", "node_modules", filepath.Join(root, "state")},
	}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.FileIdentity{
		filepath.Join(root, "keep.txt"),
		filepath.Join(root, "src/keep/also.go"),
	}, result.Snapshot.Paths())
}

func TestScanIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a": "1", "b/c": "2", "b/d/e": "3", "f/g/h/i": "4",
	})

	first, err := New(Options{Root: root, Workers: 1}).Scan(context.Background())
	require.NoError(t, err)
	second, err := New(Options{Root: root, Workers: 8}).Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, first.Snapshot.Equal(second.Snapshot))
	assert.Equal(t, first.Snapshot.Fingerprint(), second.Snapshot.Fingerprint())
}

func TestScanSkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}

	root := writeTree(t, map[string]string{"ok.txt": "fine", "locked.txt": "secret"})
	locked := filepath.Join(root, "locked.txt")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	result, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Snapshot.Has(filepath.Join(root, "ok.txt")))
	assert.False(t, result.Snapshot.Has(locked))
	require.Len(t, result.Errors, 1)
	assert.Equal(t, locked, result.Errors[0].Path)
}

func TestScanCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1", "b": "2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Root: root}).Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScanReportsProgress(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1", "b": "2", "c": "3"})

	var calls atomic.Int64
	var last atomic.Value
	result, err := New(Options{
		Root: root,
		OnProgress: func(p types.ScanProgress) {
			calls.Add(1)
			last.Store(p)
		},
	}).Scan(context.Background())
	require.NoError(t, err)

	// Start and finish are always reported.
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
	final, ok := last.Load().(types.ScanProgress)
	require.True(t, ok)
	assert.Equal(t, int64(3), final.FilesSeen)
	assert.Equal(t, result.FilesHashed, final.FilesHashed)
}

func TestMatchesExclusionPattern(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{name: "exact", path: "/data/tmp", pattern: "/data/tmp", want: true},
		{name: "beneath", path: "/data/tmp/x", pattern: "/data/tmp", want: true},
		{name: "trailing separator", path: "/data/tmp/x", pattern: "/data/tmp/", want: true},
		{name: "sibling prefix", path: "/data/tmpfile", pattern: "/data/tmp", want: false},
		{name: "basename glob", path: "/data/a.log", pattern: "*.log", want: true},
		{name: "full path glob", path: "/data/a.log", pattern: "/data/*.log", want: true},
		{name: "no match", path: "/data/a.txt", pattern: "*.log", want: false},
		{name: "empty pattern", path: "/data/a.txt", pattern: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesExclusionPattern(tt.path, tt.pattern))
		})
	}
}

// vanishedEntry is a regular file whose stat fails as if it was deleted
// after the directory was read.
type vanishedEntry struct{ name string }

func (e vanishedEntry) Name() string               { return e.name }
func (e vanishedEntry) IsDir() bool                { return false }
func (e vanishedEntry) Type() fs.FileMode          { return 0 }
func (e vanishedEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrNotExist }

func TestWalkRecordsVanishedFile(t *testing.T) {
	root := t.TempDir()
	s := New(Options{Root: root})
	s.root = root

	jobs := make(chan job, 1)
	path := filepath.Join(root, "gone.txt")
	err := s.walkCallback(context.Background(), jobs)(path, vanishedEntry{name: "gone.txt"}, nil)
	require.NoError(t, err)

	assert.Empty(t, jobs)
	require.Len(t, s.errors, 1)
	assert.Equal(t, path, s.errors[0].Path)
	assert.Contains(t, s.errors[0].Error, "not exist")
}
