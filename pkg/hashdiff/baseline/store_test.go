package baseline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/digest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleSnapshot() types.Snapshot {
	return types.NewSnapshot(map[types.FileIdentity]types.DigestSet{
		"/data/report.pdf":     digest.Bytes([]byte("report")),
		"/data/notes/todo.txt": digest.Bytes([]byte("todo")),
		"/data/with;semi.txt":  digest.Bytes([]byte("semi")),
		"/data/img/photo.jpg":  digest.Bytes([]byte("photo")),
	})
}

func TestStoreInitializeAndLoadRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state", "baseline.csv"))

	exists, err := store.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	snap := sampleSnapshot()
	require.NoError(t, store.Initialize(snap, runDate))

	exists, err = store.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Equal(loaded))
}

func TestStoreFileFormat(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "baseline.csv"))
	snap := types.NewSnapshot(map[types.FileIdentity]types.DigestSet{
		"/b": digest.Bytes([]byte("b")),
		"/a": digest.Bytes([]byte("hello world")),
	})
	require.NoError(t, store.Initialize(snap, runDate))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp;File Path;MD5;SHA1;SHA256", lines[0])
	assert.Equal(t, "2026-03-14;/a;5eb63bbbe01eeed093cb22bb8f5acdc3;"+
		"2aae6c35c94fcfb415dbe95f408b9ce91ee846ed;"+
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2026-03-14;/b;"))
}

func TestStoreInitializeRefusesExisting(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "baseline.csv"))
	require.NoError(t, store.Initialize(sampleSnapshot(), runDate))

	err := store.Initialize(types.NewSnapshot(nil), runDate)
	require.ErrorIs(t, err, ErrExists)

	// The existing baseline is untouched.
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())
}

func TestStoreInitializeEmptySnapshot(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "baseline.csv"))
	require.NoError(t, store.Initialize(types.NewSnapshot(nil), runDate))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestStoreCommitReplaces(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "baseline.csv"))
	require.NoError(t, store.Initialize(sampleSnapshot(), runDate))

	next := types.NewSnapshot(map[types.FileIdentity]types.DigestSet{
		"/data/new.txt": digest.Bytes([]byte("new")),
	})
	require.NoError(t, store.Commit(next, runDate.AddDate(0, 0, 1)))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, next.Equal(loaded))

	rows, err := store.LoadRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-15", rows[0].Timestamp)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreCommitCreatesMissing(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "baseline.csv"))
	require.NoError(t, store.Commit(sampleSnapshot(), runDate))

	exists, err := store.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreLoadMissing(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "baseline.csv"))

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNotExist)
}

func TestStoreRemove(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "baseline.csv"))
	require.NoError(t, store.Remove())

	require.NoError(t, store.Initialize(sampleSnapshot(), runDate))
	require.NoError(t, store.Remove())

	exists, err := store.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreExistsRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Exists()
	require.Error(t, err)
}

func TestStoreLoadCorrupt(t *testing.T) {
	good := digest.Bytes([]byte("x"))
	row := func(path string) string {
		return "2026-03-14;" + path + ";" + good.MD5 + ";" + good.SHA1 + ";" + good.SHA256
	}
	header := "Timestamp;File Path;MD5;SHA1;SHA256"
	upperSHA1 := "2026-03-14;/a;" + good.MD5 + ";" + strings.ToUpper(good.SHA1) + ";" + good.SHA256 + "\n"

	tests := []struct {
		name     string
		content  string
		wantLine int
		reason   string
	}{
		{
			name:     "empty file",
			content:  "",
			wantLine: 1,
			reason:   "missing header",
		},
		{
			name:     "wrong header",
			content:  "Date;Path;MD5;SHA1;SHA256\n" + row("/a") + "\n",
			wantLine: 1,
			reason:   "unexpected header",
		},
		{
			name:     "too few fields",
			content:  header + "\n" + row("/a") + "\n2026-03-14;/b;abc\n",
			wantLine: 3,
			reason:   "expected 5 fields, got 3",
		},
		{
			name:     "too many fields",
			content:  header + "\n" + row("/a") + ";extra\n",
			wantLine: 2,
			reason:   "expected 5 fields, got 6",
		},
		{
			name:     "empty path",
			content:  header + "\n" + row("") + "\n",
			wantLine: 2,
			reason:   "empty file path",
		},
		{
			name:     "duplicate path",
			content:  header + "\n" + row("/a") + "\n" + row("/b") + "\n" + row("/a") + "\n",
			wantLine: 4,
			reason:   "duplicate path /a (first on line 2)",
		},
		{
			name:     "short digest",
			content:  header + "\n2026-03-14;/a;abc;" + good.SHA1 + ";" + good.SHA256 + "\n",
			wantLine: 2,
			reason:   "malformed MD5 digest",
		},
		{
			name:     "uppercase digest",
			content:  header + "\n" + upperSHA1,
			wantLine: 2,
			reason:   "malformed SHA1 digest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "baseline.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := New(path).Load()
			require.Error(t, err)

			var corrupt *CorruptBaselineError
			require.True(t, errors.As(err, &corrupt), "got %T: %v", err, err)
			assert.Equal(t, path, corrupt.Path)
			assert.Equal(t, tt.wantLine, corrupt.Line)
			assert.Contains(t, corrupt.Reason, tt.reason)
			assert.Contains(t, err.Error(), "corrupt baseline")
		})
	}
}

func TestReadRowsQuotedPath(t *testing.T) {
	// Paths containing the delimiter or quotes survive a write/read cycle.
	rows := []Row{{
		Timestamp: "2026-03-14",
		Path:      `/data/a;b "quoted".txt`,
		Digests:   digest.Bytes([]byte("q")),
	}}

	var sb strings.Builder
	require.NoError(t, WriteRows(&sb, rows))

	got, err := ReadRows(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestRowsSortedAndStamped(t *testing.T) {
	rows := Rows(sampleSnapshot(), runDate)
	require.Len(t, rows, 4)

	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1].Path, rows[i].Path)
	}
	for _, r := range rows {
		assert.Equal(t, "2026-03-14", r.Timestamp)
	}
}
