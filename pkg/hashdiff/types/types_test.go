package types

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestSetEqual(t *testing.T) {
	base := DigestSet{MD5: "a", SHA1: "b", SHA256: "c"}

	tests := []struct {
		name  string
		other DigestSet
		want  bool
	}{
		{name: "identical", other: DigestSet{MD5: "a", SHA1: "b", SHA256: "c"}, want: true},
		{name: "md5 differs", other: DigestSet{MD5: "x", SHA1: "b", SHA256: "c"}, want: false},
		{name: "sha1 differs", other: DigestSet{MD5: "a", SHA1: "x", SHA256: "c"}, want: false},
		{name: "sha256 differs", other: DigestSet{MD5: "a", SHA1: "b", SHA256: "x"}, want: false},
		{name: "zero", other: DigestSet{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base))
		})
	}
}

func TestNewSnapshotCopiesInput(t *testing.T) {
	entries := map[FileIdentity]DigestSet{
		"/data/a.txt": {MD5: "1", SHA1: "2", SHA256: "3"},
	}
	snap := NewSnapshot(entries)

	entries["/data/b.txt"] = DigestSet{MD5: "4"}
	delete(entries, "/data/a.txt")

	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.Has("/data/a.txt"))
	assert.False(t, snap.Has("/data/b.txt"))
}

func TestNewSnapshotNormalizesPaths(t *testing.T) {
	snap := NewSnapshot(map[FileIdentity]DigestSet{
		"/data//docs/./a.txt": {MD5: "1"},
	})

	ds, ok := snap.Get("/data/docs/a.txt")
	require.True(t, ok)
	assert.Equal(t, "1", ds.MD5)
}

func TestSnapshotPathsSorted(t *testing.T) {
	snap := NewSnapshot(map[FileIdentity]DigestSet{
		"/c": {}, "/a": {}, "/b": {},
	})
	assert.Equal(t, []FileIdentity{"/a", "/b", "/c"}, snap.Paths())

	var seen []FileIdentity
	snap.Range(func(p FileIdentity, _ DigestSet) bool {
		seen = append(seen, p)
		return p != "/b"
	})
	assert.Equal(t, []FileIdentity{"/a", "/b"}, seen)
}

func TestSnapshotEqualAndFingerprint(t *testing.T) {
	a := NewSnapshot(map[FileIdentity]DigestSet{
		"/x": {MD5: "1", SHA1: "2", SHA256: "3"},
		"/y": {MD5: "4", SHA1: "5", SHA256: "6"},
	})
	b := NewSnapshot(map[FileIdentity]DigestSet{
		"/y": {MD5: "4", SHA1: "5", SHA256: "6"},
		"/x": {MD5: "1", SHA1: "2", SHA256: "3"},
	})
	c := NewSnapshot(map[FileIdentity]DigestSet{
		"/x": {MD5: "1", SHA1: "2", SHA256: "3"},
		"/y": {MD5: "4", SHA1: "5", SHA256: "7"},
	})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)

	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	assert.True(t, NewSnapshot(nil).Equal(Snapshot{}))
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Shifting characters between adjacent fields must change the hash.
	a := NewSnapshot(map[FileIdentity]DigestSet{"/ab": {MD5: "c"}})
	b := NewSnapshot(map[FileIdentity]DigestSet{"/a": {MD5: "bc"}})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestDirectoryNotFoundError(t *testing.T) {
	err := error(&DirectoryNotFoundError{Path: "/missing", Err: os.ErrNotExist})
	assert.Contains(t, err.Error(), "does not exist")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var dnf *DirectoryNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Equal(t, "/missing", dnf.Path)

	notDir := &DirectoryNotFoundError{Path: "/file", Err: ErrNotDirectory}
	assert.Contains(t, notDir.Error(), "not a directory")
}

func TestIOError(t *testing.T) {
	err := error(&IOError{Path: "/locked", Err: os.ErrPermission})
	assert.Contains(t, err.Error(), "/locked")
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "0 B", FormatSize(-5))
}
