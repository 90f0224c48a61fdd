// Package types provides core data types for the hashdiff integrity checker.
// It includes the digest set recorded per file, the immutable snapshot of a
// directory tree, scan results, and the error taxonomy shared by all
// components.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"
)

// FileIdentity is the path of a file. It is the unique key across
// snapshots: a renamed or moved file is a different identity even when its
// content is unchanged.
type FileIdentity = string

// NormalizePath returns the canonical identity for a path.
func NormalizePath(path string) FileIdentity {
	return filepath.Clean(path)
}

// DigestSet holds the hex digests of one file's full content.
// Two sets are equal only when all three fields match.
type DigestSet struct {
	MD5    string `json:"md5" yaml:"md5"`
	SHA1   string `json:"sha1" yaml:"sha1"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Equal reports whether all three digests match.
func (d DigestSet) Equal(other DigestSet) bool {
	return d.MD5 == other.MD5 && d.SHA1 == other.SHA1 && d.SHA256 == other.SHA256
}

// IsZero reports whether no digest has been set.
func (d DigestSet) IsZero() bool {
	return d == DigestSet{}
}

// Snapshot maps file identities to their digest sets at one instant.
// A Snapshot is immutable once constructed; scanning again produces a new one.
type Snapshot struct {
	entries map[FileIdentity]DigestSet
}

// NewSnapshot builds a Snapshot from the given entries. The map is copied,
// so later changes to it do not affect the snapshot.
func NewSnapshot(entries map[FileIdentity]DigestSet) Snapshot {
	m := make(map[FileIdentity]DigestSet, len(entries))
	for path, ds := range entries {
		m[NormalizePath(path)] = ds
	}
	return Snapshot{entries: m}
}

// Get returns the digest set recorded for path.
func (s Snapshot) Get(path FileIdentity) (DigestSet, bool) {
	ds, ok := s.entries[path]
	return ds, ok
}

// Has reports whether path is part of the snapshot.
func (s Snapshot) Has(path FileIdentity) bool {
	_, ok := s.entries[path]
	return ok
}

// Len returns the number of files in the snapshot.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// Paths returns all identities in lexical order.
func (s Snapshot) Paths() []FileIdentity {
	paths := make([]FileIdentity, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Range calls fn for every entry in lexical path order.
// Iteration stops early if fn returns false.
func (s Snapshot) Range(fn func(path FileIdentity, ds DigestSet) bool) {
	for _, p := range s.Paths() {
		if !fn(p, s.entries[p]) {
			return
		}
	}
}

// Equal reports whether both snapshots hold the same identity to digest
// mapping.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for p, ds := range s.entries {
		o, ok := other.entries[p]
		if !ok || !ds.Equal(o) {
			return false
		}
	}
	return true
}

// Fingerprint returns a 128-bit xxh3 hash of the snapshot content as hex.
// Snapshots with equal content always share a fingerprint.
func (s Snapshot) Fingerprint() string {
	h := xxh3.New()
	var lenBuf [8]byte
	write := func(v string) {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(v)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.WriteString(v)
	}
	for _, p := range s.Paths() {
		ds := s.entries[p]
		write(p)
		write(ds.MD5)
		write(ds.SHA1)
		write(ds.SHA256)
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

// ScanResult contains the outcome of scanning one directory tree.
type ScanResult struct {
	// Root is the absolute path that was scanned.
	Root string `json:"root"`

	// Snapshot holds every regular file that could be hashed.
	Snapshot Snapshot `json:"-"`

	// FilesHashed is the number of files whose content was read.
	FilesHashed int64 `json:"files_hashed"`

	// BytesHashed is the total number of content bytes read.
	BytesHashed int64 `json:"bytes_hashed"`

	// CacheHits is the number of files whose digests came from the cache.
	CacheHits int64 `json:"cache_hits"`

	// Skipped counts non-regular entries (symlinks, devices, sockets).
	Skipped int64 `json:"skipped"`

	// Elapsed is the total scan duration.
	Elapsed time.Duration `json:"elapsed"`

	// Errors holds per-file failures. Files listed here are absent from
	// the snapshot.
	Errors []ScanError `json:"errors,omitempty"`
}

// HumanBytes returns BytesHashed formatted with IEC units.
func (r *ScanResult) HumanBytes() string {
	return FormatSize(r.BytesHashed)
}

// ScanError pairs a path with the error encountered while processing it.
type ScanError struct {
	// Path is the file or directory where the error occurred.
	Path string `json:"path"`

	// Error is the error message.
	Error string `json:"error"`
}

// ScanProgress reports scan progress.
type ScanProgress struct {
	FilesSeen   int64  `json:"files_seen"`
	FilesHashed int64  `json:"files_hashed"`
	BytesHashed int64  `json:"bytes_hashed"`
	CurrentPath string `json:"current_path"`
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
