// Package cache provides an optional persistent digest cache. Entries are
// keyed by scan root and relative path, and hold the size and modification
// time the digests were computed for, so unchanged files can skip hashing.
package cache

import (
	"bytes"
	"encoding/gob"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// CacheVersion is incremented when the entry encoding changes.
const CacheVersion = 1

// KeySeparator separates root from relative path in cache keys.
const KeySeparator = '\x00'

// CachedEntry is the cached state of one regular file.
type CachedEntry struct {
	Version int
	Size    int64 // File size in bytes when hashed
	Mtime   int64 // Modification time as UnixNano when hashed
	Digests types.DigestSet
}

// Matches reports whether the entry was computed for a file with the given
// size and modification time.
func (e *CachedEntry) Matches(size, mtime int64) bool {
	return e.Version == CacheVersion && e.Size == size && e.Mtime == mtime && !e.Digests.IsZero()
}

// Encode serializes the entry using gob.
func (e *CachedEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into the entry.
func (e *CachedEntry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key. Format: <root>\x00<relative_path>
func MakeKey(root, relPath string) []byte {
	return []byte(root + string(KeySeparator) + relPath)
}

// ParseKey extracts root and relative path from a cache key.
func ParseKey(key []byte) (root, relPath string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix shared by all keys under a root.
func MakeKeyPrefix(root string) []byte {
	return []byte(root + string(KeySeparator))
}
