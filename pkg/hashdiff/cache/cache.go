package cache

import (
	"errors"
	"fmt"
)

// Cache provides the digest lookups used by the scanner.
type Cache struct {
	store *Store
}

// Open opens or creates a cache at the given directory.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening digest cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached entry for a file if it was hashed at the same
// size and modification time. Any store error is treated as a miss.
func (c *Cache) Lookup(root, relPath string, size, mtime int64) (*CachedEntry, bool) {
	entry, err := c.store.Get(root, relPath)
	if err != nil {
		return nil, false
	}
	if !entry.Matches(size, mtime) {
		return nil, false
	}
	return entry, true
}

// Replace drops every entry under root and stores entries in its place, so
// files that disappeared since the last scan do not linger.
func (c *Cache) Replace(root string, entries map[string]*CachedEntry) error {
	if err := c.store.DeletePrefix(root); err != nil {
		return fmt.Errorf("clearing cache for %s: %w", root, err)
	}
	for _, e := range entries {
		e.Version = CacheVersion
	}
	if err := c.store.PutBatch(root, entries); err != nil {
		return fmt.Errorf("updating cache for %s: %w", root, err)
	}
	return nil
}

// Count returns the number of cached files under root.
func (c *Cache) Count(root string) (int, error) {
	return c.store.Count(root)
}

// Clear removes all cached entries for a root.
func (c *Cache) Clear(root string) error {
	if root == "" {
		return errors.New("cache root cannot be empty")
	}
	return c.store.DeletePrefix(root)
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() error {
	return c.store.DeletePrefix("")
}
