package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/cache"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/digest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/logging"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

var logger = logging.Get("scanner")

// job is a regular file waiting to be hashed.
type job struct {
	path  string
	size  int64
	mtime int64
}

// Scanner builds a Snapshot of one directory tree.
type Scanner struct {
	opts Options

	filesSeen   atomic.Int64
	filesHashed atomic.Int64
	bytesHashed atomic.Int64
	cacheHits   atomic.Int64
	skipped     atomic.Int64

	// currentPath is the file most recently picked up by a worker.
	currentPath atomic.Value

	// lastProgress tracks when we last reported progress to avoid excessive callbacks.
	lastProgress atomic.Int64

	errors   []types.ScanError
	errorsMu sync.Mutex

	// entries is the snapshot under construction. Workers finish in any
	// order; keying by path makes the merge order irrelevant.
	entries   map[types.FileIdentity]types.DigestSet
	entriesMu sync.Mutex

	// cacheEntries collects fresh digests keyed by path relative to root.
	cacheEntries   map[string]*cache.CachedEntry
	cacheEntriesMu sync.Mutex

	// root is the resolved absolute path being scanned.
	root string
}

// New creates a new Scanner with the given options.
// Options are validated and defaults are applied.
func New(opts Options) *Scanner {
	opts.Validate()

	s := &Scanner{
		opts:    opts,
		errors:  make([]types.ScanError, 0),
		entries: make(map[types.FileIdentity]types.DigestSet),
	}
	s.currentPath.Store("")
	return s
}

// Scan walks the root and hashes every regular file. Per-file read failures
// are recorded in the result and never abort the scan. Scan blocks until
// complete or ctx is cancelled, in which case ctx.Err() is returned.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	startTime := time.Now()

	root, err := ResolveRoot(s.opts.Root)
	if err != nil {
		return nil, err
	}
	s.root = root

	if s.opts.Cache != nil {
		s.cacheEntries = make(map[string]*cache.CachedEntry)
	}

	s.currentPath.Store(root)
	s.reportProgressForce()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, s.opts.QueueSize)

	var wg sync.WaitGroup
	for range s.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.hashWorker(ctx, jobs)
		}()
	}

	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}
	walkErr := fastwalk.Walk(&conf, root, s.walkCallback(ctx, jobs))
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	s.flushCacheEntries()
	s.reportProgressForce()

	logger.Debug("scan complete",
		"root", root,
		"files", len(s.entries),
		"hashed", s.filesHashed.Load(),
		"cache_hits", s.cacheHits.Load(),
		"errors", len(s.errors),
		"elapsed", time.Since(startTime))

	return &types.ScanResult{
		Root:        root,
		Snapshot:    types.NewSnapshot(s.entries),
		FilesHashed: s.filesHashed.Load(),
		BytesHashed: s.bytesHashed.Load(),
		CacheHits:   s.cacheHits.Load(),
		Skipped:     s.skipped.Load(),
		Elapsed:     time.Since(startTime),
		Errors:      s.errors,
	}, nil
}

// ResolveRoot returns the absolute form of root after checking that it is
// an existing directory. Any failure is a *types.DirectoryNotFoundError.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &types.DirectoryNotFoundError{Path: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &types.DirectoryNotFoundError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &types.DirectoryNotFoundError{Path: abs, Err: types.ErrNotDirectory}
	}

	return abs, nil
}

// walkCallback returns the callback function for fastwalk.Walk. fastwalk
// invokes it from several goroutines at once.
func (s *Scanner) walkCallback(ctx context.Context, jobs chan<- job) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		// Unreadable directories are recorded and the walk continues.
		if err != nil {
			s.addError(path, err)
			return nil
		}

		if path != s.root && s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			s.skipped.Add(1)
			return nil
		}

		// A file that vanished between readdir and stat is recorded like
		// any other unreadable file.
		info, err := d.Info()
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "err", err)
			s.addError(path, err)
			return nil
		}

		s.filesSeen.Add(1)

		select {
		case jobs <- job{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// hashWorker hashes files from the queue until it is closed or ctx is done.
func (s *Scanner) hashWorker(ctx context.Context, jobs <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			s.processFile(j)
		}
	}
}

// processFile produces the digest set for one file, from the cache when
// size and mtime still match and from the file content otherwise.
func (s *Scanner) processFile(j job) {
	s.currentPath.Store(j.path)

	relPath := s.relPath(j.path)

	if s.opts.Cache != nil {
		if entry, ok := s.opts.Cache.Lookup(s.root, relPath, j.size, j.mtime); ok {
			s.cacheHits.Add(1)
			s.addEntry(j.path, entry.Digests)
			s.addCacheEntry(relPath, entry)
			s.reportProgress()
			return
		}
	}

	ds, n, err := digest.Compute(j.path)
	if err != nil {
		logger.Warn("skipping unreadable file", "path", j.path, "err", err)
		s.addError(j.path, err)
		return
	}

	s.filesHashed.Add(1)
	s.bytesHashed.Add(n)
	s.addEntry(j.path, ds)
	s.addCacheEntry(relPath, &cache.CachedEntry{
		Size:    j.size,
		Mtime:   j.mtime,
		Digests: ds,
	})
	s.reportProgress()
}

func (s *Scanner) addEntry(path string, ds types.DigestSet) {
	s.entriesMu.Lock()
	s.entries[types.NormalizePath(path)] = ds
	s.entriesMu.Unlock()
}

// addCacheEntry records an entry for the end-of-scan cache flush.
func (s *Scanner) addCacheEntry(relPath string, entry *cache.CachedEntry) {
	if s.cacheEntries == nil {
		return // Cache not enabled for this scan.
	}
	s.cacheEntriesMu.Lock()
	s.cacheEntries[relPath] = entry
	s.cacheEntriesMu.Unlock()
}

// flushCacheEntries replaces the cached entries for this root with the ones
// seen in this scan. A failed flush only costs speed on the next run.
func (s *Scanner) flushCacheEntries() {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Replace(s.root, s.cacheEntries); err != nil {
		logger.Warn("digest cache update failed", "root", s.root, "err", err)
	}
}

func (s *Scanner) relPath(fullPath string) string {
	if fullPath == s.root {
		return ""
	}
	return strings.TrimPrefix(fullPath, s.root+string(filepath.Separator))
}

// addError adds an error to the error list thread-safely.
func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{
		Path:  path,
		Error: err.Error(),
	})
	s.errorsMu.Unlock()
}

// reportProgress calls the progress callback if configured.
// Throttles calls to avoid excessive overhead.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	// Throttle progress updates to every 10ms.
	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return // Another goroutine updated it.
	}

	s.sendProgress()
}

// reportProgressForce calls the progress callback immediately, bypassing throttle.
func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(types.ScanProgress{
		FilesSeen:   s.filesSeen.Load(),
		FilesHashed: s.filesHashed.Load() + s.cacheHits.Load(),
		BytesHashed: s.bytesHashed.Load(),
		CurrentPath: currentPath,
	})
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesExclusionPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern checks if a path matches a single exclusion pattern.
func matchesExclusionPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	// The pattern itself or anything beneath it.
	if path == pattern || strings.HasPrefix(path, strings.TrimSuffix(pattern, string(filepath.Separator))+string(filepath.Separator)) {
		return true
	}

	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	return false
}
