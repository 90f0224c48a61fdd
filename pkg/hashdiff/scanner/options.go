// Package scanner walks a directory tree and hashes every regular file into
// a Snapshot. Traversal runs on fastwalk; hashing runs on a bounded worker
// pool fed by the walk callbacks.
package scanner

import (
	"runtime"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/cache"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/tuner"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// Options configures the scanner behavior.
type Options struct {
	// Root is the directory to snapshot.
	Root string

	// Exclude contains paths or glob patterns to skip. A pattern matches a
	// path equal to it, anything beneath it, or a glob on the base name or
	// full path.
	Exclude []string

	// Workers is the number of concurrent hash goroutines.
	Workers int

	// QueueSize bounds the number of files waiting to be hashed.
	QueueSize int

	// OnProgress is called periodically with scan progress updates.
	// It must be safe to call from multiple goroutines.
	OnProgress func(types.ScanProgress)

	// Cache is an optional digest cache keyed by size and mtime.
	// If nil, every file is read.
	Cache *cache.Cache
}

// DefaultOptions returns options tuned for the current machine.
func DefaultOptions() Options {
	resources, err := tuner.Detect()
	if err != nil {
		resources = tuner.Fallback(runtime.NumCPU())
	}
	tuned := tuner.Calculate(resources)

	return Options{
		Root:      ".",
		Workers:   tuned.HashWorkers,
		QueueSize: tuned.QueueSize,
	}
}

// Validate fills in defaults for unset or invalid values.
func (o *Options) Validate() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Workers < 1 || o.QueueSize < 1 {
		tuned := tuner.Calculate(tuner.Fallback(runtime.NumCPU()))
		if o.Workers < 1 {
			o.Workers = tuned.HashWorkers
		}
		if o.QueueSize < 1 {
			o.QueueSize = tuned.QueueSize
		}
	}
}
