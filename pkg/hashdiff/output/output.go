// Package output provides formatters for displaying hashdiff run results
// in various output formats (pretty, plain, json, yaml).
//
// The package uses a registry pattern so the formatter can be selected at
// runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// Mode is the kind of run being reported.
type Mode string

const (
	// ModeBootstrap is a first run that created the baseline.
	ModeBootstrap Mode = "bootstrap"

	// ModeCompare is a run compared against an existing baseline.
	ModeCompare Mode = "compare"
)

// Stats contains scan statistics.
type Stats struct {
	Files       int           `json:"files" yaml:"files"`
	FilesHashed int64         `json:"files_hashed" yaml:"files_hashed"`
	BytesHashed int64         `json:"bytes_hashed" yaml:"bytes_hashed"`
	CacheHits   int64         `json:"cache_hits" yaml:"cache_hits"`
	Skipped     int64         `json:"skipped" yaml:"skipped"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Result contains the complete output data for formatting.
type Result struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// RunID is the history entry ID, empty when history is disabled.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Root is the scanned directory.
	Root string `json:"root" yaml:"root"`

	// Baseline is the baseline file path.
	Baseline string `json:"baseline" yaml:"baseline"`

	Stats Stats `json:"stats" yaml:"stats"`

	// Changes is the classification of a compare run.
	Changes diff.Classification `json:"changes" yaml:"changes"`

	// Reports are the report files written by this run.
	Reports []string `json:"reports,omitempty" yaml:"reports,omitempty"`

	// Committed is set when the baseline was replaced by this run's snapshot.
	Committed bool `json:"committed" yaml:"committed"`

	// Warnings lists files that could not be read.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewResult builds a Result from a scan.
func NewResult(mode Mode, baselinePath string, res *types.ScanResult) *Result {
	r := &Result{
		Mode:     mode,
		Root:     res.Root,
		Baseline: baselinePath,
		Stats: Stats{
			Files:       res.Snapshot.Len(),
			FilesHashed: res.FilesHashed,
			BytesHashed: res.BytesHashed,
			CacheHits:   res.CacheHits,
			Skipped:     res.Skipped,
			Duration:    res.Elapsed,
		},
	}
	for _, e := range res.Errors {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", e.Path, e.Error))
	}
	return r
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// bucketTitle is the heading printed above each non-empty category.
func bucketTitle(kind diff.Kind) string {
	switch kind {
	case diff.KindAdded:
		return "Added Files"
	case diff.KindRemoved:
		return "Removed Files"
	case diff.KindModified:
		return "Modified Files"
	default:
		return string(kind)
	}
}
