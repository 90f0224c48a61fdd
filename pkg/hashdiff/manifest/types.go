// Package manifest keeps a history of hashdiff runs as one JSON file per
// run.
package manifest

import (
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// OperationType represents the type of operation.
type OperationType string

const (
	// OpBootstrap records the first scan of a root, which created its baseline.
	OpBootstrap OperationType = "bootstrap"
	// OpCompare records a scan compared against the baseline.
	OpCompare OperationType = "compare"
	// OpCommit records the baseline being replaced by a newer snapshot.
	OpCommit OperationType = "commit"
	// OpReset records the baseline being removed.
	OpReset OperationType = "reset"
)

// Entry represents a single run.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`

	// Root is the scanned directory.
	Root string `json:"root"`

	// Baseline is the baseline file the run read or wrote.
	Baseline string `json:"baseline"`

	// Fingerprint identifies the snapshot content the run produced.
	Fingerprint string `json:"fingerprint,omitempty"`

	Summary Summary `json:"summary"`

	// Changes lists the classified files of a compare run.
	Changes *Changes `json:"changes,omitempty"`

	// Reports are the report files written by a compare run.
	Reports []string `json:"reports,omitempty"`

	// Errors are the files that could not be read.
	Errors []types.ScanError `json:"errors,omitempty"`
}

// Changes are the classified paths of a compare run.
type Changes struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Summary contains run totals.
type Summary struct {
	Files       int   `json:"files"`
	FilesHashed int64 `json:"files_hashed"`
	BytesHashed int64 `json:"bytes_hashed"`
	CacheHits   int64 `json:"cache_hits"`
	Added       int   `json:"added"`
	Removed     int   `json:"removed"`
	Modified    int   `json:"modified"`
	Unchanged   int   `json:"unchanged"`
	Errors      int   `json:"errors"`
	Elapsed     int64 `json:"elapsed_ms"`
}
