// Package diff classifies the differences between a baseline snapshot and
// a current snapshot.
package diff

import (
	"fmt"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/baseline"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// Kind names a change category. Its string form is also the report file
// stem.
type Kind string

// Change categories.
const (
	KindAdded    Kind = "added"
	KindRemoved  Kind = "removed"
	KindModified Kind = "modified"
)

// Kinds returns every category in report order.
func Kinds() []Kind {
	return []Kind{KindAdded, KindRemoved, KindModified}
}

// ParseKind converts a name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown change kind %q", s)
}

// Classification partitions the union of two snapshots. Every identity in
// either snapshot is in exactly one of Added, Removed, Modified, or counted
// in Unchanged. The lists are sorted.
type Classification struct {
	Added     []types.FileIdentity `json:"added" yaml:"added"`
	Removed   []types.FileIdentity `json:"removed" yaml:"removed"`
	Modified  []types.FileIdentity `json:"modified" yaml:"modified"`
	Unchanged int                  `json:"unchanged" yaml:"unchanged"`
}

// Compare classifies current against baseline by path. A renamed or moved
// file is reported as one removal and one addition.
func Compare(base, current types.Snapshot) Classification {
	c := Classification{
		Added:    []types.FileIdentity{},
		Removed:  []types.FileIdentity{},
		Modified: []types.FileIdentity{},
	}

	current.Range(func(path types.FileIdentity, ds types.DigestSet) bool {
		old, ok := base.Get(path)
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case !old.Equal(ds):
			c.Modified = append(c.Modified, path)
		default:
			c.Unchanged++
		}
		return true
	})

	base.Range(func(path types.FileIdentity, _ types.DigestSet) bool {
		if !current.Has(path) {
			c.Removed = append(c.Removed, path)
		}
		return true
	})

	return c
}

// HasChanges reports whether any file was added, removed or modified.
func (c Classification) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Modified) > 0
}

// Total returns the number of changed files.
func (c Classification) Total() int {
	return len(c.Added) + len(c.Removed) + len(c.Modified)
}

// Bucket returns the identities classified as kind.
func (c Classification) Bucket(kind Kind) []types.FileIdentity {
	switch kind {
	case KindAdded:
		return c.Added
	case KindRemoved:
		return c.Removed
	case KindModified:
		return c.Modified
	default:
		return nil
	}
}

// Rows builds report rows for one category. Added and modified rows carry
// the current digests; removed rows carry the last known baseline digests.
func (c Classification) Rows(kind Kind, base, current types.Snapshot, ts time.Time) []baseline.Row {
	source := current
	if kind == KindRemoved {
		source = base
	}

	paths := c.Bucket(kind)
	stamp := ts.Format(baseline.TimestampLayout)
	rows := make([]baseline.Row, 0, len(paths))
	for _, p := range paths {
		ds, _ := source.Get(p)
		rows = append(rows, baseline.Row{Timestamp: stamp, Path: p, Digests: ds})
	}
	return rows
}
