package diff

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/digest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(files map[string]string) types.Snapshot {
	entries := make(map[types.FileIdentity]types.DigestSet, len(files))
	for path, content := range files {
		entries[path] = digest.Bytes([]byte(content))
	}
	return types.NewSnapshot(entries)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		base      map[string]string
		current   map[string]string
		added     []string
		removed   []string
		modified  []string
		unchanged int
	}{
		{
			name:     "both empty",
			added:    []string{},
			removed:  []string{},
			modified: []string{},
		},
		{
			name:      "identical",
			base:      map[string]string{"/a": "1", "/b": "2"},
			current:   map[string]string{"/a": "1", "/b": "2"},
			added:     []string{},
			removed:   []string{},
			modified:  []string{},
			unchanged: 2,
		},
		{
			name:      "added file",
			base:      map[string]string{"/a": "1"},
			current:   map[string]string{"/a": "1", "/new": "n"},
			added:     []string{"/new"},
			removed:   []string{},
			modified:  []string{},
			unchanged: 1,
		},
		{
			name:      "removed file",
			base:      map[string]string{"/a": "1", "/gone": "g"},
			current:   map[string]string{"/a": "1"},
			added:     []string{},
			removed:   []string{"/gone"},
			modified:  []string{},
			unchanged: 1,
		},
		{
			name:      "modified file",
			base:      map[string]string{"/a": "1", "/b": "before"},
			current:   map[string]string{"/a": "1", "/b": "after"},
			added:     []string{},
			removed:   []string{},
			modified:  []string{"/b"},
			unchanged: 1,
		},
		{
			name:     "rename is removal plus addition",
			base:     map[string]string{"/old.txt": "same content"},
			current:  map[string]string{"/new.txt": "same content"},
			added:    []string{"/new.txt"},
			removed:  []string{"/old.txt"},
			modified: []string{},
		},
		{
			name:     "empty baseline",
			current:  map[string]string{"/b": "2", "/a": "1"},
			added:    []string{"/a", "/b"},
			removed:  []string{},
			modified: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compare(snap(tt.base), snap(tt.current))

			assert.Equal(t, tt.added, c.Added)
			assert.Equal(t, tt.removed, c.Removed)
			assert.Equal(t, tt.modified, c.Modified)
			assert.Equal(t, tt.unchanged, c.Unchanged)
			assert.Equal(t, len(tt.added)+len(tt.removed)+len(tt.modified) > 0, c.HasChanges())
		})
	}
}

func TestCompareIsIdempotent(t *testing.T) {
	s := snap(map[string]string{"/a": "1", "/b/c": "2", "/d": ""})

	c := Compare(s, s)
	assert.False(t, c.HasChanges())
	assert.Equal(t, 3, c.Unchanged)
	assert.Zero(t, c.Total())
}

func TestCompareSingleDigestDifference(t *testing.T) {
	ds := digest.Bytes([]byte("x"))
	changed := ds
	changed.SHA1 = digest.Bytes([]byte("y")).SHA1

	base := types.NewSnapshot(map[types.FileIdentity]types.DigestSet{"/f": ds})
	current := types.NewSnapshot(map[types.FileIdentity]types.DigestSet{"/f": changed})

	assert.Equal(t, []types.FileIdentity{"/f"}, Compare(base, current).Modified)
}

// TestComparePartition checks on random snapshot pairs that every identity
// lands in exactly one bucket and that the buckets match set arithmetic.
func TestComparePartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))

	for iter := range 200 {
		base := make(map[string]string)
		current := make(map[string]string)
		for i := range rng.IntN(40) {
			path := fmt.Sprintf("/f%02d", i)
			content := fmt.Sprintf("c%d", rng.IntN(3))
			switch rng.IntN(4) {
			case 0:
				base[path] = content
			case 1:
				current[path] = content
			default:
				base[path] = content
				if rng.IntN(2) == 0 {
					current[path] = content
				} else {
					current[path] = content + "!"
				}
			}
		}

		bs, cs := snap(base), snap(current)
		c := Compare(bs, cs)

		seen := make(map[types.FileIdentity]int)
		for _, kind := range Kinds() {
			for _, p := range c.Bucket(kind) {
				seen[p]++
			}
		}
		for p, n := range seen {
			require.Equal(t, 1, n, "iteration %d: %s in %d buckets", iter, p, n)
		}

		union := make(map[string]struct{})
		for p := range base {
			union[p] = struct{}{}
		}
		for p := range current {
			union[p] = struct{}{}
		}
		require.Equal(t, len(union), c.Total()+c.Unchanged, "iteration %d", iter)

		for _, p := range c.Added {
			require.False(t, bs.Has(p))
			require.True(t, cs.Has(p))
		}
		for _, p := range c.Removed {
			require.True(t, bs.Has(p))
			require.False(t, cs.Has(p))
		}
		for _, p := range c.Modified {
			require.NotEqual(t, base[p], current[p])
		}
	}
}

func TestRows(t *testing.T) {
	base := snap(map[string]string{"/gone": "old", "/mod": "v1"})
	current := snap(map[string]string{"/mod": "v2", "/new": "fresh"})
	c := Compare(base, current)
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	added := c.Rows(KindAdded, base, current, ts)
	require.Len(t, added, 1)
	assert.Equal(t, "/new", added[0].Path)
	assert.Equal(t, "2026-10-19", added[0].Timestamp)
	assert.Equal(t, digest.Bytes([]byte("fresh")), added[0].Digests)

	removed := c.Rows(KindRemoved, base, current, ts)
	require.Len(t, removed, 1)
	assert.Equal(t, digest.Bytes([]byte("old")), removed[0].Digests)

	modified := c.Rows(KindModified, base, current, ts)
	require.Len(t, modified, 1)
	assert.Equal(t, digest.Bytes([]byte("v2")), modified[0].Digests)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []Kind{KindAdded, KindRemoved, KindModified}, Kinds())

	k, err := ParseKind("removed")
	require.NoError(t, err)
	assert.Equal(t, KindRemoved, k)

	_, err = ParseKind("renamed")
	require.Error(t, err)

	assert.Nil(t, Classification{}.Bucket(Kind("bogus")))
}
