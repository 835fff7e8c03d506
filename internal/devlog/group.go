package devlog

import (
	"sort"

	"github.com/conneroisu/devlog/internal/content"
)

// VersionGroup is the entries of one release version, newest first.
type VersionGroup struct {
	Version string                `json:"version"`
	Entries []content.DevlogEntry `json:"entries"`
}

// GroupByVersion buckets entries by version. Entries without a version go
// to UnversionedKey. Groups are ordered by descending version string and
// entries within a group by descending date.
func GroupByVersion(entries []content.DevlogEntry) []VersionGroup {
	buckets := make(map[string][]content.DevlogEntry)
	for _, entry := range entries {
		key := entry.Version
		if key == "" {
			key = UnversionedKey
		}
		buckets[key] = append(buckets[key], entry)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	groups := make([]VersionGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, VersionGroup{
			Version: key,
			Entries: Sort(buckets[key], SortByDate, SortDesc),
		})
	}
	return groups
}

// Flatten concatenates groups back into a single list in group order.
func Flatten(groups []VersionGroup) []content.DevlogEntry {
	n := 0
	for _, g := range groups {
		n += len(g.Entries)
	}
	out := make([]content.DevlogEntry, 0, n)
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}
