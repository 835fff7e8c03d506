// Package devlog filters, sorts and groups devlog entries. Every function
// returns a new slice and leaves its input untouched.
package devlog

import (
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"golang.org/x/text/cases"
)

// UnversionedKey is the bucket for entries without a version.
const UnversionedKey = "Unversioned"

// SortBy selects the field entries are ordered by.
type SortBy string

const (
	SortByDate    SortBy = "date"
	SortByTitle   SortBy = "title"
	SortByVersion SortBy = "version"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortBy maps a request value onto SortBy. Empty means date.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByTitle:
		return SortByTitle, nil
	case SortByVersion:
		return SortByVersion, nil
	}
	return "", siteerrors.NewFieldValidationError("sortBy", s, "unknown sort field", "use one of: date, title, version")
}

// ParseSortOrder maps a request value onto SortOrder. Empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	}
	return "", siteerrors.NewFieldValidationError("sortOrder", s, "unknown sort order", "use asc or desc")
}

// FilterState is the set of user-chosen constraints on the devlog view.
type FilterState struct {
	Search       string
	SelectedTags map[string]bool
	SortBy       SortBy
	SortOrder    SortOrder
}

// NewFilterState builds a state from raw request values.
func NewFilterState(search string, tags []string, sortBy, sortOrder string) (FilterState, error) {
	var errs siteerrors.ValidationErrorCollection

	by, err := ParseSortBy(sortBy)
	if err != nil {
		errs.Add(err.(siteerrors.ValidationError))
	}
	order, err := ParseSortOrder(sortOrder)
	if err != nil {
		errs.Add(err.(siteerrors.ValidationError))
	}
	if errs.HasErrors() {
		return FilterState{}, &errs
	}

	return FilterState{
		Search:       search,
		SelectedTags: TagSet(tags),
		SortBy:       by,
		SortOrder:    order,
	}, nil
}

// TagSet turns a list of tags into a set, ignoring blanks.
func TagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			set[tag] = true
		}
	}
	return set
}

// Filter keeps entries whose title, task or date contains the search text
// (case-insensitive) and that carry at least one selected tag. An empty
// search or an empty tag selection does not restrict.
func Filter(entries []content.DevlogEntry, state FilterState) []content.DevlogEntry {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(state.Search))

	out := make([]content.DevlogEntry, 0, len(entries))
	for _, entry := range entries {
		if needle != "" && !matchesText(fold, needle, entry) {
			continue
		}
		if len(state.SelectedTags) > 0 && !hasAnyTag(entry.Tags, state.SelectedTags) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func matchesText(fold cases.Caser, needle string, entry content.DevlogEntry) bool {
	for _, field := range []string{entry.Title, entry.Task, entry.Date} {
		if field != "" && strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

func hasAnyTag(tags []string, selected map[string]bool) bool {
	for _, tag := range tags {
		if selected[tag] {
			return true
		}
	}
	return false
}

// Sort returns a copy of entries ordered by the given field. The sort is
// stable, so equal keys keep their input order.
func Sort(entries []content.DevlogEntry, by SortBy, order SortOrder) []content.DevlogEntry {
	out := make([]content.DevlogEntry, len(entries))
	copy(out, entries)

	cmp := comparator(by)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if order == SortAsc {
			return c < 0
		}
		return c > 0
	})
	return out
}

// Apply filters then sorts according to state.
func Apply(entries []content.DevlogEntry, state FilterState) []content.DevlogEntry {
	by, order := state.SortBy, state.SortOrder
	if by == "" {
		by = SortByDate
	}
	if order == "" {
		order = SortDesc
	}
	return Sort(Filter(entries, state), by, order)
}

func comparator(by SortBy) func(a, b content.DevlogEntry) int {
	switch by {
	case SortByTitle:
		fold := cases.Fold()
		return func(a, b content.DevlogEntry) int {
			return strings.Compare(fold.String(a.Title), fold.String(b.Title))
		}
	case SortByVersion:
		return func(a, b content.DevlogEntry) int {
			return strings.Compare(a.Version, b.Version)
		}
	default:
		return func(a, b content.DevlogEntry) int {
			return CompareDates(a.Date, b.Date)
		}
	}
}

// dateLayouts are tried in order when parsing a devlog date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses a calendar date in any of the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareDates compares two date strings chronologically. When either
// side does not parse, the raw strings are compared instead; the fallback
// only affects this pair.
func CompareDates(a, b string) int {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}
