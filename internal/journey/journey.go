// Package journey filters the experiment log shown on the journey page.
package journey

import (
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"golang.org/x/text/cases"
)

// Score bounds for JourneyLog.ResultScore.
const (
	MinResultScore = 1
	MaxResultScore = 5
)

// Filter is the set of journey constraints. Every dimension is ANDed with
// the others, and an empty dimension does not restrict.
type Filter struct {
	Tools       map[string]bool `json:"tools,omitempty"`
	FailureTags map[string]bool `json:"failureTags,omitempty"`
	// MinScore is inclusive. Zero means no threshold.
	MinScore int    `json:"minScore,omitempty"`
	Search   string `json:"search,omitempty"`
}

// NewFilter builds a filter from raw request values. An empty minScore
// means no threshold.
func NewFilter(tools, tags []string, minScore, search string) (Filter, error) {
	f := Filter{
		Tools:       toSet(tools),
		FailureTags: toSet(tags),
		Search:      search,
	}

	if s := strings.TrimSpace(minScore); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, siteerrors.NewFieldValidationError("minScore", minScore, "must be an integer", "use a whole number from 0 to 5")
		}
		f.MinScore = n
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate rejects a threshold outside 0..MaxResultScore.
func (f Filter) Validate() error {
	if f.MinScore < 0 || f.MinScore > MaxResultScore {
		return siteerrors.NewFieldValidationError(
			"minScore", f.MinScore,
			"must be between 0 and 5",
			"use 0 for no threshold",
		)
	}
	return nil
}

// Apply returns the logs matching f in their input order.
func Apply(logs []content.JourneyLog, f Filter) []content.JourneyLog {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Search))

	out := make([]content.JourneyLog, 0, len(logs))
	for _, log := range logs {
		if len(f.Tools) > 0 && !f.Tools[log.Tool] {
			continue
		}
		if len(f.FailureTags) > 0 && !anyTag(log.FailureTags, f.FailureTags) {
			continue
		}
		if f.MinScore > 0 && log.ResultScore < f.MinScore {
			continue
		}
		if needle != "" && !containsFolded(fold, log.Goal, needle) && !containsFolded(fold, log.Fix, needle) {
			continue
		}
		out = append(out, log)
	}
	return out
}

func containsFolded(fold cases.Caser, field, needle string) bool {
	return field != "" && strings.Contains(fold.String(field), needle)
}

func anyTag(tags []string, selected map[string]bool) bool {
	for _, tag := range tags {
		if selected[tag] {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}

// FacetCount is one selectable value and how many logs carry it.
type FacetCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// FacetSet lists the selectable tools and failure tags.
type FacetSet struct {
	Tools       []FacetCount `json:"tools" yaml:"tools"`
	FailureTags []FacetCount `json:"failureTags" yaml:"failureTags"`
}

// Facets counts the distinct tools and failure tags in logs, sorted by
// value. A tag repeated on one log counts once.
func Facets(logs []content.JourneyLog) FacetSet {
	tools := make(map[string]int)
	tags := make(map[string]int)
	for _, log := range logs {
		if log.Tool != "" {
			tools[log.Tool]++
		}
		seen := make(map[string]bool, len(log.FailureTags))
		for _, tag := range log.FailureTags {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags[tag]++
		}
	}
	return FacetSet{Tools: sortedCounts(tools), FailureTags: sortedCounts(tags)}
}

func sortedCounts(counts map[string]int) []FacetCount {
	out := make([]FacetCount, 0, len(counts))
	for value, n := range counts {
		out = append(out, FacetCount{Value: value, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
