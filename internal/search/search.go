// Package search implements the site-wide content search: a
// case-insensitive substring match over titles, bodies and tags, ranked
// by where the match was found.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/conneroisu/devlog/internal/content"
	"golang.org/x/text/cases"
)

// Relevance weights. A result takes the highest weight that applies.
const (
	RelevanceBody  = 1
	RelevanceTag   = 2
	RelevanceTitle = 3
)

// Options tunes a search.
type Options struct {
	// MinQueryLength is the shortest query, in runes, that is searched.
	MinQueryLength int
	// Limit caps the number of results; zero or less means no cap.
	Limit int
}

// DefaultOptions returns the options the site uses: queries of at least
// two characters, top ten results.
func DefaultOptions() Options {
	return Options{MinQueryLength: 2, Limit: 10}
}

// Result is one matching entry and its relevance.
type Result struct {
	Entry     content.Entry `json:"entry"`
	Relevance int           `json:"relevance"`
}

// Search runs query against entries with DefaultOptions.
func Search(query string, entries []content.Entry) []Result {
	return SearchWithOptions(query, entries, DefaultOptions())
}

// SearchWithOptions returns matching entries sorted by descending
// relevance. Entries with equal relevance keep their input order. The
// entries slice is not modified.
func SearchWithOptions(query string, entries []content.Entry, opts Options) []Result {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < opts.MinQueryLength || query == "" {
		return []Result{}
	}

	fold := cases.Fold()
	needle := fold.String(query)

	results := make([]Result, 0)
	for _, entry := range entries {
		if rel := relevance(fold, needle, entry); rel > 0 {
			results = append(results, Result{Entry: entry, Relevance: rel})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func relevance(fold cases.Caser, needle string, entry content.Entry) int {
	if contains(fold, entry.Title, needle) {
		return RelevanceTitle
	}
	for _, tag := range entry.Tags {
		if contains(fold, tag, needle) {
			return RelevanceTag
		}
	}
	if contains(fold, entry.Content, needle) {
		return RelevanceBody
	}
	return 0
}

// contains treats an empty field as a non-match.
func contains(fold cases.Caser, field, needle string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(fold.String(field), needle)
}
