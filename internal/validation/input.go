package validation

import (
	"strings"
	"unicode/utf8"
)

// MaxQueryLength bounds free-text search input in runes.
const MaxQueryLength = 200

// SanitizeInput removes null bytes and control characters other than
// common whitespace. Invalid UTF-8 is dropped.
func SanitizeInput(input string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(input))
	for _, r := range input {
		if r == utf8.RuneError {
			continue
		}
		if (r >= 32 && r != 0x7f) || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}

// SanitizeQuery cleans a search or filter query and caps its length.
// Control characters are dropped and the ends trimmed; inner spacing is
// kept so substring matches see the query as typed.
func SanitizeQuery(q string) string {
	q = strings.Map(func(r rune) rune {
		if r < 32 || r == 0x7f || r == utf8.RuneError {
			return -1
		}
		return r
	}, q)
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) <= MaxQueryLength {
		return q
	}
	runes := []rune(q)
	return strings.TrimSpace(string(runes[:MaxQueryLength]))
}
