// Package content holds the site's static content model, the loader that
// reads it from disk, and the Store that serves immutable snapshots of it.
package content

import "time"

// Entry is one searchable unit of site content.
type Entry struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Content   string   `json:"content" yaml:"content"`
	Tags      []string `json:"tags" yaml:"tags"`
	SectionID string   `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
	Version   string   `json:"version,omitempty" yaml:"version,omitempty"`
	Date      string   `json:"date,omitempty" yaml:"date,omitempty"`
	Source    string   `json:"source,omitempty" yaml:"-"`
}

// DevlogEntry is a dated devlog post, optionally tied to a release version.
type DevlogEntry struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Task    string   `json:"task" yaml:"task"`
	Date    string   `json:"date" yaml:"date"`
	Version string   `json:"version,omitempty" yaml:"version,omitempty"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Content string   `json:"content,omitempty" yaml:"content,omitempty"`
}

// JourneyLog records one experiment: the tool tried, what broke and how
// well it went on a 1..5 scale.
type JourneyLog struct {
	ID          string   `json:"id" yaml:"id"`
	Date        string   `json:"date" yaml:"date"`
	Tool        string   `json:"tool" yaml:"tool"`
	Goal        string   `json:"goal" yaml:"goal"`
	Fix         string   `json:"fix" yaml:"fix"`
	FailureTags []string `json:"failureTags" yaml:"failureTags"`
	ResultScore int      `json:"resultScore" yaml:"resultScore"`
}

// Section is a page section with its vertical geometry in CSS pixels.
type Section struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Top    float64 `json:"top" yaml:"top"`
	Height float64 `json:"height" yaml:"height"`
}

// Snapshot is one consistent load of all content files. A snapshot is
// never modified after the loader returns it.
type Snapshot struct {
	Entries  []Entry       `json:"entries"`
	Devlog   []DevlogEntry `json:"devlog"`
	Journey  []JourneyLog  `json:"journey"`
	Sections []Section     `json:"sections"`
	Files    []string      `json:"files"`
	LoadedAt time.Time     `json:"loadedAt"`
}
