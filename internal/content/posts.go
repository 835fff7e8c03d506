package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// postMeta is the frontmatter a Markdown post may carry.
type postMeta struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags"`
	Date    string   `yaml:"date"`
	Version string   `yaml:"version"`
	Section string   `yaml:"section"`
}

// PostParser turns Markdown posts with frontmatter into search entries.
type PostParser struct {
	md goldmark.Markdown
}

// NewPostParser creates a parser with GitHub flavored Markdown enabled.
func NewPostParser() *PostParser {
	return &PostParser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Parse converts one post. The id and title fall back to the file name.
func (p *PostParser) Parse(path string, data []byte) (Entry, error) {
	var meta postMeta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return Entry{}, fmt.Errorf("frontmatter: %w", err)
	}

	var rendered bytes.Buffer
	if err := p.md.Convert(body, &rendered); err != nil {
		return Entry{}, fmt.Errorf("markdown: %w", err)
	}

	text, err := PlainText(rendered.String())
	if err != nil {
		return Entry{}, fmt.Errorf("extract text: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entry := Entry{
		ID:        meta.ID,
		Title:     meta.Title,
		Content:   text,
		Tags:      meta.Tags,
		SectionID: meta.Section,
		Version:   meta.Version,
		Date:      meta.Date,
		Source:    "post",
	}
	if entry.ID == "" {
		entry.ID = base
	}
	if entry.Title == "" {
		// Casers are stateful, so one per call
		entry.Title = cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(base))
	}

	return entry, nil
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
// Block level tags separate words; inline tags do not. Script and style
// bodies are dropped.
func PlainText(fragment string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			}
			if !inlineTags[tag] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "del": true, "em": true,
	"i": true, "kbd": true, "mark": true, "s": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "u": true,
}
