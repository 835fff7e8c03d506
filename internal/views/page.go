// Package views renders the site's HTML page with templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/devlog"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/journey"
	"github.com/conneroisu/devlog/internal/search"
)

// PageData is everything the index page shows.
type PageData struct {
	Title    string
	Version  string
	Sections []content.Section
	Devlog   []devlog.VersionGroup
	Logs     []content.JourneyLog
	Facets   journey.FacetSet
	Query    string
	Results  []search.Result
	// Err is set when content could not be loaded. The page then shows a
	// banner in place of the content sections.
	Err        error
	LiveReload bool
}

// Page renders the full HTML document.
func Page(data PageData) templ.Component {
	title := data.Title
	if title == "" {
		title = "Devlog"
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &markup{w: w}
		h.raw("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>").text(title).raw("</title>")
		h.raw("<style>").raw(pageStyle).raw("</style></head><body>")
		if h.err != nil {
			return h.err
		}

		children := []templ.Component{
			Nav(data.Sections),
			ErrorBanner(data.Err),
			SearchForm(data.Query, data.Results),
		}
		if data.Err == nil {
			children = append(children, DevlogSection(data.Devlog), JourneySection(data.Logs, data.Facets))
		}

		h.raw("<main>")
		for _, c := range children {
			if err := h.render(ctx, c); err != nil {
				return err
			}
		}
		h.raw("</main><footer>")
		if data.Version != "" {
			h.text(title).raw(" ").text(data.Version)
		}
		h.raw("</footer>")

		if data.LiveReload {
			h.raw("<script>").raw(liveScript).raw("</script>")
		}
		h.raw("</body></html>")
		return h.err
	})
}

// Nav renders the section links. The live script marks the active one.
func Nav(secs []content.Section) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(secs) == 0 {
			return nil
		}
		h := &markup{w: w}
		h.raw(`<nav id="sections"><ul>`)
		for _, s := range secs {
			label := s.Title
			if label == "" {
				label = s.ID
			}
			h.raw(`<li><a href="#`).attr(s.ID).raw(`" data-section="`).attr(s.ID).raw(`">`)
			h.text(label).raw("</a></li>")
		}
		h.raw("</ul></nav>")
		return h.err
	})
}

// ErrorBanner renders a visible alert when err is non-nil. Only the
// public message is shown; file paths and causes stay in the logs.
func ErrorBanner(err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &markup{w: w}
		if err == nil {
			// Kept empty so the live script can fill it on content_error.
			h.raw(`<div id="content-error" role="alert" hidden></div>`)
			return h.err
		}
		h.raw(`<div id="content-error" role="alert" class="error-banner">`)
		h.raw("<strong>Content could not be loaded.</strong> ")
		h.raw("<span>").text(siteerrors.PublicMessage(err)).raw("</span></div>")
		return h.err
	})
}

// SearchForm renders the query box and, when a query was given, its
// results.
func SearchForm(query string, results []search.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &markup{w: w}
		h.raw(`<section id="search"><form method="get" action="/search" role="search">`)
		h.raw(`<input type="search" name="q" minlength="2" placeholder="Search the devlog" value="`).attr(query).raw(`">`)
		h.raw(`<button type="submit">Search</button></form>`)

		if strings.TrimSpace(query) != "" {
			if len(results) == 0 {
				h.raw(`<p class="empty">No results for `).text(query).raw("</p>")
			} else {
				h.raw(`<ol class="results">`)
				for _, r := range results {
					h.raw(`<li data-relevance="`).attr(fmt.Sprint(r.Relevance)).raw(`">`)
					h.raw("<h3>").text(r.Entry.Title).raw("</h3>")
					if len(r.Entry.Tags) > 0 {
						h.raw(`<p class="tags">`).text(strings.Join(r.Entry.Tags, ", ")).raw("</p>")
					}
					h.raw("</li>")
				}
				h.raw("</ol>")
			}
		}
		h.raw("</section>")
		return h.err
	})
}

// DevlogSection renders entries grouped by version.
func DevlogSection(groups []devlog.VersionGroup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &markup{w: w}
		h.raw(`<section id="devlog"><h2>Devlog</h2>`)
		if len(groups) == 0 {
			h.raw(`<p class="empty">No devlog entries yet.</p>`)
		}
		for _, g := range groups {
			h.raw(`<article class="version" data-version="`).attr(g.Version).raw(`">`)
			h.raw("<h3>").text(g.Version).raw("</h3><ul>")
			for _, e := range g.Entries {
				h.raw("<li><time>").text(e.Date).raw("</time> ")
				h.raw("<strong>").text(e.Title).raw("</strong>")
				if e.Task != "" {
					h.raw(` <span class="task">`).text(e.Task).raw("</span>")
				}
				h.raw("</li>")
			}
			h.raw("</ul></article>")
		}
		h.raw("</section>")
		return h.err
	})
}

// JourneySection renders the experiment log as a table, headed by the
// tool and failure-tag counts.
func JourneySection(logs []content.JourneyLog, facets journey.FacetSet) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &markup{w: w}
		h.raw(`<section id="journey"><h2>Journey</h2>`)
		h.facets("tools", "Tools", facets.Tools)
		h.facets("failure-tags", "Failures", facets.FailureTags)
		if len(logs) == 0 {
			h.raw(`<p class="empty">No journey logs yet.</p></section>`)
			return h.err
		}
		h.raw("<table><thead><tr><th>Date</th><th>Tool</th><th>Goal</th><th>Fix</th><th>Failures</th><th>Score</th></tr></thead><tbody>")
		for _, l := range logs {
			h.raw("<tr>")
			for _, cell := range []string{l.Date, l.Tool, l.Goal, l.Fix, strings.Join(l.FailureTags, ", "), fmt.Sprint(l.ResultScore)} {
				h.raw("<td>").text(cell).raw("</td>")
			}
			h.raw("</tr>")
		}
		h.raw("</tbody></table></section>")
		return h.err
	})
}

// markup writes HTML and remembers the first write error.
type markup struct {
	w   io.Writer
	err error
}

func (h *markup) raw(s string) *markup {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
	return h
}

func (h *markup) text(s string) *markup {
	return h.raw(templ.EscapeString(s))
}

func (h *markup) attr(s string) *markup {
	return h.raw(templ.EscapeString(s))
}

func (h *markup) facets(class, label string, counts []journey.FacetCount) {
	if len(counts) == 0 {
		return
	}
	h.raw(`<p class="facets `).attr(class).raw(`">`).text(label).raw(": ")
	for i, c := range counts {
		if i > 0 {
			h.raw(", ")
		}
		h.text(fmt.Sprintf("%s (%d)", c.Value, c.Count))
	}
	h.raw("</p>")
}

func (h *markup) render(ctx context.Context, c templ.Component) error {
	if h.err != nil {
		return h.err
	}
	h.err = c.Render(ctx, h.w)
	return h.err
}
