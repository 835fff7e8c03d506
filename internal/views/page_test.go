package views

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/devlog"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/journey"
	"github.com/conneroisu/devlog/internal/search"
)

func render(t *testing.T, data PageData) *html.Node {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))

	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	return doc
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func countTag(n *html.Node, tag string) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == tag {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countTag(c, tag)
	}
	return count
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func samplePage() PageData {
	entries := []content.DevlogEntry{
		{ID: "a", Title: "Shader pass", Task: "lighting", Date: "2025-11-20", Version: "0.2.0"},
		{ID: "b", Title: "Audio bed", Date: "2025-10-02", Version: "0.1.0"},
		{ID: "c", Title: "Notes", Date: "2025-09-01"},
	}
	logs := []content.JourneyLog{
		{ID: "1", Tool: "Blender", Goal: "Bake normals", Fix: "Raised cage", FailureTags: []string{"artifacts"}, ResultScore: 4},
		{ID: "2", Tool: "Krita", Goal: "Paint <sky>", ResultScore: 2},
	}
	return PageData{
		Title:    "Studio devlog",
		Version:  "v1.2.3",
		Sections: []content.Section{{ID: "hero", Title: "Home"}, {ID: "devlog"}, {ID: "journey", Title: "Journey"}},
		Devlog:   devlog.GroupByVersion(entries),
		Logs:     logs,
		Facets:   journey.Facets(logs),
	}
}

func TestPageRendersContent(t *testing.T) {
	doc := render(t, samplePage())

	nav := findByID(doc, "sections")
	require.NotNil(t, nav)
	assert.Equal(t, 3, countTag(nav, "a"))
	assert.Contains(t, textOf(nav), "Home")
	assert.Contains(t, textOf(nav), "devlog", "untitled sections fall back to their id")

	dl := findByID(doc, "devlog")
	require.NotNil(t, dl)
	assert.Equal(t, 3, countTag(dl, "article"), "one article per version bucket")
	text := textOf(dl)
	assert.Less(t, strings.Index(text, "Unversioned"), strings.Index(text, "0.2.0"))
	assert.Less(t, strings.Index(text, "0.2.0"), strings.Index(text, "0.1.0"))

	j := findByID(doc, "journey")
	require.NotNil(t, j)
	assert.Equal(t, 3, countTag(j, "tr"), "header plus one row per log")
	assert.Contains(t, textOf(j), "Paint <sky>", "text round-trips through escaping")
	assert.Contains(t, textOf(j), "Blender (1)")

	banner := findByID(doc, "content-error")
	require.NotNil(t, banner)
	assert.True(t, hasAttr(banner, "hidden"))

	assert.Zero(t, countTag(doc, "script"), "live script only when enabled")
}

func TestPageShowsErrorBannerInsteadOfContent(t *testing.T) {
	data := samplePage()
	data.Err = siteerrors.ErrContentMalformed("/srv/content/devlog.json", errors.New("unexpected EOF"))

	doc := render(t, data)

	banner := findByID(doc, "content-error")
	require.NotNil(t, banner)
	assert.False(t, hasAttr(banner, "hidden"))
	assert.Contains(t, textOf(banner), "Content could not be loaded.")
	assert.Contains(t, textOf(banner), "malformed content file")
	assert.NotContains(t, textOf(banner), "/srv/content")

	assert.Nil(t, findByID(doc, "devlog"))
	assert.Nil(t, findByID(doc, "journey"))
	assert.NotNil(t, findByID(doc, "search"), "search form stays usable")
}

func TestSearchResults(t *testing.T) {
	data := samplePage()
	data.Query = `mood" onfocus="x`
	doc := render(t, data)
	form := findByID(doc, "search")
	require.NotNil(t, form)
	assert.Contains(t, textOf(form), "No results for")

	var input *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			input = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(form)
	require.NotNil(t, input)
	assert.False(t, hasAttr(input, "onfocus"), "query is escaped inside the attribute")

	data.Query = "mood"
	data.Results = search.Search("mood", []content.Entry{{Title: "Moodboard", Tags: []string{"visual"}}})
	doc = render(t, data)
	form = findByID(doc, "search")
	assert.Equal(t, 1, countTag(form, "li"))
	assert.Contains(t, textOf(form), "Moodboard")
	assert.Contains(t, textOf(form), "visual")
}

func TestPageLiveReloadScript(t *testing.T) {
	data := samplePage()
	data.LiveReload = true

	doc := render(t, data)
	assert.Equal(t, 1, countTag(doc, "script"))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPageReportsWriteErrors(t *testing.T) {
	err := Page(samplePage()).Render(context.Background(), failWriter{})
	assert.EqualError(t, err, "closed")
}
