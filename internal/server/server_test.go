package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/devlog/internal/config"
	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testSnapshot() *content.Snapshot {
	return &content.Snapshot{
		Entries: []content.Entry{
			{ID: "mood", Title: "Moodboard", Content: "Colour studies for the forest", Tags: []string{"visual"}},
			{ID: "shader", Title: "Forest shader", Content: "Wind sway", Tags: []string{"tech"}},
		},
		Devlog: []content.DevlogEntry{
			{ID: "d1", Title: "Lighting pass", Task: "lighting", Date: "2025-11-20", Version: "0.2.0", Tags: []string{"render"}},
			{ID: "d2", Title: "Audio bus", Task: "audio", Date: "2025-10-02", Version: "0.1.0", Tags: []string{"audio"}},
			{ID: "d3", Title: "Notes", Task: "misc", Date: "2025-12-01"},
		},
		Journey: []content.JourneyLog{
			{ID: "j1", Tool: "Blender", Goal: "Bake normals", Fix: "Recalculate", FailureTags: []string{"shading"}, ResultScore: 4},
			{ID: "j2", Tool: "Godot", Goal: "Import scene", Fix: "Reexport glTF", FailureTags: []string{"import"}, ResultScore: 2},
		},
		Sections: []content.Section{
			{ID: "hero", Title: "Hero", Top: 0, Height: 800},
			{ID: "devlog", Title: "Devlog", Top: 800, Height: 1200},
		},
	}
}

func newTestServer(t *testing.T, store *content.Store) *Server {
	t.Helper()
	cfg := config.Default()
	srv := New(cfg, store, nil)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDevlogEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	tests := []struct {
		name     string
		target   string
		expected []string
	}{
		{"default newest first", "/api/devlog", []string{"d3", "d1", "d2"}},
		{"ascending", "/api/devlog?sortOrder=asc", []string{"d2", "d1", "d3"}},
		{"by title", "/api/devlog?sortBy=title&sortOrder=asc", []string{"d2", "d1", "d3"}},
		{"search", "/api/devlog?search=AUDIO", []string{"d2"}},
		{"comma tags", "/api/devlog?tags=render,audio", []string{"d1", "d2"}},
		{"repeated tags", "/api/devlog?tags=render&tags=audio", []string{"d1", "d2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			resp := decode[DevlogResponse](t, rec)
			var ids []string
			for _, e := range resp.Entries {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.expected, ids)
			assert.Equal(t, 3, resp.Metadata.Total)
			assert.Equal(t, len(tt.expected), resp.Metadata.Filtered)
		})
	}
}

func TestDevlogEndpointRejectsBadSort(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/devlog?sortBy=mood")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[siteerrors.Response](t, rec)
	assert.Equal(t, siteerrors.ErrCodeValidationFailed, body.Error.Code)
	assert.Contains(t, body.Error.Message, "sortBy")
	assert.Equal(t, []string{"use one of: date, title, version"}, body.Error.Suggestions)
}

func TestDevlogVersionsEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/devlog/versions")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[VersionsResponse](t, rec)
	var keys []string
	for _, g := range resp.Versions {
		keys = append(keys, g.Version)
	}
	assert.Equal(t, []string{"Unversioned", "0.2.0", "0.1.0"}, keys)
	assert.Equal(t, 3, resp.Metadata.Filtered)
}

func TestJourneyEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/journey?minScore=3")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[JourneyResponse](t, rec)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "j1", resp.Logs[0].ID)
	assert.Len(t, resp.Facets.Tools, 2)
	assert.Equal(t, 2, resp.Metadata.Total)

	rec = get(t, h, "/api/journey?tools=Godot&tags=import")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[JourneyResponse](t, rec)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "j2", resp.Logs[0].ID)

	rec = get(t, h, "/api/journey?minScore=9")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/api/journey?minScore=three")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/search?q=forest")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "forest", resp.Query)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "shader", resp.Results[0].Entry.ID, "title match ranks first")

	rec = get(t, h, "/api/search?q=f")
	resp = decode[SearchResponse](t, rec)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "[]", strings.TrimSpace(extractField(t, rec.Body.Bytes(), "results")))
}

func TestSearchKeepsInnerSpacing(t *testing.T) {
	snap := testSnapshot()
	snap.Entries = append(snap.Entries, content.Entry{ID: "dark", Title: "Night", Content: "dark  forest"})
	h := newTestServer(t, content.NewStaticStore(snap)).Handler()

	rec := get(t, h, "/api/search?q=dark%20%20forest")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "dark  forest", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "dark", resp.Results[0].Entry.ID)
}

func extractField(t *testing.T, data []byte, key string) string {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	return string(raw[key])
}

func TestSectionsEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/sections")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SectionsResponse](t, rec)
	require.Len(t, resp.Sections, 2)
	assert.Equal(t, "hero", resp.Sections[0].ID)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Content.Loaded)
	assert.Equal(t, 2, resp.Content.Entries)
	assert.NotEmpty(t, resp.Version)
}

type failingSource struct{}

func (failingSource) Load(context.Context) (*content.Snapshot, error) {
	return nil, siteerrors.ErrContentMalformed("devlog.json", io.ErrUnexpectedEOF)
}

func TestUnavailableContent(t *testing.T) {
	store := content.NewStore(failingSource{}, nil)
	require.Error(t, store.Reload(context.Background()))
	h := newTestServer(t, store).Handler()

	rec := get(t, h, "/api/devlog")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[siteerrors.Response](t, rec)
	assert.Equal(t, siteerrors.ErrCodeContentMalformed, body.Error.Code)
	assert.Equal(t, "malformed content file", body.Error.Message)
	assert.NotContains(t, rec.Body.String(), "devlog.json")

	rec = get(t, h, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "malformed content file", health.Content.LastError)

	rec = get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="content-error"`)
	assert.Contains(t, rec.Body.String(), "malformed content file")
	assert.NotContains(t, rec.Body.String(), "devlog.json")
}

func TestIndexPage(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/?q=moodboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `id="devlog"`)
	assert.Contains(t, body, `id="journey"`)
	assert.Contains(t, body, "Moodboard")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(t, h, "/search?q=shader")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Forest shader")
}

func TestUnknownAPIPath(t *testing.T) {
	h := newTestServer(t, content.NewStaticStore(testSnapshot())).Handler()

	rec := get(t, h, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[siteerrors.Response](t, rec)
	assert.Equal(t, siteerrors.ErrCodeFileNotFound, body.Error.Code)
}

func TestListParam(t *testing.T) {
	q := map[string][]string{"tags": {"a, b", "", "c,,"}}
	assert.Equal(t, []string{"a", "b", "c"}, listParam(q, "tags"))
	assert.Nil(t, listParam(q, "tools"))
}

func TestServeAndShutdown(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t,
			goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
			goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		)
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devlog.json"),
		[]byte(`[{"id":"d1","title":"First","task":"setup","date":"2025-01-01"}]`), 0o644))

	cfg := config.Default()
	cfg.Content.Dir = dir
	cfg.Content.Watch = true
	cfg.Content.Debounce = 20 * time.Millisecond

	logger := logging.NewNopLogger()
	store := content.NewStore(content.NewLoader(cfg.Content, logger), logger)
	srv := New(cfg, store, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 2 * time.Second}
	t.Cleanup(client.CloseIdleConnections)

	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/api/devlog")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "devlog.json"),
		[]byte(`[{"id":"d1","title":"First","task":"setup","date":"2025-01-01"},{"id":"d2","title":"Second","task":"art","date":"2025-02-01"}]`), 0o644))

	require.Eventually(t, func() bool {
		return store.Status().Devlog == 2
	}, 3*time.Second, 20*time.Millisecond, "watcher reloads edited content")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.NoError(t, srv.Shutdown(context.Background()), "second shutdown is a no-op")
}
