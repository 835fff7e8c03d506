package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/devlog"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/journey"
	"github.com/conneroisu/devlog/internal/search"
	"github.com/conneroisu/devlog/internal/validation"
	"github.com/conneroisu/devlog/internal/version"
	"github.com/conneroisu/devlog/internal/views"
)

// Metadata reports list sizes before and after filtering.
type Metadata struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
}

// DevlogResponse is the body of GET /api/devlog.
type DevlogResponse struct {
	Entries  []content.DevlogEntry `json:"entries"`
	Metadata Metadata              `json:"metadata"`
}

// VersionsResponse is the body of GET /api/devlog/versions.
type VersionsResponse struct {
	Versions []devlog.VersionGroup `json:"versions"`
	Metadata Metadata              `json:"metadata"`
}

// JourneyResponse is the body of GET /api/journey.
type JourneyResponse struct {
	Logs     []content.JourneyLog `json:"logs"`
	Facets   journey.FacetSet     `json:"facets"`
	Metadata Metadata             `json:"metadata"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// SectionsResponse is the body of GET /api/sections.
type SectionsResponse struct {
	Sections []content.Section `json:"sections"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Content   content.Status `json:"content"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.store.Status()
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.GetVersion(),
		Content:   status,
	}
	if !status.Loaded || status.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDevlog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := devlogState(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries := devlog.Apply(snap.Devlog, state)
	writeJSON(w, http.StatusOK, DevlogResponse{
		Entries:  entries,
		Metadata: Metadata{Total: len(snap.Devlog), Filtered: len(entries)},
	})
}

func (s *Server) handleDevlogVersions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := devlogState(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filtered := devlog.Filter(snap.Devlog, state)
	writeJSON(w, http.StatusOK, VersionsResponse{
		Versions: devlog.GroupByVersion(filtered),
		Metadata: Metadata{Total: len(snap.Devlog), Filtered: len(filtered)},
	})
}

func devlogState(q url.Values) (devlog.FilterState, error) {
	return devlog.NewFilterState(
		validation.SanitizeQuery(q.Get("search")),
		listParam(q, "tags"),
		q.Get("sortBy"),
		q.Get("sortOrder"),
	)
}

func (s *Server) handleJourney(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter, err := journey.NewFilter(
		listParam(q, "tools"),
		listParam(q, "tags"),
		q.Get("minScore"),
		validation.SanitizeQuery(q.Get("search")),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logs := journey.Apply(snap.Journey, filter)
	writeJSON(w, http.StatusOK, JourneyResponse{
		Logs:     logs,
		Facets:   journey.Facets(snap.Journey),
		Metadata: Metadata{Total: len(snap.Journey), Filtered: len(logs)},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	query := validation.SanitizeQuery(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: search.Search(query, snap.Entries),
	})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sections := snap.Sections
	if sections == nil {
		sections = []content.Section{}
	}
	writeJSON(w, http.StatusOK, SectionsResponse{Sections: sections})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := views.PageData{
		Version:    version.GetShortVersion(),
		Query:      validation.SanitizeQuery(r.URL.Query().Get("q")),
		LiveReload: true,
	}

	status := http.StatusOK
	snap, err := s.store.Snapshot()
	if err != nil {
		s.errorHandler.Handle(r.Context(), err)
		data.Err = err
		status = http.StatusServiceUnavailable
	} else {
		data.Sections = snap.Sections
		data.Devlog = devlog.GroupByVersion(snap.Devlog)
		data.Logs = snap.Journey
		data.Facets = journey.Facets(snap.Journey)
		data.Results = search.Search(data.Query, snap.Entries)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.Page(data).Render(r.Context(), w); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to render page")
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, siteerrors.Response{Error: siteerrors.ResponseDetail{
		Code:    siteerrors.ErrCodeFileNotFound,
		Message: "no such endpoint: " + r.URL.Path,
	}})
}

// writeError maps err onto a status and JSON error body. Internal errors
// never expose their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler.Handle(r.Context(), err)

	status := siteerrors.HTTPStatus(err)
	body := siteerrors.NewResponse(err)
	if status == http.StatusInternalServerError {
		body.Error.Message = "internal server error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// listParam reads a multi-value parameter given as repeated keys, a comma
// separated list, or both.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = validation.SanitizeQuery(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
