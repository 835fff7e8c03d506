package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/devlog"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/journey"
	"github.com/conneroisu/devlog/internal/search"
	"github.com/conneroisu/devlog/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"entries.json": `[
			{"id": "mood", "title": "Moodboard", "content": "Colour studies for the forest", "tags": ["visual"]},
			{"id": "shader", "title": "Forest shader", "content": "Wind sway", "tags": ["tech"]}
		]`,
		"devlog.json": `[
			{"id": "d1", "title": "Lighting pass", "task": "lighting", "date": "2025-11-20", "version": "0.2.0", "tags": ["render"]},
			{"id": "d2", "title": "Audio bus", "task": "audio", "date": "2025-10-02", "version": "0.1.0", "tags": ["audio"]},
			{"id": "d3", "title": "Notes", "task": "misc", "date": "2025-12-01"}
		]`,
		"journey.json": `[
			{"id": "j1", "date": "2025-10-01", "tool": "Blender", "goal": "Bake normals", "fix": "Recalculate", "failureTags": ["shading"], "resultScore": 4},
			{"id": "j2", "date": "2025-10-05", "tool": "Godot", "goal": "Import scene", "fix": "Reexport glTF", "failureTags": ["import", "shading"], "resultScore": 2}
		]`,
		"sections.json": `[{"id": "hero", "title": "Hero", "top": 0, "height": 800}]`,
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return dir
}

// execute runs the root command and restores every flag afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithStderr(t, args...)
	return out, err
}

func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestDevlogCommandTable(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "devlog", "--content-dir", dir, "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "Notes")
	assert.Contains(t, lines[2], "Lighting pass")
	assert.Contains(t, lines[3], "Audio bus")
}

func TestDevlogCommandJSON(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "devlog", "--content-dir", dir, "-l", "error",
		"--sort-by", "title", "--order", "asc", "--tag", "render,audio", "-o", "json")
	require.NoError(t, err)

	var entries []content.DevlogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "d2", entries[0].ID)
	assert.Equal(t, "d1", entries[1].ID)
}

func TestDevlogCommandGroupedYAML(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "devlog", "--content-dir", dir, "-l", "error", "--grouped", "-o", "yaml")
	require.NoError(t, err)

	var groups []devlog.VersionGroup
	require.NoError(t, yaml.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, devlog.UnversionedKey, groups[0].Version)
	assert.Equal(t, "0.2.0", groups[1].Version)
	assert.Equal(t, "0.1.0", groups[2].Version)
}

func TestDevlogCommandRejectsUnknownSort(t *testing.T) {
	dir := writeContent(t)

	_, err := execute(t, "devlog", "--content-dir", dir, "-l", "error", "--sort-by", "mood")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sortBy")
}

func TestExecutePrintsHints(t *testing.T) {
	dir := writeContent(t)

	_, stderr, err := executeWithStderr(t, "devlog", "--content-dir", dir, "-l", "error", "--sort-by", "mood")
	require.Error(t, err)
	assert.Contains(t, stderr, "Hint: use one of: date, title, version")
}

func TestReportHints(t *testing.T) {
	var buf bytes.Buffer
	reportHints(&buf, errors.New("plain failure"))
	assert.Empty(t, buf.String())

	reportHints(&buf, siteerrors.NewFieldValidationError("minScore", 9, "out of range", "use a whole number from 0 to 5"))
	assert.Equal(t, "Hint: use a whole number from 0 to 5\n", buf.String())
}

func TestJourneyCommand(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "journey", "--content-dir", dir, "-l", "error", "--min-score", "3", "-o", "json")
	require.NoError(t, err)

	var logs []content.JourneyLog
	require.NoError(t, json.Unmarshal([]byte(out), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "j1", logs[0].ID)
}

func TestJourneyCommandFacets(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "journey", "--content-dir", dir, "-l", "error", "--facets", "-o", "json")
	require.NoError(t, err)

	var facets journey.FacetSet
	require.NoError(t, json.Unmarshal([]byte(out), &facets))
	assert.Len(t, facets.Tools, 2)
	assert.Contains(t, facets.FailureTags, journey.FacetCount{Value: "shading", Count: 2})
}

func TestJourneyCommandRejectsScore(t *testing.T) {
	_, err := execute(t, "journey", "--min-score", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 5")
}

func TestSearchCommand(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "search", "--content-dir", dir, "-l", "error", "-o", "json", "forest")
	require.NoError(t, err)

	var results []search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "shader", results[0].Entry.ID)
	assert.Equal(t, search.RelevanceTitle, results[0].Relevance)
}

func TestSearchCommandNoResults(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "search", "--content-dir", dir, "-l", "error", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, `No results for "zebra"`)
}

func TestValidateCommand(t *testing.T) {
	dir := writeContent(t)

	out, err := execute(t, "validate", "--content-dir", dir, "-l", "error", "-o", "json")
	require.NoError(t, err)

	var report ValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 3, report.Devlog)
	assert.Equal(t, 2, report.Journey)
	assert.Equal(t, 1, report.Sections)
	assert.Len(t, report.Files, 4)
	assert.Empty(t, report.Warnings)
}

func TestValidateCommandMalformed(t *testing.T) {
	dir := writeContent(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devlog.json"), []byte(`[{"id": `), 0o644))

	_, err := execute(t, "validate", "--content-dir", dir, "-l", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is invalid")
}

func TestValidateCommandMissingDir(t *testing.T) {
	_, err := execute(t, "validate", "--content-dir", filepath.Join(t.TempDir(), "missing"), "-l", "error")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.GetShortVersion(), strings.TrimSpace(out))

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.GetVersion(), info.Version)

	_, err = execute(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestOutputFlagValidation(t *testing.T) {
	_, err := execute(t, "devlog", "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("65536"))
	assert.Error(t, ValidatePort("http"))
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore("0"))
	assert.NoError(t, ValidateScore("5"))
	assert.Error(t, ValidateScore("-1"))
	assert.Error(t, ValidateScore("6"))
	assert.Error(t, ValidateScore("four"))
}
