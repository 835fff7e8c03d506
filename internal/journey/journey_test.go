package journey

import (
	"testing"

	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLogs() []content.JourneyLog {
	return []content.JourneyLog{
		{ID: "1", Tool: "Blender", Goal: "Bake normals", Fix: "Raised cage distance", FailureTags: []string{"artifacts"}, ResultScore: 4},
		{ID: "2", Tool: "Krita", Goal: "Paint skybox", Fix: "", FailureTags: []string{"seams", "artifacts"}, ResultScore: 2},
		{ID: "3", Tool: "Blender", Goal: "Retopo hero", Fix: "Used quad remesher", ResultScore: 5},
		{ID: "4", Tool: "Godot", Goal: "Export scene", Fix: "Disabled compression", FailureTags: []string{"crash"}, ResultScore: 1},
	}
}

func logIDs(logs []content.JourneyLog) []string {
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.ID
	}
	return out
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps all", Filter{}, []string{"1", "2", "3", "4"}},
		{"min score four", Filter{MinScore: 4}, []string{"1", "3"}},
		{"tool selection", Filter{Tools: toSet([]string{"Blender", "Godot"})}, []string{"1", "3", "4"}},
		{"failure tag selection", Filter{FailureTags: toSet([]string{"artifacts"})}, []string{"1", "2"}},
		{"search goal", Filter{Search: "SKYBOX"}, []string{"2"}},
		{"search fix", Filter{Search: "remesher"}, []string{"3"}},
		{"dimensions are ANDed", Filter{Tools: toSet([]string{"Blender"}), FailureTags: toSet([]string{"artifacts"}), MinScore: 3}, []string{"1"}},
		{"no match", Filter{Tools: toSet([]string{"Maya"})}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, logIDs(Apply(sampleLogs(), tc.filter)))
		})
	}
}

func TestApplyMinScoreFour(t *testing.T) {
	for _, log := range Apply(sampleLogs(), Filter{MinScore: 4}) {
		assert.GreaterOrEqual(t, log.ResultScore, 4)
	}
}

func TestApplyIsIdempotentAndPure(t *testing.T) {
	logs := sampleLogs()
	f := Filter{FailureTags: toSet([]string{"artifacts", "crash"}), Search: "e"}

	once := Apply(logs, f)
	twice := Apply(once, f)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("apply not idempotent (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(sampleLogs(), logs); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

func TestNewFilter(t *testing.T) {
	f, err := NewFilter([]string{"Blender", ""}, nil, " 3 ", "bake")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Blender": true}, f.Tools)
	assert.Empty(t, f.FailureTags)
	assert.Equal(t, 3, f.MinScore)
	assert.Equal(t, "bake", f.Search)

	f, err = NewFilter(nil, nil, "", "")
	require.NoError(t, err)
	assert.Zero(t, f.MinScore)

	testCases := []struct {
		name     string
		minScore string
	}{
		{"not a number", "high"},
		{"too large", "6"},
		{"negative", "-1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFilter(nil, nil, tc.minScore, "")
			require.Error(t, err)
			assert.True(t, siteerrors.IsValidation(err))
		})
	}
}

func TestFacets(t *testing.T) {
	logs := append(sampleLogs(), content.JourneyLog{ID: "5", Tool: "Krita", FailureTags: []string{"seams", "seams"}})

	facets := Facets(logs)
	assert.Equal(t, []FacetCount{
		{Value: "Blender", Count: 2},
		{Value: "Godot", Count: 1},
		{Value: "Krita", Count: 2},
	}, facets.Tools)
	assert.Equal(t, []FacetCount{
		{Value: "artifacts", Count: 2},
		{Value: "crash", Count: 1},
		{Value: "seams", Count: 2},
	}, facets.FailureTags)

	empty := Facets(nil)
	assert.NotNil(t, empty.Tools)
	assert.Empty(t, empty.Tools)
}
