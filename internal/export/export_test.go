// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citegraph/pkg/types"
)

func testGraph() *types.Graph {
	return &types.Graph{
		RunID:     "run-1",
		Query:     "graph neural networks",
		MaxDepth:  2,
		Threshold: 0.5,
		Nodes: []types.Paper{
			{ID: "a", Title: "Paper A", Year: 2020, Score: 0.9, Depth: 1, CitationCount: 12, Sources: []string{"openalex"}},
			{ID: "s1", Title: "Seed Paper", Year: 2019, Score: 1.0, Depth: 0, Sources: []string{"semantic_scholar"}},
		},
		Edges: []types.Edge{{From: "s1", To: "a"}},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteJSON(testGraph(), &b))

	var got types.Graph
	require.NoError(t, json.Unmarshal([]byte(b.String()), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Len(t, got.Nodes, 2)
	assert.Equal(t, []types.Edge{{From: "s1", To: "a"}}, got.Edges)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteYAML(testGraph(), &b))

	var got types.Graph
	require.NoError(t, yaml.Unmarshal([]byte(b.String()), &got))
	assert.Equal(t, "graph neural networks", got.Query)
	assert.Len(t, got.Nodes, 2)
}

func TestWriteDOT(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteDOT(testGraph(), &b))
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "digraph citations {"))
	assert.Contains(t, out, `"s1" -> "a";`)
	assert.Contains(t, out, "2020 - Paper A")
	assert.Contains(t, out, `score="0.90"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}

func TestWriteDOTTruncatesLongTitles(t *testing.T) {
	g := testGraph()
	g.Nodes[0].Title = strings.Repeat("long title ", 20)

	var b strings.Builder
	require.NoError(t, WriteDOT(g, &b))
	assert.Contains(t, b.String(), "...")
}

func TestFormatTableSortsByScore(t *testing.T) {
	var b strings.Builder
	FormatTable(testGraph(), &b)
	out := b.String()

	// The seed (score 1.0) is listed before the depth-1 paper (0.9).
	seedIdx := strings.Index(out, "Seed Paper")
	aIdx := strings.Index(out, "Paper A")
	require.GreaterOrEqual(t, seedIdx, 0)
	require.GreaterOrEqual(t, aIdx, 0)
	assert.Less(t, seedIdx, aIdx)

	assert.Contains(t, out, "2 papers, 1 citation edges")
	assert.NotContains(t, out, "incomplete")
}

func TestFormatTableIncompleteTag(t *testing.T) {
	g := testGraph()
	g.Incomplete = "cancelled"

	var b strings.Builder
	FormatTable(g, &b)
	assert.Contains(t, b.String(), "(incomplete: cancelled)")
}

func TestFormatTableEmptyGraph(t *testing.T) {
	var b strings.Builder
	FormatTable(&types.Graph{}, &b)
	assert.Contains(t, b.String(), "No papers admitted.")
}
