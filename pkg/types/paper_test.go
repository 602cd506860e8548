// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestID(t *testing.T) {
	tests := []struct {
		name string
		raw  RawPaper
		want string
	}{
		{"DOI wins", RawPaper{ID: "native", DOI: "10.1/x", ArxivID: "1706.03762"}, "10.1/x"},
		{"arXiv over native", RawPaper{ID: "native", ArxivID: "1706.03762"}, "1706.03762"},
		{"native fallback", RawPaper{ID: "native"}, "native"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.raw.BestID())
		})
	}
}

func TestHasText(t *testing.T) {
	assert.True(t, RawPaper{Abstract: "a"}.HasText())
	assert.True(t, RawPaper{Title: "t"}.HasText())
	assert.False(t, RawPaper{ID: "x", Year: 2020}.HasText())
}

func TestMergeFillsEmptyFields(t *testing.T) {
	p := &Paper{ID: "doi:10.1/x", Score: 0.8, Depth: 1, Title: "Kept Title"}
	p.Merge(RawPaper{
		ID:            "W1",
		Title:         "Ignored Title",
		Abstract:      "new abstract",
		Authors:       []string{"A", "B"},
		Year:          2021,
		URL:           "https://example.org",
		CitationCount: 10,
		Source:        "openalex",
	})

	assert.Equal(t, "Kept Title", p.Title, "existing fields are not overwritten")
	assert.Equal(t, "new abstract", p.Abstract)
	assert.Equal(t, []string{"A", "B"}, p.Authors)
	assert.Equal(t, 2021, p.Year)
	assert.Equal(t, 10, p.CitationCount)
	assert.Equal(t, []string{"openalex"}, p.Sources)

	// Identity and scoring never change on merge.
	assert.Equal(t, "doi:10.1/x", p.ID)
	assert.Equal(t, 0.8, p.Score)
	assert.Equal(t, 1, p.Depth)
}

func TestMergeTakesHighestCitationCount(t *testing.T) {
	p := &Paper{CitationCount: 50}
	p.Merge(RawPaper{CitationCount: 10})
	assert.Equal(t, 50, p.CitationCount)
	p.Merge(RawPaper{CitationCount: 99})
	assert.Equal(t, 99, p.CitationCount)
}

func TestMergeUnionsCitations(t *testing.T) {
	p := &Paper{CitedIDs: []string{"a", "b"}}
	p.Merge(RawPaper{CitedIDs: []string{"b", "c"}})
	assert.Equal(t, []string{"a", "b", "c"}, p.CitedIDs)
}

func TestMergeDeduplicatesSources(t *testing.T) {
	p := &Paper{}
	p.Merge(RawPaper{Source: "openalex"})
	p.Merge(RawPaper{Source: "openalex"})
	p.Merge(RawPaper{Source: "arxiv"})
	assert.Equal(t, []string{"openalex", "arxiv"}, p.Sources)
}

func TestGraphNode(t *testing.T) {
	g := &Graph{Nodes: []Paper{{ID: "a"}, {ID: "b"}}}
	assert.NotNil(t, g.Node("a"))
	assert.Nil(t, g.Node("missing"))
}

func TestGraphSeeds(t *testing.T) {
	g := &Graph{Nodes: []Paper{
		{ID: "s1", Depth: 0},
		{ID: "a", Depth: 1},
		{ID: "s2", Depth: 0},
	}}
	seeds := g.Seeds()
	assert.Len(t, seeds, 2)
	for _, s := range seeds {
		assert.Equal(t, 0, s.Depth)
	}
}
