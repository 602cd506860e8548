// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citegraph exploration
// engine: raw source records, canonical papers, the knowledge graph snapshot,
// and stage configuration.
//
// See docs/ARCHITECTURE § Data Structures.
package types

// RawPaper is a paper record exactly as reported by a single literature
// source. Raw records from different sources may describe the same paper
// under different identifiers; the dedup registry resolves them to one
// canonical Paper before scoring.
type RawPaper struct {
	// ID is the source-native identifier (Semantic Scholar paper ID,
	// OpenAlex work ID, arXiv ID).
	ID string `json:"id" yaml:"id"`

	// DOI is the bare DOI without the https://doi.org/ prefix, if known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the arXiv identifier (e.g. "2301.07041"), if known.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or summary. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URL is a landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// CitationCount is the source-reported number of citing works.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// CitedIDs lists raw identifiers of works this paper cites, as reported
	// by the source. Empty until the citation list has been fetched.
	CitedIDs []string `json:"cited_ids,omitempty" yaml:"cited_ids,omitempty"`

	// Source identifies which client produced this record
	// (e.g. "semantic_scholar", "openalex", "arxiv").
	Source string `json:"source" yaml:"source"`
}

// BestID returns the identifier the dedup registry should canonicalize:
// DOI first, then arXiv ID, then the source-native ID.
func (r RawPaper) BestID() string {
	if r.DOI != "" {
		return r.DOI
	}
	if r.ArxivID != "" {
		return r.ArxivID
	}
	return r.ID
}

// HasText reports whether the record carries any scorable text.
func (r RawPaper) HasText() bool {
	return r.Abstract != "" || r.Title != ""
}

// Paper is a canonical node in the knowledge graph. Records from different
// sources that resolve to the same canonical identifier are merged into one
// Paper: citation lists are unioned and empty fields are filled from
// whichever source has data. Score is immutable once set.
type Paper struct {
	// ID is the canonical identifier, unique within one exploration run.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract. May be empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URL is a landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// CitationCount is the highest citation count reported by any source.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// Sources lists every source that contributed to this record.
	Sources []string `json:"sources" yaml:"sources"`

	// CitedIDs is the union of raw citation identifiers across sources.
	CitedIDs []string `json:"cited_ids,omitempty" yaml:"cited_ids,omitempty"`

	// Score is the relevance score relative to the seed query, in [0,1].
	// Seeds carry 1.0 by convention.
	Score float64 `json:"score" yaml:"score"`

	// Depth is the citation distance from the seed set (seeds are 0).
	Depth int `json:"depth" yaml:"depth"`
}

// Merge fills empty fields of p from r and unions the citation list.
// The canonical ID, score, and depth of p are never touched.
func (p *Paper) Merge(r RawPaper) {
	if p.Title == "" {
		p.Title = r.Title
	}
	if p.Abstract == "" {
		p.Abstract = r.Abstract
	}
	if len(p.Authors) == 0 {
		p.Authors = r.Authors
	}
	if p.Year == 0 {
		p.Year = r.Year
	}
	if p.URL == "" {
		p.URL = r.URL
	}
	if r.CitationCount > p.CitationCount {
		p.CitationCount = r.CitationCount
	}
	if r.Source != "" {
		found := false
		for _, s := range p.Sources {
			if s == r.Source {
				found = true
				break
			}
		}
		if !found {
			p.Sources = append(p.Sources, r.Source)
		}
	}
	have := make(map[string]bool, len(p.CitedIDs))
	for _, id := range p.CitedIDs {
		have[id] = true
	}
	for _, id := range r.CitedIDs {
		if !have[id] {
			p.CitedIDs = append(p.CitedIDs, id)
			have[id] = true
		}
	}
}
