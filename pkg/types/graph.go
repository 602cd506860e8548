// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Edge is a directed citation link between two admitted papers,
// (citing paper → cited paper). Both endpoints are guaranteed to exist in
// the Graph's node set; self-edges are never emitted.
type Edge struct {
	// From is the canonical ID of the citing paper.
	From string `json:"from" yaml:"from"`

	// To is the canonical ID of the cited paper.
	To string `json:"to" yaml:"to"`
}

// Graph is the immutable result of one exploration run: papers keyed by
// canonical ID plus the citation edges between them. The exploration engine
// owns the graph during construction and returns it as a value snapshot;
// no mutation happens after the run finishes.
type Graph struct {
	// RunID uniquely identifies the exploration run that produced the graph.
	RunID string `json:"run_id" yaml:"run_id"`

	// Query is the seed query or abstract the run explored from.
	Query string `json:"query" yaml:"query"`

	// MaxDepth is the depth budget the run was given.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Threshold is the relevance threshold the run admitted papers against.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Nodes lists the admitted papers, sorted by canonical ID.
	Nodes []Paper `json:"nodes" yaml:"nodes"`

	// Edges lists the citation edges, sorted by (from, to) and deduplicated.
	Edges []Edge `json:"edges" yaml:"edges"`

	// Incomplete is empty for a complete run, otherwise the reason the run
	// ended early (e.g. "cancelled").
	Incomplete string `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
}

// Node returns the paper with the given canonical ID, or nil.
func (g *Graph) Node(id string) *Paper {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Seeds returns the depth-0 papers.
func (g *Graph) Seeds() []Paper {
	var seeds []Paper
	for _, n := range g.Nodes {
		if n.Depth == 0 {
			seeds = append(seeds, n)
		}
	}
	return seeds
}
