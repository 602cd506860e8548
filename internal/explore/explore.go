// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package explore implements the citation-exploration engine: a bounded
// breadth-first traversal outward from seed search results, scoring each
// discovered paper against the seed query and assembling a knowledge graph
// of the admitted ones.
//
// A run moves through four phases: seeding (resolve the query into seed
// papers, admitted unconditionally at score 1.0), expanding (process the
// frontier level by level, so every depth-d paper is fully expanded before
// any depth-d+1 paper), draining (wait out in-flight expansions), and done (the
// graph snapshot is returned and never mutated again).
//
// Candidate fetch and scoring failures are absorbed: they cost the run one
// candidate, never the whole graph. A source that stops answering degrades
// expansion from the affected nodes only. Cancellation propagates into
// governor waits and yields a consistent partial graph tagged incomplete.
//
// See docs/ARCHITECTURE § Exploration.
package explore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/citegraph/internal/dedup"
	"github.com/pdiddy/citegraph/internal/govern"
	"github.com/pdiddy/citegraph/internal/score"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

// ErrNoSeeds reports that the query resolved to zero seed papers. The run
// still returns an empty graph; the caller decides how to surface it.
var ErrNoSeeds = errors.New("no seed papers resolved")

// Engine explores citation graphs. One Engine may serve many runs; all
// per-run state lives inside Run.
type Engine struct {
	gov     *govern.Governor
	scorer  *score.Scorer
	sources []source.Source
	cfg     types.ExploreConfig
	log     *slog.Logger
}

// Request are the caller-supplied parameters for one run.
type Request struct {
	// Query is the research topic or abstract to explore from.
	Query string

	// MaxDepth is how many citation hops to expand (0 = seeds only).
	MaxDepth int

	// Threshold is the minimum relevance score for admission, in [0,1].
	Threshold float64
}

// New returns an Engine over the given sources. A nil logger discards.
func New(gov *govern.Governor, scorer *score.Scorer, sources []source.Source, cfg types.ExploreConfig, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SeedLimit <= 0 {
		cfg.SeedLimit = 10
	}
	return &Engine{gov: gov, scorer: scorer, sources: sources, cfg: cfg, log: log}
}

// frontierEntry is one admitted paper awaiting citation expansion.
type frontierEntry struct {
	canonical string
	// nativeID is the identifier usable with src for citation fetches.
	nativeID string
	src      source.Source
	depth    int
}

// run holds the mutable state of one exploration. The mutex guards papers,
// rejected, edges, and next; network fetches and scoring happen outside it.
type run struct {
	engine    *Engine
	reg       *dedup.Registry
	query     string
	seedVec   []float64
	threshold float64
	log       *slog.Logger

	mu       sync.Mutex
	papers   map[string]*types.Paper
	rejected map[string]bool
	// edges records every observed citation (admitted citer → raw cited id).
	// Raw targets are resolved and filtered to admitted nodes at snapshot
	// time, so a cancelled run can never surface a dangling edge.
	edges []rawEdge
	next  []frontierEntry
}

type rawEdge struct {
	from  string
	rawTo string
}

// Run explores outward from the query and returns the knowledge graph.
// On cancellation the partial graph is returned tagged incomplete, together
// with the context's error. Zero resolved seeds returns an empty graph and
// ErrNoSeeds.
func (e *Engine) Run(ctx context.Context, req Request) (*types.Graph, error) {
	if req.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must be >= 0, got %d", req.MaxDepth)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return nil, fmt.Errorf("relevance threshold must be in [0,1], got %v", req.Threshold)
	}
	if len(e.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	g := &types.Graph{
		RunID:     uuid.NewString(),
		Query:     req.Query,
		MaxDepth:  req.MaxDepth,
		Threshold: req.Threshold,
	}
	log := e.log.With("run", g.RunID)

	seedVec, err := e.scorer.SeedVector(ctx, req.Query)
	if err != nil {
		if ctx.Err() != nil {
			g.Incomplete = "cancelled"
			return g, ctx.Err()
		}
		return nil, fmt.Errorf("embedding seed query: %w", err)
	}

	r := &run{
		engine:    e,
		reg:       dedup.NewRegistry(nil),
		query:     req.Query,
		seedVec:   seedVec,
		threshold: req.Threshold,
		log:       log,
		papers:    make(map[string]*types.Paper),
		rejected:  make(map[string]bool),
	}

	log.Info("seeding", "query", req.Query, "max_depth", req.MaxDepth, "threshold", req.Threshold)
	frontier := r.seed(ctx)
	if len(frontier) == 0 {
		if ctx.Err() != nil {
			g.Incomplete = "cancelled"
			return g, ctx.Err()
		}
		return g, ErrNoSeeds
	}

	for depth := 0; depth < req.MaxDepth && len(frontier) > 0; depth++ {
		log.Info("expanding", "depth", depth, "frontier", len(frontier))
		r.expandLevel(ctx, frontier)

		// Level barrier: expandLevel has drained all depth-d workers, so
		// the next frontier is complete before any depth-d+1 expansion.
		r.mu.Lock()
		frontier = r.next
		r.next = nil
		r.mu.Unlock()

		if ctx.Err() != nil {
			r.snapshot(g)
			g.Incomplete = "cancelled"
			log.Warn("run cancelled", "nodes", len(g.Nodes), "edges", len(g.Edges))
			return g, ctx.Err()
		}
	}

	r.snapshot(g)
	log.Info("done", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

// seed resolves the query into seed papers across all sources concurrently
// and admits them unconditionally at score 1.0, depth 0.
func (r *run) seed(ctx context.Context) []frontierEntry {
	e := r.engine

	type seedBatch struct {
		src     source.Source
		results []types.RawPaper
	}
	ch := make(chan seedBatch, len(e.sources))
	var wg sync.WaitGroup

	for _, src := range e.sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			var results []types.RawPaper
			err := e.gov.Execute(ctx, src.Name(), func(ctx context.Context) error {
				var err error
				results, err = src.Search(ctx, r.query, e.cfg.SeedLimit)
				return err
			})
			if err != nil {
				r.log.Warn("seed search failed", "source", src.Name(), "error", err)
				return
			}
			ch <- seedBatch{src: src, results: results}
		}(src)
	}
	wg.Wait()
	close(ch)

	var frontier []frontierEntry
	for batch := range ch {
		for _, raw := range batch.results {
			if entry, ok := r.admitSeed(raw, batch.src); ok {
				frontier = append(frontier, entry)
			}
		}
	}
	return frontier
}

// admitSeed merges or admits one raw seed record. Seeds carry score 1.0 by
// convention; records with no usable text are dropped, never admitted.
func (r *run) admitSeed(raw types.RawPaper, src source.Source) (frontierEntry, bool) {
	if !raw.HasText() {
		r.log.Debug("seed has no text, skipped", "id", raw.ID, "source", raw.Source)
		return frontierEntry{}, false
	}

	canonical, first := r.reg.Admit(raw.BestID())
	canonical, _ = r.reg.RegisterAlias(canonical, raw.Title, raw.Year)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.papers[canonical]; ok || !first {
		if ok {
			p.Merge(raw)
		}
		return frontierEntry{}, false
	}

	p := &types.Paper{ID: canonical, Score: 1.0, Depth: 0}
	p.Merge(raw)
	r.papers[canonical] = p
	return frontierEntry{canonical: canonical, nativeID: raw.ID, src: src, depth: 0}, true
}

// expandLevel runs all expansions for one depth with bounded workers and
// waits for them; this is the full-depth barrier.
func (r *run) expandLevel(ctx context.Context, frontier []frontierEntry) {
	eg := new(errgroup.Group)
	eg.SetLimit(r.engine.cfg.Workers)

	for _, entry := range frontier {
		entry := entry
		eg.Go(func() error {
			r.expandNode(ctx, entry)
			return nil
		})
	}
	// Workers absorb their own failures; Wait only synchronizes.
	_ = eg.Wait()
}

// expandNode fetches one frontier paper's citation list and processes each
// candidate. A source failure here degrades this node to "no further
// expansion" while the run continues.
func (r *run) expandNode(ctx context.Context, entry frontierEntry) {
	if ctx.Err() != nil {
		return
	}
	e := r.engine

	r.mu.Lock()
	cited := append([]string(nil), r.papers[entry.canonical].CitedIDs...)
	r.mu.Unlock()

	if len(cited) == 0 {
		err := e.gov.Execute(ctx, entry.src.Name(), func(ctx context.Context) error {
			var err error
			cited, err = entry.src.GetCitations(ctx, entry.nativeID)
			return err
		})
		if err != nil {
			r.log.Warn("citation fetch failed, node not expanded",
				"paper", entry.canonical, "source", entry.src.Name(), "error", err)
			return
		}
	}

	if limit := e.cfg.MaxCitationsPerPaper; limit > 0 && len(cited) > limit {
		cited = cited[:limit]
	}

	for _, rawID := range cited {
		if ctx.Err() != nil {
			return
		}
		r.processCandidate(ctx, entry, rawID)
	}
}

// processCandidate runs the dedup/fetch/score/admit sequence for one cited
// identifier. The registry's first-admission guarantee makes the outcome
// independent of which concurrent path discovered the candidate first; the
// citation edge is recorded for every path.
func (r *run) processCandidate(ctx context.Context, from frontierEntry, rawID string) {
	e := r.engine

	r.mu.Lock()
	r.edges = append(r.edges, rawEdge{from: from.canonical, rawTo: rawID})
	r.mu.Unlock()

	canonical, first := r.reg.Admit(rawID)
	if !first {
		// Already admitted, rejected, or being handled by another worker.
		// The decision stands; only the edge above is new.
		return
	}

	var raw types.RawPaper
	err := e.gov.Execute(ctx, from.src.Name(), func(ctx context.Context) error {
		var err error
		raw, err = from.src.GetPaper(ctx, rawID)
		return err
	})
	if err != nil {
		r.log.Warn("candidate fetch failed, skipped",
			"id", rawID, "source", from.src.Name(), "error", err)
		r.reject(canonical)
		return
	}

	// Cross-source aliasing: the fetched title+year may reveal this is a
	// paper we already hold under another identifier.
	primary, merged := r.reg.RegisterAlias(canonical, raw.Title, raw.Year)
	if merged {
		r.mu.Lock()
		if p, ok := r.papers[primary]; ok {
			p.Merge(raw)
		}
		r.mu.Unlock()
		return
	}

	scoreVal, err := e.scorer.Score(ctx, canonical, raw.Abstract, raw.Title, r.seedVec)
	if err != nil {
		if errors.Is(err, score.ErrNoText) {
			r.log.Debug("candidate has no text, skipped", "id", canonical)
		} else {
			r.log.Warn("candidate scoring failed, skipped", "id", canonical, "error", err)
		}
		r.reject(canonical)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if scoreVal < r.threshold {
		r.rejected[canonical] = true
		return
	}
	p := &types.Paper{ID: canonical, Score: scoreVal, Depth: from.depth + 1}
	p.Merge(raw)
	r.papers[canonical] = p
	r.next = append(r.next, frontierEntry{
		canonical: canonical,
		nativeID:  raw.ID,
		src:       from.src,
		depth:     from.depth + 1,
	})
}

func (r *run) reject(canonical string) {
	r.mu.Lock()
	r.rejected[canonical] = true
	r.mu.Unlock()
}

// snapshot materializes the immutable result: nodes sorted by id, edges
// resolved through the registry, filtered to admitted endpoints, deduped,
// with self-edges discarded.
func (r *run) snapshot(g *types.Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g.Nodes = make([]types.Paper, 0, len(r.papers))
	for _, p := range r.papers {
		g.Nodes = append(g.Nodes, *p)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	seen := make(map[types.Edge]bool)
	for _, e := range r.edges {
		to := r.reg.Resolve(e.rawTo)
		if to == e.from {
			continue
		}
		if _, ok := r.papers[e.from]; !ok {
			continue
		}
		if _, ok := r.papers[to]; !ok {
			continue
		}
		edge := types.Edge{From: e.from, To: to}
		if !seen[edge] {
			seen[edge] = true
			g.Edges = append(g.Edges, edge)
		}
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
}
