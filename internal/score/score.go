// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes relevance of candidate papers to a seed query via
// embedding similarity. Embeddings are computed at most once per canonical
// paper id and cached; similarity is cosine, rescaled from [-1,1] to [0,1].
package score

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
)

// ErrNoText reports that a paper carries no scorable text. Such papers
// score 0 and are never admitted, whatever the threshold.
var ErrNoText = errors.New("paper has no usable text")

// Embedder converts text to a vector. Implementations must be deterministic
// for identical input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Scorer scores papers against a seed vector, caching one embedding per
// canonical paper id.
type Scorer struct {
	embedder Embedder
	cache    *lru.Cache[string, []float64]
}

// NewScorer returns a Scorer with a bounded embedding cache. cacheSize <= 0
// uses 4096.
func NewScorer(e Embedder, cacheSize int) (*Scorer, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, []float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &Scorer{embedder: e, cache: cache}, nil
}

// SeedVector embeds the seed query or abstract. Computed once per run by
// the engine and passed to every Score call.
func (s *Scorer) SeedVector(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("seed: %w", ErrNoText)
	}
	return s.vector(ctx, "seed:"+text, text)
}

// Score computes the paper's relevance to the seed in [0,1]. The abstract is
// preferred, falling back to the title. Returns ErrNoText when neither is
// usable.
func (s *Scorer) Score(ctx context.Context, id, abstract, title string, seed []float64) (float64, error) {
	text := strings.TrimSpace(abstract)
	if text == "" {
		text = strings.TrimSpace(title)
	}
	if text == "" {
		return 0, ErrNoText
	}

	vec, err := s.vector(ctx, id, text)
	if err != nil {
		return 0, err
	}
	return Rescale(Cosine(seed, vec)), nil
}

// vector returns the cached embedding for key, computing it on first use.
func (s *Scorer) vector(ctx context.Context, key, text string) ([]float64, error) {
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", key, err)
	}
	s.cache.Add(key, vec)
	return vec, nil
}

// Cosine returns the cosine similarity of two vectors in [-1,1]. Mismatched
// or zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Rescale maps cosine range [-1,1] linearly onto [0,1], clamping rounding
// spill at the ends.
func Rescale(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
