// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors keyed by input text and counts calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	calls   map[string]int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[text]++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0}, nil
}

func (f *fakeEmbedder) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"scale invariant", []float64{1, 1}, []float64{10, 10}, 1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"mismatched lengths", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRescale(t *testing.T) {
	tests := []struct {
		cos  float64
		want float64
	}{
		{1, 1},
		{-1, 0},
		{0, 0.5},
		{0.5, 0.75},
		{1.0000001, 1}, // clamp rounding spill
		{-1.0000001, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Rescale(tt.cos), 1e-6)
	}
}

func TestScorePrefersAbstract(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"the abstract": {1, 0},
		"the title":    {0, 1},
	}}
	s, err := NewScorer(fake, 16)
	require.NoError(t, err)

	seed := []float64{1, 0}
	got, err := s.Score(context.Background(), "p1", "the abstract", "the title", seed)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
	assert.Equal(t, 1, fake.callCount("the abstract"))
	assert.Equal(t, 0, fake.callCount("the title"))
}

func TestScoreFallsBackToTitle(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"the title": {0, 1},
	}}
	s, err := NewScorer(fake, 16)
	require.NoError(t, err)

	seed := []float64{1, 0}
	got, err := s.Score(context.Background(), "p1", "   ", "the title", seed)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestScoreNoText(t *testing.T) {
	s, err := NewScorer(&fakeEmbedder{}, 16)
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "p1", "", "  ", []float64{1, 0})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestScoreEmbedsOncePerID(t *testing.T) {
	fake := &fakeEmbedder{}
	s, err := NewScorer(fake, 16)
	require.NoError(t, err)

	seed := []float64{1, 0}
	for i := 0; i < 5; i++ {
		_, err := s.Score(context.Background(), "p1", "same text", "", seed)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.callCount("same text"))
}

func TestScoreEmbedderErrorPropagates(t *testing.T) {
	boom := errors.New("embedding service down")
	s, err := NewScorer(&fakeEmbedder{err: boom}, 16)
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "p1", "text", "", []float64{1, 0})
	assert.ErrorIs(t, err, boom)
}

func TestSeedVector(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"graph neural networks": {0.6, 0.8},
	}}
	s, err := NewScorer(fake, 16)
	require.NoError(t, err)

	vec, err := s.SeedVector(context.Background(), "graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 0.8}, vec)

	// Cached on repeat.
	_, err = s.SeedVector(context.Background(), "graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount("graph neural networks"))
}

func TestSeedVectorEmptyQuery(t *testing.T) {
	s, err := NewScorer(&fakeEmbedder{}, 16)
	require.NoError(t, err)

	_, err = s.SeedVector(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestScoreRangeAlwaysValid(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"a": {3, 4},
		"b": {-3, -4},
	}}
	s, err := NewScorer(fake, 16)
	require.NoError(t, err)

	seed := []float64{1, 0}
	for _, text := range []string{"a", "b"} {
		got, err := s.Score(context.Background(), text, text, "", seed)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
		assert.False(t, math.IsNaN(got))
	}
}
