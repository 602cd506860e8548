// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

// countingSource records call counts so tests can tell hits from misses.
type countingSource struct {
	name          string
	papers        map[string]types.RawPaper
	citations     map[string][]string
	paperCalls    int
	citationCalls int
	searchCalls   int
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Search(_ context.Context, _ string, _ int) ([]types.RawPaper, error) {
	s.searchCalls++
	var out []types.RawPaper
	for _, p := range s.papers {
		out = append(out, p)
	}
	return out, nil
}

func (s *countingSource) GetPaper(_ context.Context, id string) (types.RawPaper, error) {
	s.paperCalls++
	p, ok := s.papers[id]
	if !ok {
		return types.RawPaper{}, source.ErrNotFound
	}
	return p, nil
}

func (s *countingSource) GetCitations(_ context.Context, id string) ([]string, error) {
	s.citationCalls++
	return s.citations[id], nil
}

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(types.CacheConfig{
		Path: filepath.Join(t.TempDir(), "cache.db"),
		TTL:  ttl,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPaper(id string) types.RawPaper {
	return types.RawPaper{ID: id, Title: "Paper " + id, Abstract: "text", Year: 2020, Source: "stub"}
}

func TestGetPaperReadThrough(t *testing.T) {
	store := openTestStore(t, 0)
	src := &countingSource{
		name:   "stub",
		papers: map[string]types.RawPaper{"p1": testPaper("p1")},
	}
	cached := store.Wrap(src)

	first, err := cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)

	second, err := cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.paperCalls, "second call must hit the cache")
}

func TestGetCitationsReadThrough(t *testing.T) {
	store := openTestStore(t, 0)
	src := &countingSource{
		name:      "stub",
		citations: map[string][]string{"p1": {"a", "b"}},
	}
	cached := store.Wrap(src)

	refs, err := cached.GetCitations(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, refs)

	refs, err = cached.GetCitations(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, refs)
	assert.Equal(t, 1, src.citationCalls)
}

func TestSearchSeedsTheCache(t *testing.T) {
	store := openTestStore(t, 0)
	src := &countingSource{
		name:   "stub",
		papers: map[string]types.RawPaper{"p1": testPaper("p1")},
	}
	cached := store.Wrap(src)

	_, err := cached.Search(context.Background(), "q", 10)
	require.NoError(t, err)

	// The search result was saved, so this GetPaper needs no fetch.
	_, err = cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, src.paperCalls)
}

func TestFetchErrorsNotCached(t *testing.T) {
	store := openTestStore(t, 0)
	src := &countingSource{name: "stub", papers: map[string]types.RawPaper{}}
	cached := store.Wrap(src)

	_, err := cached.GetPaper(context.Background(), "missing")
	assert.ErrorIs(t, err, source.ErrNotFound)

	// The miss was not recorded; the source is asked again.
	src.papers["missing"] = testPaper("missing")
	got, err := cached.GetPaper(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", got.ID)
	assert.Equal(t, 2, src.paperCalls)
}

func TestTTLExpiry(t *testing.T) {
	store := openTestStore(t, time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	src := &countingSource{
		name:   "stub",
		papers: map[string]types.RawPaper{"p1": testPaper("p1")},
	}
	cached := store.Wrap(src)

	_, err := cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)

	// Still fresh just inside the TTL.
	now = now.Add(59 * time.Minute)
	_, err = cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.paperCalls)

	// Stale past the TTL; the record is refetched.
	now = now.Add(2 * time.Hour)
	_, err = cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, src.paperCalls)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	store := openTestStore(t, 0)
	now := time.Now()
	store.now = func() time.Time { return now }

	src := &countingSource{
		name:   "stub",
		papers: map[string]types.RawPaper{"p1": testPaper("p1")},
	}
	cached := store.Wrap(src)

	_, err := cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)

	now = now.Add(10000 * time.Hour)
	_, err = cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.paperCalls)
}

func TestCacheKeysNamespacedPerSource(t *testing.T) {
	store := openTestStore(t, 0)
	a := &countingSource{
		name:   "a",
		papers: map[string]types.RawPaper{"p1": {ID: "p1", Title: "From A", Source: "a"}},
	}
	b := &countingSource{
		name:   "b",
		papers: map[string]types.RawPaper{"p1": {ID: "p1", Title: "From B", Source: "b"}},
	}
	cachedA := store.Wrap(a)
	cachedB := store.Wrap(b)

	gotA, err := cachedA.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	gotB, err := cachedB.GetPaper(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "From A", gotA.Title)
	assert.Equal(t, "From B", gotB.Title, "colliding ids across sources must not cross-pollute")
}

func TestWrapPreservesName(t *testing.T) {
	store := openTestStore(t, 0)
	src := &countingSource{name: "semantic_scholar"}
	assert.Equal(t, "semantic_scholar", store.Wrap(src).Name())
}

func TestSaveFailureLoggedAndNonFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := Open(types.CacheConfig{
		Path: filepath.Join(t.TempDir(), "cache.db"),
	}, logger)
	require.NoError(t, err)

	src := &countingSource{
		name:      "stub",
		papers:    map[string]types.RawPaper{"p1": testPaper("p1")},
		citations: map[string][]string{"p1": {"a"}},
	}
	cached := store.Wrap(src)

	// A dead database turns every save into a write failure; fetches must
	// still succeed, and the failures must be visible in the debug log.
	require.NoError(t, store.Close())

	got, err := cached.GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	refs, err := cached.GetCitations(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, refs)

	assert.Contains(t, buf.String(), "cache write failed")
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s1, err := Open(types.CacheConfig{Path: path}, nil)
	require.NoError(t, err)
	src := &countingSource{
		name:   "stub",
		papers: map[string]types.RawPaper{"p1": testPaper("p1")},
	}
	_, err = s1.Wrap(src).GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(types.CacheConfig{Path: path}, nil)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Wrap(src).GetPaper(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.paperCalls, "record survives reopening the database")
}
