// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists fetched paper records and citation lists in a
// SQLite database, so repeated runs over the same literature stop spending
// API rate budget. The cache wraps a source client below the rate governor:
// hits cost no tokens, misses fall through to the network.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

// Store manages the paper cache database. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	log *slog.Logger

	// now is the clock; tests substitute a fake to exercise expiry.
	now func() time.Time
}

// Open opens or creates the cache database at cfg.Path and ensures the
// schema exists. A nil logger discards.
func Open(cfg types.CacheConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, ttl: cfg.TTL, log: log, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			key TEXT PRIMARY KEY,
			refs TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Wrap returns a read-through caching view of src. Search results pass
// through but are saved, so later GetPaper calls for the same records hit
// the cache.
func (s *Store) Wrap(src source.Source) source.Source {
	return &cachedSource{store: s, src: src}
}

type cachedSource struct {
	store *Store
	src   source.Source
}

func (c *cachedSource) Name() string { return c.src.Name() }

func (c *cachedSource) Search(ctx context.Context, query string, limit int) ([]types.RawPaper, error) {
	results, err := c.src.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		c.store.savePaper(ctx, c.key(r.ID), r)
	}
	return results, nil
}

func (c *cachedSource) GetPaper(ctx context.Context, id string) (types.RawPaper, error) {
	key := c.key(id)
	if raw, ok := c.store.loadPaper(ctx, key); ok {
		return raw, nil
	}
	raw, err := c.src.GetPaper(ctx, id)
	if err != nil {
		return types.RawPaper{}, err
	}
	c.store.savePaper(ctx, key, raw)
	return raw, nil
}

func (c *cachedSource) GetCitations(ctx context.Context, id string) ([]string, error) {
	key := c.key(id)
	if refs, ok := c.store.loadCitations(ctx, key); ok {
		return refs, nil
	}
	refs, err := c.src.GetCitations(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store.saveCitations(ctx, key, refs)
	return refs, nil
}

// key namespaces identifiers per source so clients with colliding ID
// schemes never cross-pollute.
func (c *cachedSource) key(id string) string {
	return c.src.Name() + "|" + id
}

func (s *Store) loadPaper(ctx context.Context, key string) (types.RawPaper, bool) {
	var data, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, fetched_at FROM papers WHERE key = ?`, key,
	).Scan(&data, &fetchedAt)
	if err != nil || s.expired(fetchedAt) {
		return types.RawPaper{}, false
	}

	var raw types.RawPaper
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return types.RawPaper{}, false
	}
	return raw, true
}

// savePaper records the fetched paper. Write failures leave the cache cold
// for this key; the fetched record has already been returned to the caller.
func (s *Store) savePaper(ctx context.Context, key string, raw types.RawPaper) {
	data, err := json.Marshal(raw)
	if err != nil {
		s.log.Debug("cache encode failed", "key", key, "error", err)
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO papers (key, data, fetched_at) VALUES (?, ?, ?)`,
		key, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.log.Debug("cache write failed", "table", "papers", "key", key, "error", err)
	}
}

func (s *Store) loadCitations(ctx context.Context, key string) ([]string, bool) {
	var data, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT refs, fetched_at FROM citations WHERE key = ?`, key,
	).Scan(&data, &fetchedAt)
	if err != nil || s.expired(fetchedAt) {
		return nil, false
	}

	var refs []string
	if err := json.Unmarshal([]byte(data), &refs); err != nil {
		return nil, false
	}
	return refs, true
}

func (s *Store) saveCitations(ctx context.Context, key string, refs []string) {
	data, err := json.Marshal(refs)
	if err != nil {
		s.log.Debug("cache encode failed", "key", key, "error", err)
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO citations (key, refs, fetched_at) VALUES (?, ?, ?)`,
		key, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.log.Debug("cache write failed", "table", "citations", "key", key, "error", err)
	}
}

// expired reports whether a record's timestamp is stale under the TTL.
// A zero TTL means records never expire.
func (s *Store) expired(fetchedAt string) bool {
	if s.ttl <= 0 {
		return false
	}
	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return true
	}
	return s.now().Sub(t) > s.ttl
}
