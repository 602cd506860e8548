// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/citegraph/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. arXiv is useful for seeding a run with
// preprints but publishes no reference lists, so GetCitations always
// returns an empty set and expansion happens through the other sources.
type Arxiv struct {
	Client *http.Client
	Config types.SourceConfig
}

// Name returns the source identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// Search queries the arXiv API sorted by relevance.
func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]types.RawPaper, error) {
	if limit <= 0 {
		limit = 10
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}
	reqURL := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, strings.Join(terms, "+"), limit)

	feed, err := a.getFeed(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var results []types.RawPaper
	for _, entry := range feed.Entries {
		r := entry.toRaw()
		if r.ArxivID == "" {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// GetPaper fetches a single entry by arXiv ID via the id_list parameter.
func (a *Arxiv) GetPaper(ctx context.Context, id string) (types.RawPaper, error) {
	reqURL := fmt.Sprintf("%s?id_list=%s&max_results=1", arxivAPIBase, strings.TrimPrefix(id, "arXiv:"))

	feed, err := a.getFeed(ctx, reqURL)
	if err != nil {
		return types.RawPaper{}, err
	}
	for _, entry := range feed.Entries {
		r := entry.toRaw()
		if r.ArxivID != "" {
			return r, nil
		}
	}
	return types.RawPaper{}, fmt.Errorf("arxiv: %w", ErrNotFound)
}

// GetCitations returns nil: arXiv does not expose reference lists.
func (a *Arxiv) GetCitations(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (a *Arxiv) getFeed(ctx context.Context, reqURL string) (*arxivFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.Config.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(a.Name(), resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return &feed, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

func (e arxivEntry) toRaw() types.RawPaper {
	arxivID := extractArxivID(e.ID)
	r := types.RawPaper{
		ID:       arxivID,
		ArxivID:  arxivID,
		Title:    strings.TrimSpace(e.Title),
		Abstract: strings.TrimSpace(e.Summary),
		URL:      e.ID,
		Source:   "arxiv",
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		r.Year = t.Year()
	}
	return r
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
