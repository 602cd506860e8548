// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/citegraph/pkg/types"
)

// semanticAPIBase is the Semantic Scholar graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "paperId,title,abstract,year,url,citationCount,authors,externalIds"

// SemanticScholar queries the Semantic Scholar graph API.
type SemanticScholar struct {
	Client *http.Client
	APIKey string
	Config types.SourceConfig
}

// Name returns the source identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search queries the paper search endpoint.
func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]types.RawPaper, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "/paper/search?" + params.Encode()

	var sr struct {
		Data []semanticPaper `json:"data"`
	}
	if err := s.getJSON(ctx, reqURL, &sr); err != nil {
		return nil, err
	}

	results := make([]types.RawPaper, 0, len(sr.Data))
	for _, p := range sr.Data {
		results = append(results, p.toRaw())
	}
	return results, nil
}

// GetPaper fetches a single paper record. The identifier may be a Semantic
// Scholar paper ID or a prefixed external ID ("DOI:...", "ARXIV:...").
func (s *SemanticScholar) GetPaper(ctx context.Context, id string) (types.RawPaper, error) {
	reqURL := semanticAPIBase + "/paper/" + url.PathEscape(id) + "?fields=" + semanticFields

	var p semanticPaper
	if err := s.getJSON(ctx, reqURL, &p); err != nil {
		return types.RawPaper{}, err
	}
	return p.toRaw(), nil
}

// GetCitations fetches the identifiers of works the paper cites via the
// references endpoint.
func (s *SemanticScholar) GetCitations(ctx context.Context, id string) ([]string, error) {
	reqURL := semanticAPIBase + "/paper/" + url.PathEscape(id) + "/references?fields=paperId&limit=1000"

	var rr struct {
		Data []struct {
			CitedPaper struct {
				PaperID string `json:"paperId"`
			} `json:"citedPaper"`
		} `json:"data"`
	}
	if err := s.getJSON(ctx, reqURL, &rr); err != nil {
		return nil, err
	}

	var ids []string
	for _, d := range rr.Data {
		if d.CitedPaper.PaperID != "" {
			ids = append(ids, d.CitedPaper.PaperID)
		}
	}
	return ids, nil
}

func (s *SemanticScholar) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.Config.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(s.Name(), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return nil
}

// Semantic Scholar API JSON structures.
type semanticPaper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Year          int    `json:"year"`
	URL           string `json:"url"`
	CitationCount int    `json:"citationCount"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
}

func (p semanticPaper) toRaw() types.RawPaper {
	r := types.RawPaper{
		ID:            p.PaperID,
		DOI:           p.ExternalIDs.DOI,
		ArxivID:       p.ExternalIDs.ArXiv,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Year:          p.Year,
		URL:           p.URL,
		CitationCount: p.CitationCount,
		Source:        "semantic_scholar",
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			r.Authors = append(r.Authors, a.Name)
		}
	}
	return r
}
