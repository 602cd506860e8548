// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/citegraph/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex API. OpenAlex is DOI-centric and reports
// referenced works inline on each record, so GetCitations costs one
// GetPaper call.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email  string
	Config types.SourceConfig
}

// Name returns the source identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Search queries the works search endpoint.
func (o *OpenAlex) Search(ctx context.Context, query string, limit int) ([]types.RawPaper, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}
	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", limit)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	var oar struct {
		Results []openAlexWork `json:"results"`
	}
	if err := o.getJSON(ctx, openAlexAPIBase+"?"+params.Encode(), &oar); err != nil {
		return nil, err
	}

	results := make([]types.RawPaper, 0, len(oar.Results))
	for _, w := range oar.Results {
		results = append(results, w.toRaw())
	}
	return results, nil
}

// GetPaper fetches a single work. The identifier may be an OpenAlex work ID
// ("W2741809807" or the full URL form) or a bare DOI.
func (o *OpenAlex) GetPaper(ctx context.Context, id string) (types.RawPaper, error) {
	reqURL := openAlexAPIBase + "/" + url.PathEscape(workPath(id))
	if o.Email != "" {
		reqURL += "?mailto=" + url.QueryEscape(o.Email)
	}

	var w openAlexWork
	if err := o.getJSON(ctx, reqURL, &w); err != nil {
		return types.RawPaper{}, err
	}
	return w.toRaw(), nil
}

// GetCitations returns the work's referenced_works identifiers.
func (o *OpenAlex) GetCitations(ctx context.Context, id string) ([]string, error) {
	raw, err := o.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	return raw.CitedIDs, nil
}

// workPath normalizes an identifier for the /works/{id} endpoint: full
// OpenAlex URLs are reduced to the W-number, bare DOIs are passed through
// the doi.org resolver form OpenAlex expects.
func workPath(id string) string {
	if strings.HasPrefix(id, "https://openalex.org/") {
		return strings.TrimPrefix(id, "https://openalex.org/")
	}
	if strings.HasPrefix(id, "10.") {
		return "https://doi.org/" + id
	}
	return id
}

func (o *OpenAlex) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.Config.UserAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(o.Name(), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return nil
}

// OpenAlex API JSON structures.
type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	ReferencedWorks       []string         `json:"referenced_works"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Authorships           []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

func (w openAlexWork) toRaw() types.RawPaper {
	r := types.RawPaper{
		ID:            w.ID,
		Title:         w.Title,
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		Year:          w.PublicationYear,
		URL:           w.ID,
		CitationCount: w.CitedByCount,
		CitedIDs:      w.ReferencedWorks,
		Source:        "openalex",
	}
	// Strip the https://doi.org/ prefix to get the bare DOI.
	if w.DOI != "" {
		r.DOI = strings.TrimPrefix(w.DOI, "https://doi.org/")
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
	}
	return r
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}
