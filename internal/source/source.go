// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries academic literature APIs for paper records and
// citation lists. Each client (Semantic Scholar, OpenAlex, arXiv) implements
// the Source interface per the Strategy pattern; the exploration engine
// treats them as interchangeable.
//
// Clients never retry: throttling responses surface as ErrThrottled so the
// rate governor can apply backoff, and missing papers surface as ErrNotFound
// so callers can skip them without retrying.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/citegraph/pkg/types"
)

// Source is a single literature API.
type Source interface {
	Name() string

	// Search returns up to limit paper records matching the query.
	Search(ctx context.Context, query string, limit int) ([]types.RawPaper, error)

	// GetPaper returns the record for a source-native or external
	// identifier. Returns ErrNotFound when the source has no such paper.
	GetPaper(ctx context.Context, id string) (types.RawPaper, error)

	// GetCitations returns the raw identifiers of works the paper cites.
	// Sources without reference data return an empty list.
	GetCitations(ctx context.Context, id string) ([]string, error)
}

// ErrNotFound reports that the source has no record for the identifier.
var ErrNotFound = errors.New("paper not found")

// ErrThrottled reports a rate-limiting response from the source. The rate
// governor backs off and retries on it; every other error passes through.
var ErrThrottled = errors.New("source throttled the request")

// statusError maps an HTTP status to the right sentinel. 429 and 503 are
// throttling signals, 404 is a missing paper, anything else is terminal.
func statusError(name string, code int) error {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%s returned HTTP %d: %w", name, code, ErrThrottled)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	default:
		return fmt.Errorf("%s returned HTTP %d", name, code)
	}
}
