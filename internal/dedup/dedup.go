// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup tracks which papers an exploration run has already seen,
// across sources with different identifier schemes.
//
// A Registry is created fresh for each run and discarded at run end, so
// concurrent runs never contaminate each other. Identifiers are reduced to a
// canonical form (DOI first, then arXiv ID, then source-native) and a
// secondary key of normalized title plus year catches the case where two
// sources report the same paper under unrelated raw identifiers. Once two
// identifiers are merged, either one resolves to the surviving entry.
package dedup

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Canonicalizer reduces a raw identifier to its canonical form. The default
// recognizes DOIs (with or without the doi.org prefix) and arXiv IDs (with
// or without the arXiv: prefix and version suffix); anything else passes
// through trimmed.
type Canonicalizer func(raw string) string

var (
	doiPattern   = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
	arxivPattern = regexp.MustCompile(`^(?:arxiv:)?(\d{4}\.\d{4,5})(?:v\d+)?$`)
)

// Canonical is the default Canonicalizer. DOIs are lowercased and prefixed
// "doi:", arXiv IDs are stripped of version suffixes and prefixed "arxiv:",
// so the same paper discovered via doi.org URL and bare DOI collide.
func Canonical(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://doi.org/")
	s = strings.TrimPrefix(s, "http://doi.org/")

	lower := strings.ToLower(s)
	if doiPattern.MatchString(lower) {
		return "doi:" + lower
	}
	if m := arxivPattern.FindStringSubmatch(lower); m != nil {
		return "arxiv:" + m[1]
	}
	return s
}

// Registry is the visited set for one exploration run. All methods are safe
// for concurrent use; Admit guarantees at most one first-admission per
// canonical identifier even under racing callers.
type Registry struct {
	canonicalize Canonicalizer

	mu sync.Mutex
	// aliases maps every raw or superseded identifier to the canonical id
	// of its surviving entry.
	aliases map[string]string
	// seen records canonical ids that have been admitted.
	seen map[string]bool
	// secondary maps normalized title+year keys to canonical ids.
	secondary map[string]string
}

// NewRegistry returns an empty registry. A nil canonicalizer uses Canonical.
func NewRegistry(c Canonicalizer) *Registry {
	if c == nil {
		c = Canonical
	}
	return &Registry{
		canonicalize: c,
		aliases:      make(map[string]string),
		seen:         make(map[string]bool),
		secondary:    make(map[string]string),
	}
}

// Admit records the identifier and reports whether this is its first
// admission. The returned canonical id follows any merges already applied,
// so two raw ids aliased to one entry both resolve to it.
func (r *Registry) Admit(raw string) (canonical string, first bool) {
	id := r.canonicalize(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	id = r.resolveLocked(id)
	if r.seen[id] {
		return id, false
	}
	r.seen[id] = true
	return id, true
}

// Resolve returns the canonical id a raw identifier currently maps to,
// without admitting it.
func (r *Registry) Resolve(raw string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(r.canonicalize(raw))
}

// RegisterAlias applies the secondary-key heuristic after a paper's metadata
// has been fetched. If another entry already claimed the same normalized
// title and year, the identifier is merged into it: the earlier entry
// survives, and the merged id becomes an alias of it. Returns the surviving
// canonical id and whether a merge happened.
func (r *Registry) RegisterAlias(canonical, title string, year int) (string, bool) {
	key := secondaryKey(title, year)
	if key == "" {
		return canonical, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.resolveLocked(canonical)
	if primary, ok := r.secondary[key]; ok {
		primary = r.resolveLocked(primary)
		if primary != id {
			r.aliases[id] = primary
			delete(r.seen, id)
			return primary, true
		}
		return id, false
	}
	r.secondary[key] = id
	return id, false
}

// resolveLocked follows alias chains to the surviving canonical id and
// path-compresses as it goes. Caller holds r.mu.
func (r *Registry) resolveLocked(id string) string {
	root := id
	for {
		next, ok := r.aliases[root]
		if !ok {
			break
		}
		root = next
	}
	for id != root {
		next := r.aliases[id]
		r.aliases[id] = root
		id = next
	}
	return root
}

// secondaryKey builds the normalized title+year dedup key. Empty titles
// yield no key; a bare year is not identifying.
func secondaryKey(title string, year int) string {
	norm := normalizeTitle(title)
	if norm == "" {
		return ""
	}
	return fmt.Sprintf("%s|%d", norm, year)
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
