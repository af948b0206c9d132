package model

import "strings"

// SearchQuery is one search request built from an industry/location pair.
// Treat it as immutable once built.
type SearchQuery struct {
	Industry           string   `json:"industry"`
	Location           string   `json:"location"`
	AdditionalKeywords []string `json:"additional_keywords"`
	ExcludeKeywords    []string `json:"exclude_keywords,omitempty"`
}

// String returns the canonical search string: industry, location, and
// keywords joined by single spaces.
func (q SearchQuery) String() string {
	parts := make([]string, 0, 2+len(q.AdditionalKeywords))
	for _, p := range append([]string{q.Industry, q.Location}, q.AdditionalKeywords...) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ProviderString is String plus "-term" tokens for every exclude keyword,
// the operator syntax both search APIs understand.
func (q SearchQuery) ProviderString() string {
	s := q.String()
	for _, ex := range q.ExcludeKeywords {
		if ex = strings.TrimSpace(ex); ex != "" {
			s += " -" + ex
		}
	}
	return s
}

// SearchResult is a single organic hit returned by a search provider.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Source   string `json:"search_engine"`
	Position int    `json:"position"`
}

// DedupeResults drops results whose URL was already seen, keeping the
// first occurrence and the original order.
func DedupeResults(results []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
