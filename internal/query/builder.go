// Package query expands an industry/location request into search queries.
package query

import (
	"strings"

	"github.com/sells-group/lead-generator/internal/model"
)

// MaxIndustryQueries caps the specialized queries added after the base query.
const MaxIndustryQueries = 3

// Request is the user-facing input to a lead run.
type Request struct {
	Industry        string   `json:"industry"`
	Location        string   `json:"location"`
	Keywords        []string `json:"additional_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`
}

// Validate checks the required fields.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Industry) == "" {
		return model.NewError(model.ErrInvalidRequest, "industry is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return model.NewError(model.ErrInvalidRequest, "location is required")
	}
	return nil
}

// Label is the audit string recorded with history entries.
func (r Request) Label() string {
	return model.SearchQuery{
		Industry:           r.Industry,
		Location:           r.Location,
		AdditionalKeywords: r.Keywords,
	}.String()
}

// Builder builds search queries from a keyword table.
type Builder struct {
	table *KeywordTable
}

// NewBuilder returns a Builder. A nil table uses DefaultKeywords.
func NewBuilder(table *KeywordTable) *Builder {
	if table == nil {
		table = DefaultKeywords()
	}
	return &Builder{table: table}
}

// Build returns the base query followed by up to MaxIndustryQueries
// industry-specialized queries. Every query keeps the request industry and
// location. Queries with an identical search string are dropped.
func (b *Builder) Build(req Request) ([]model.SearchQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	industry := strings.TrimSpace(req.Industry)
	location := strings.TrimSpace(req.Location)
	exclude := cleanTerms(req.ExcludeKeywords)

	queries := []model.SearchQuery{{
		Industry:           industry,
		Location:           location,
		AdditionalKeywords: cleanTerms(req.Keywords),
		ExcludeKeywords:    exclude,
	}}

	specialized := []string{industry}
	if kw, ok := b.table.Lookup(industry); ok && len(kw.Search) > 0 {
		specialized = kw.Search
	}
	if len(specialized) > MaxIndustryQueries {
		specialized = specialized[:MaxIndustryQueries]
	}

	for _, term := range specialized {
		keywords := make([]string, 0, 1+len(b.table.BaseKeywords))
		if !strings.EqualFold(strings.TrimSpace(term), industry) {
			keywords = append(keywords, term)
		}
		keywords = append(keywords, b.table.BaseKeywords...)
		queries = append(queries, model.SearchQuery{
			Industry:           industry,
			Location:           location,
			AdditionalKeywords: cleanTerms(keywords),
			ExcludeKeywords:    exclude,
		})
	}

	return dedupe(queries), nil
}

func dedupe(queries []model.SearchQuery) []model.SearchQuery {
	seen := make(map[string]struct{}, len(queries))
	out := queries[:0]
	for _, q := range queries {
		key := q.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
