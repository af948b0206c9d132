// Package search runs queries against an ordered list of search providers.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/resilience"
	"github.com/sells-group/lead-generator/pkg/google"
	"github.com/sells-group/lead-generator/pkg/jina"
	"github.com/sells-group/lead-generator/pkg/serpapi"
)

// Source tags stamped on results.
const (
	SourceGoogle  = "google_custom"
	SourceSerpAPI = "serpapi"
	SourceJina    = "jina"
)

// Provider is one search backend. An error means the provider could not
// answer; an empty slice means it answered with zero hits.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]model.SearchResult, error)
}

// GoogleProvider adapts the Custom Search client.
type GoogleProvider struct {
	client google.Client
}

// NewGoogleProvider wraps c.
func NewGoogleProvider(c google.Client) *GoogleProvider {
	return &GoogleProvider{client: c}
}

func (p *GoogleProvider) Name() string { return SourceGoogle }

func (p *GoogleProvider) Search(ctx context.Context, query string, max int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, query, min(max, google.MaxNum))
	if err != nil {
		var apiErr *google.APIError
		if errors.As(err, &apiErr) {
			return nil, unavailable(p.Name(), apiErr.StatusCode, err)
		}
		return nil, unavailable(p.Name(), 0, err)
	}

	out := make([]model.SearchResult, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = appendResult(out, it.Title, it.Link, it.Snippet, p.Name())
	}
	return out, nil
}

// SerpAPIProvider adapts the SerpApi client.
type SerpAPIProvider struct {
	client serpapi.Client
}

// NewSerpAPIProvider wraps c.
func NewSerpAPIProvider(c serpapi.Client) *SerpAPIProvider {
	return &SerpAPIProvider{client: c}
}

func (p *SerpAPIProvider) Name() string { return SourceSerpAPI }

func (p *SerpAPIProvider) Search(ctx context.Context, query string, max int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, query, min(max, 10))
	if err != nil {
		var apiErr *serpapi.APIError
		if errors.As(err, &apiErr) {
			return nil, unavailable(p.Name(), apiErr.StatusCode, err)
		}
		return nil, unavailable(p.Name(), 0, err)
	}

	out := make([]model.SearchResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		out = appendResult(out, r.Title, r.Link, r.Snippet, p.Name())
	}
	return out, nil
}

// JinaProvider adapts Jina Search.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps c.
func NewJinaProvider(c jina.Client) *JinaProvider {
	return &JinaProvider{client: c}
}

func (p *JinaProvider) Name() string { return SourceJina }

func (p *JinaProvider) Search(ctx context.Context, query string, max int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, query)
	if err != nil {
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, unavailable(p.Name(), apiErr.StatusCode, err)
		}
		return nil, unavailable(p.Name(), 0, err)
	}

	out := make([]model.SearchResult, 0, len(resp.Data))
	for _, r := range resp.Data {
		if len(out) >= max {
			break
		}
		snippet := r.Description
		if snippet == "" {
			snippet = truncate(r.Content, 200)
		}
		out = appendResult(out, r.Title, r.URL, snippet, p.Name())
	}
	return out, nil
}

// appendResult adds a hit with a 1-based position, skipping blank URLs.
func appendResult(out []model.SearchResult, title, link, snippet, source string) []model.SearchResult {
	link = strings.TrimSpace(link)
	if link == "" {
		return out
	}
	return append(out, model.SearchResult{
		Title:    strings.TrimSpace(title),
		URL:      link,
		Snippet:  strings.TrimSpace(snippet),
		Source:   source,
		Position: len(out) + 1,
	})
}

// unavailable tags a provider failure. Rate limits and server errors are
// marked transient so they count against the provider's circuit.
func unavailable(name string, status int, err error) error {
	if resilience.IsTransientHTTPStatus(status) {
		err = resilience.NewTransientError(err, status)
	}
	return model.WrapError(model.ErrProviderUnavailable, name+" search", eris.Wrap(err, "search: provider"))
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
