package search

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/resilience"
)

// Engine runs each query against its providers in order, merges the hits
// and caps them.
type Engine struct {
	providers     []Provider
	breakers      *resilience.ServiceBreakers
	limiter       *rate.Limiter
	maxResults    int
	maxConcurrent int
}

// NewEngine creates an Engine. Providers are tried in the given order. A
// nil breakers registry gets a default one.
func NewEngine(providers []Provider, cfg config.SearchConfig, breakers *resilience.ServiceBreakers) *Engine {
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	maxResults := cfg.MaxResultsPerQuery
	if maxResults < 1 {
		maxResults = 20
	}
	return &Engine{
		providers:     providers,
		breakers:      breakers,
		limiter:       newLimiter(cfg.Delay),
		maxResults:    maxResults,
		maxConcurrent: max(cfg.MaxConcurrent, 1),
	}
}

// newLimiter spaces query starts at least delay apart.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Providers returns the configured provider names in order.
func (e *Engine) Providers() []string {
	names := make([]string, len(e.providers))
	for i, p := range e.providers {
		names[i] = p.Name()
	}
	return names
}

// Search runs q against every available provider. A failing or unavailable
// provider contributes zero results; if all fail the result is empty. The
// only error returned is a context error.
func (e *Engine) Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryString := q.ProviderString()
	log := zap.L().With(zap.String("stage", "search"), zap.String("query", queryString))

	var merged []model.SearchResult
	for _, p := range e.providers {
		if len(merged) >= e.maxResults {
			break
		}

		cb := e.breakers.Get(p.Name())
		if !cb.Available() {
			log.Debug("provider unavailable, skipping", zap.String("provider", p.Name()))
			monitoring.RecordSearchError(p.Name(), "circuit_open")
			continue
		}

		results, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) ([]model.SearchResult, error) {
			return p.Search(ctx, queryString, e.maxResults)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("provider search failed", zap.String("provider", p.Name()), zap.Error(err))
			monitoring.RecordSearchError(p.Name(), "error")
			continue
		}

		log.Info("provider returned results", zap.String("provider", p.Name()), zap.Int("count", len(results)))
		monitoring.RecordSearch(p.Name(), len(results))
		merged = append(merged, results...)
	}

	if len(merged) > e.maxResults {
		merged = merged[:e.maxResults]
	}
	return merged, nil
}

// SearchAll runs every query and concatenates the results in query order.
// Duplicates across queries are kept; callers dedupe by URL.
func (e *Engine) SearchAll(ctx context.Context, queries []model.SearchQuery) ([]model.SearchResult, error) {
	res := resilience.FanOut(ctx, e.maxConcurrent, queries, func(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
		return e.Search(ctx, q)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.SearchResult
	for _, rs := range res.Values {
		all = append(all, rs...)
	}
	zap.L().Info("search complete",
		zap.Int("queries", len(queries)),
		zap.Int("results", len(all)),
		zap.Int("failed_queries", len(res.Errors)),
	)
	return all, nil
}
