// Package scrape fetches and parses candidate company pages with bounded
// concurrency, retries and robots.txt compliance.
package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/resilience"
)

// WebScraper turns URLs into ScrapedPages. All fetches made through one
// WebScraper share a single gate of maxConcurrent slots, whichever caller
// issues them.
type WebScraper struct {
	fetcher       Fetcher
	gate          *semaphore.Weighted
	robots        *RobotsChecker
	renderer      Renderer
	matcher       *PathMatcher
	retry         resilience.RetryConfig
	maxConcurrent int
	contentLimit  int
}

// Option configures a WebScraper.
type Option func(*WebScraper)

// WithFetcher replaces the default HTTPFetcher.
func WithFetcher(f Fetcher) Option {
	return func(s *WebScraper) { s.fetcher = f }
}

// WithRenderer enables the render fallback for script-built pages.
func WithRenderer(r Renderer) Option {
	return func(s *WebScraper) { s.renderer = r }
}

// WithPathMatcher replaces the default document/media filter.
func WithPathMatcher(m *PathMatcher) Option {
	return func(s *WebScraper) { s.matcher = m }
}

// New creates a WebScraper from scrape config.
func New(cfg config.ScrapeConfig, opts ...Option) *WebScraper {
	s := &WebScraper{
		matcher:       NewPathMatcher(nil),
		retry:         resilience.FromScrapeConfig(cfg),
		maxConcurrent: max(cfg.MaxConcurrent, 1),
		contentLimit:  cfg.ContentLimit,
	}
	s.retry.OnRetry = resilience.RetryLogger("scrape", "fetch")
	for _, o := range opts {
		o(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(cfg)
	}
	s.gate = semaphore.NewWeighted(int64(s.maxConcurrent))
	if cfg.RespectRobotsTxt {
		s.robots = NewRobotsChecker(s.fetcher, cfg.UserAgent)
	}
	return s
}

// Scrape fetches and parses one URL. It returns (nil, nil) when robots.txt
// disallows the URL or the path is filtered out.
func (s *WebScraper) Scrape(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	start := time.Now()
	page, outcome, err := s.scrape(ctx, targetURL)
	monitoring.RecordScrape(outcome, time.Since(start))
	return page, err
}

func (s *WebScraper) scrape(ctx context.Context, targetURL string) (*model.ScrapedPage, string, error) {
	log := zap.L().With(zap.String("stage", "scrape"), zap.String("url", targetURL))

	if s.matcher.IsExcluded(targetURL) {
		log.Debug("url filtered by path")
		return nil, monitoring.ScrapeFiltered, nil
	}
	if s.robots != nil && !s.robots.Allowed(ctx, targetURL) {
		log.Info("robots.txt disallows url")
		return nil, monitoring.ScrapeRobotsDenied, nil
	}

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*Response, error) {
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.gate.Release(1)
		return s.fetcher.Fetch(ctx, targetURL)
	})
	if err != nil {
		var se *resilience.StatusError
		if errors.As(err, &se) {
			return nil, monitoring.ScrapeHTTPError, eris.Wrapf(err, "scrape: %s", targetURL)
		}
		return nil, monitoring.ScrapeFailed, eris.Wrapf(err, "scrape: %s", targetURL)
	}
	if !isHTML(resp.ContentType) {
		return nil, monitoring.ScrapeFailed, eris.Errorf("scrape: unsupported content type %q: %s", resp.ContentType, targetURL)
	}

	if block := DetectBlock(resp.Body); block != BlockNone && s.renderer != nil {
		rendered, rerr := s.renderer.Render(ctx, targetURL)
		if rerr == nil {
			log.Debug("using rendered page", zap.String("block", string(block)))
			return rendered, monitoring.ScrapeOK, nil
		}
		log.Debug("render fallback failed, keeping static html", zap.Error(rerr))
	}

	page, err := Parse(targetURL, resp.Body, s.contentLimit)
	if err != nil {
		return nil, monitoring.ScrapeFailed, err
	}
	page.StatusCode = resp.StatusCode
	return page, monitoring.ScrapeOK, nil
}

// ScrapeURLs scrapes every URL with at most maxConcurrent fetches in flight
// and returns the successful pages in input order. Failures and skipped
// URLs are logged and left out.
func (s *WebScraper) ScrapeURLs(ctx context.Context, urls []string) []model.ScrapedPage {
	res := resilience.FanOut(ctx, s.maxConcurrent, urls, func(ctx context.Context, u string) (model.ScrapedPage, error) {
		page, err := s.Scrape(ctx, u)
		if err != nil {
			zap.L().Debug("scrape failed", zap.String("url", u), zap.Error(err))
			return model.ScrapedPage{}, err
		}
		if page == nil {
			return model.ScrapedPage{}, resilience.ErrSkip
		}
		return *page, nil
	})

	zap.L().Info("scrape complete",
		zap.Int("requested", len(urls)),
		zap.Int("scraped", len(res.Values)),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Errors)),
	)
	return res.Values
}

// ScrapeAll scrapes the URL of every search result.
func (s *WebScraper) ScrapeAll(ctx context.Context, results []model.SearchResult) []model.ScrapedPage {
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	return s.ScrapeURLs(ctx, urls)
}
