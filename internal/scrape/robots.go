package scrape

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsChecker answers robots.txt questions, parsing each origin's file
// once. Any failure to fetch or parse robots.txt allows the URL.
type RobotsChecker struct {
	fetcher   Fetcher
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewRobotsChecker creates a RobotsChecker that fetches through f.
func NewRobotsChecker(f Fetcher, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		fetcher:   f,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
	}
}

// Allowed reports whether the configured User-Agent may fetch targetURL.
func (r *RobotsChecker) Allowed(ctx context.Context, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := r.load(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return data.FindGroup(r.userAgent).Test(p)
}

func (r *RobotsChecker) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	e, ok := r.cache[origin]
	if !ok {
		e = &robotsEntry{}
		r.cache[origin] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.data = r.fetch(ctx, origin)
	})
	return e.data
}

func (r *RobotsChecker) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	log := zap.L().With(zap.String("origin", origin))

	resp, err := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil || resp == nil || resp.StatusCode != http.StatusOK {
		log.Debug("robots.txt unavailable, allowing", zap.Error(err))
		return nil
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		log.Debug("robots.txt unparseable, allowing", zap.Error(err))
		return nil
	}
	return data
}
