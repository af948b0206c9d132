package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/resilience"
)

// Response is a fetched HTTP response with a UTF-8 body.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Fetcher retrieves a single URL. A non-200 status is returned as an error
// together with the response.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher fetches pages with net/http, a fixed User-Agent, and a body
// size cap. Bodies in legacy encodings (Shift_JIS, EUC-JP) are decoded to
// UTF-8.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher creates an HTTPFetcher from scrape config.
func NewHTTPFetcher(cfg config.ScrapeConfig) *HTTPFetcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch performs a GET request for targetURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	ct := resp.Header.Get("Content-Type")
	out := &Response{
		URL:         targetURL,
		StatusCode:  resp.StatusCode,
		ContentType: ct,
		Header:      resp.Header,
		Body:        decodeBody(raw, ct),
	}

	if resp.StatusCode != http.StatusOK {
		return out, resilience.HTTPError(resp.StatusCode, targetURL)
	}
	return out, nil
}

// decodeBody converts raw to UTF-8 using the Content-Type charset or the
// document's meta tags. Undecodable input is returned unchanged.
func decodeBody(raw []byte, contentType string) []byte {
	if len(raw) == 0 {
		return raw
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return decoded
}

// isHTML reports whether a Content-Type can be parsed as a page. An empty
// type is accepted.
func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "html") || strings.Contains(ct, "text/plain")
}
