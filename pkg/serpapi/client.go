// Package serpapi provides a client for the SerpApi search proxy.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://serpapi.com/search.json"

// Client performs SerpApi searches.
type Client interface {
	Search(ctx context.Context, query string, num int) (*SearchResponse, error)
}

// SearchResponse is the subset of the SerpApi response we use.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error,omitempty"`
}

// OrganicResult is one organic hit.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// APIError is a failed SerpApi request, either a non-200 status or an
// error message in a 200 body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: status %d: %s", e.StatusCode, e.Message)
}

// noResultsMarker is how SerpApi reports an empty result page.
const noResultsMarker = "hasn't returned any results"

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithEngine selects the upstream engine (default "google").
func WithEngine(engine string) Option {
	return func(c *httpClient) {
		if engine != "" {
			c.engine = engine
		}
	}
}

// WithLocale sets the interface language (hl) and country (gl).
func WithLocale(hl, gl string) Option {
	return func(c *httpClient) {
		c.hl = hl
		c.gl = gl
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	engine  string
	hl      string
	gl      string
	http    *http.Client
}

// NewClient creates a SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		engine:  "google",
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, num int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	if num > 0 {
		params.Set("num", strconv.Itoa(num))
	}
	if c.hl != "" {
		params.Set("hl", c.hl)
	}
	if c.gl != "" {
		params.Set("gl", c.gl)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	var result SearchResponse
	if jerr := json.Unmarshal(body, &result); jerr != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return nil, eris.Wrap(jerr, "serpapi: unmarshal response")
	}

	if result.Error != "" {
		if strings.Contains(result.Error, noResultsMarker) {
			return &SearchResponse{}, nil
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return &result, nil
}
