package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/resilience"
	"github.com/sells-group/lead-generator/pkg/jina"
)

// Renderer produces a page for URLs whose static HTML needs script
// execution.
type Renderer interface {
	Render(ctx context.Context, url string) (*model.ScrapedPage, error)
}

// JinaRenderer renders pages through the Jina Reader behind a circuit
// breaker, so a failing Reader is skipped quickly.
type JinaRenderer struct {
	client       jina.Client
	breaker      *resilience.CircuitBreaker
	contentLimit int
}

// NewJinaRenderer creates a JinaRenderer. A nil breaker gets a default one.
func NewJinaRenderer(client jina.Client, breaker *resilience.CircuitBreaker, contentLimit int) *JinaRenderer {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return &JinaRenderer{client: client, breaker: breaker, contentLimit: contentLimit}
}

// Render fetches targetURL through the Reader and parses the text.
func (j *JinaRenderer) Render(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if unusable(resp) {
			return nil, eris.Errorf("scrape: rendered page unusable: %s", targetURL)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "scrape: render")
	}

	page := ParseText(targetURL, resp.Data.Title, resp.Data.Description, resp.Data.Content, j.contentLimit)
	page.Rendered = true
	page.StatusCode = 200
	return page, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// unusable reports whether a Reader response is empty or a challenge page.
func unusable(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len([]rune(content)) < 50 {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
