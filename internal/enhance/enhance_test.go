package enhance

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/scrape"
)

type mockScraper struct {
	mock.Mock
}

func (m *mockScraper) ScrapeURLs(ctx context.Context, urls []string) []model.ScrapedPage {
	args := m.Called(ctx, urls)
	pages, _ := args.Get(0).([]model.ScrapedPage)
	return pages
}

type mockAugmenter struct {
	mock.Mock
}

func (m *mockAugmenter) Enhance(ctx context.Context, c model.CompanyInfo, text string) (model.CompanyInfo, error) {
	args := m.Called(ctx, c, text)
	return args.Get(0).(model.CompanyInfo), args.Error(1)
}

func enabled() config.EnhanceConfig {
	return config.EnhanceConfig{Enabled: true, MaxPages: 5, PageChars: 500, TotalChars: 3000, MaxConcurrent: 2}
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://www.acme.co.jp/about":   "acme.co.jp",
		"https://shop.example.com:8443/": "example.com",
		"http://WWW.Example.JP":          "example.jp",
		"https://127.0.0.1:8080/":        "",
		"not a url":                      "",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, RegistrableDomain(in), in)
	}
}

func TestCandidateEmails(t *testing.T) {
	t.Parallel()

	got := CandidateEmails("https://www.acme.co.jp/company/")
	require.Len(t, got, len(EmailPrefixes))
	assert.Equal(t, "info@acme.co.jp", got[0])
	assert.Equal(t, "ask@acme.co.jp", got[len(got)-1])

	assert.Nil(t, CandidateEmails("mailto:x"))
}

func TestInferEmails(t *testing.T) {
	t.Parallel()

	t.Run("promotes first candidate", func(t *testing.T) {
		c := model.CompanyInfo{URL: "https://acme.jp"}
		InferEmails(&c)
		assert.Equal(t, "info@acme.jp", c.ContactEmail)
		assert.Len(t, c.AdditionalEmails, len(EmailPrefixes)-1)
		assert.Equal(t, "contact@acme.jp", c.AdditionalEmails[0])
	})

	t.Run("keeps existing contact and skips known", func(t *testing.T) {
		c := model.CompanyInfo{
			URL:              "https://acme.jp",
			ContactEmail:     "ceo@acme.jp",
			AdditionalEmails: []string{"SALES@acme.jp"},
		}
		InferEmails(&c)
		assert.Equal(t, "ceo@acme.jp", c.ContactEmail)
		assert.Len(t, c.AdditionalEmails, 1+len(EmailPrefixes)-1)
		assert.Equal(t, "SALES@acme.jp", c.AdditionalEmails[0])
		for _, e := range c.AdditionalEmails[1:] {
			assert.NotEqual(t, "sales@acme.jp", e)
		}
	})

	t.Run("contact already a candidate", func(t *testing.T) {
		c := model.CompanyInfo{URL: "https://acme.jp", ContactEmail: "info@acme.jp"}
		InferEmails(&c)
		assert.Equal(t, "info@acme.jp", c.ContactEmail)
		assert.NotContains(t, c.AdditionalEmails, "info@acme.jp")
		assert.Len(t, c.AdditionalEmails, len(EmailPrefixes)-1)
	})

	t.Run("no domain", func(t *testing.T) {
		c := model.CompanyInfo{CompanyName: "No URL"}
		InferEmails(&c)
		assert.Empty(t, c.ContactEmail)
		assert.Empty(t, c.AdditionalEmails)
	})
}

func TestAuxiliaryURLs(t *testing.T) {
	t.Parallel()

	got := AuxiliaryURLs("https://www.acme.jp/products/widget?id=1")
	require.Len(t, got, len(AuxiliaryPaths))
	assert.Equal(t, "https://www.acme.jp/about", got[0])
	assert.Equal(t, []string{
		"https://www.acme.jp/about",
		"https://www.acme.jp/company",
		"https://www.acme.jp/contact",
		"https://www.acme.jp/services",
		"https://www.acme.jp/careers",
	}, got[:5])

	assert.Nil(t, AuxiliaryURLs("ftp://acme.jp"))
	assert.Nil(t, AuxiliaryURLs(""))
}

func TestEnhance_CrawlsAndMerges(t *testing.T) {
	ms := &mockScraper{}
	ma := &mockAugmenter{}

	ms.On("ScrapeURLs", mock.Anything, mock.MatchedBy(func(urls []string) bool {
		return len(urls) == 5 && urls[0] == "https://acme.jp/about"
	})).Return([]model.ScrapedPage{
		{URL: "https://acme.jp/about", Content: strings.Repeat("あ", 800)},
		{URL: "https://acme.jp/company", Content: ""},
		{URL: "https://acme.jp/contact", Content: "TEL 03-1111-2222"},
	})

	var gotText string
	ma.On("Enhance", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotText = args.String(2) }).
		Return(model.CompanyInfo{CompanyName: "Acme", URL: "https://acme.jp", Phone: "03-1111-2222"}, nil)

	e := New(ms, ma, enabled())
	got := e.Enhance(context.Background(), model.CompanyInfo{CompanyName: "Acme", URL: "https://acme.jp"})

	assert.Equal(t, "03-1111-2222", got.Phone)
	assert.Contains(t, gotText, "\n--- https://acme.jp/about ---\n")
	assert.Contains(t, gotText, "\n--- https://acme.jp/contact ---\nTEL 03-1111-2222")
	assert.NotContains(t, gotText, "https://acme.jp/company")
	assert.Equal(t, 500, strings.Count(gotText, "あ"))

	// The augmenter sees the record after email inference.
	passed := ma.Calls[0].Arguments.Get(1).(model.CompanyInfo)
	assert.Equal(t, "info@acme.jp", passed.ContactEmail)
}

func TestEnhance_TotalCap(t *testing.T) {
	ms := &mockScraper{}
	ma := &mockAugmenter{}

	pages := make([]model.ScrapedPage, 5)
	for i := range pages {
		pages[i] = model.ScrapedPage{URL: "https://acme.jp/p", Content: strings.Repeat("x", 1000)}
	}
	ms.On("ScrapeURLs", mock.Anything, mock.Anything).Return(pages)

	var gotText string
	ma.On("Enhance", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotText = args.String(2) }).
		Return(model.CompanyInfo{}, nil)

	cfg := enabled()
	cfg.TotalChars = 1200
	New(ms, ma, cfg).Enhance(context.Background(), model.CompanyInfo{URL: "https://acme.jp"})
	assert.Equal(t, 1200, len([]rune(gotText)))
}

func TestEnhance_FailuresKeepRecord(t *testing.T) {
	t.Run("augment error", func(t *testing.T) {
		ms := &mockScraper{}
		ma := &mockAugmenter{}
		ms.On("ScrapeURLs", mock.Anything, mock.Anything).Return([]model.ScrapedPage{{URL: "https://acme.jp/about", Content: "about"}})
		ma.On("Enhance", mock.Anything, mock.Anything, mock.Anything).Return(model.CompanyInfo{}, errors.New("model down"))

		got := New(ms, ma, enabled()).Enhance(context.Background(), model.CompanyInfo{CompanyName: "Acme", URL: "https://acme.jp"})
		assert.Equal(t, "Acme", got.CompanyName)
		assert.Equal(t, "info@acme.jp", got.ContactEmail)
	})

	t.Run("nothing scraped", func(t *testing.T) {
		ms := &mockScraper{}
		ma := &mockAugmenter{}
		ms.On("ScrapeURLs", mock.Anything, mock.Anything).Return(nil)

		got := New(ms, ma, enabled()).Enhance(context.Background(), model.CompanyInfo{CompanyName: "Acme", URL: "https://acme.jp"})
		assert.Equal(t, "Acme", got.CompanyName)
		ma.AssertNotCalled(t, "Enhance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("panic", func(t *testing.T) {
		ms := &mockScraper{}
		ms.On("ScrapeURLs", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })

		orig := model.CompanyInfo{CompanyName: "Acme", URL: "https://acme.jp"}
		got := New(ms, &mockAugmenter{}, enabled()).Enhance(context.Background(), orig)
		assert.Equal(t, orig, got)
	})
}

func TestEnhance_DisabledSkipsCrawl(t *testing.T) {
	ms := &mockScraper{}
	cfg := enabled()
	cfg.Enabled = false

	got := New(ms, &mockAugmenter{}, cfg).Enhance(context.Background(), model.CompanyInfo{URL: "https://acme.jp"})
	assert.Equal(t, "info@acme.jp", got.ContactEmail)
	ms.AssertNotCalled(t, "ScrapeURLs", mock.Anything, mock.Anything)
}

func TestEnhanceAll_PreservesOrderAndCount(t *testing.T) {
	ms := &mockScraper{}
	ma := &mockAugmenter{}
	ms.On("ScrapeURLs", mock.Anything, mock.MatchedBy(func(urls []string) bool {
		return strings.HasPrefix(urls[0], "https://b.jp")
	})).Run(func(mock.Arguments) { panic("b exploded") })
	ms.On("ScrapeURLs", mock.Anything, mock.Anything).Return(nil)

	in := []model.CompanyInfo{
		{CompanyName: "A", URL: "https://a.jp"},
		{CompanyName: "B", URL: "https://b.jp"},
		{CompanyName: "C", URL: "https://c.jp"},
	}
	got := New(ms, ma, enabled()).EnhanceAll(context.Background(), in)

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].CompanyName)
	assert.Equal(t, "info@a.jp", got[0].ContactEmail)
	assert.Equal(t, in[1], got[1])
	assert.Equal(t, "C", got[2].CompanyName)
}

// countingFetcher serves a small page after a delay and records the peak
// number of fetches in flight.
type countingFetcher struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (*scrape.Response, error) {
	f.mu.Lock()
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &scrape.Response{
		URL:         url,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte(`<html><head><title>会社概要</title></head><body><main><p>会社概要ページ</p></main></body></html>`),
	}, nil
}

func TestEnhanceAll_SharesScraperFetchLimit(t *testing.T) {
	f := &countingFetcher{}
	scraper := scrape.New(config.ScrapeConfig{
		MaxRetries:    1,
		MaxConcurrent: 5,
		ContentLimit:  1000,
	}, scrape.WithFetcher(f))

	ma := &mockAugmenter{}
	ma.On("Enhance", mock.Anything, mock.Anything, mock.Anything).Return(model.CompanyInfo{}, errors.New("no model"))

	cfg := enabled()
	cfg.MaxConcurrent = 3
	got := New(scraper, ma, cfg).EnhanceAll(context.Background(), []model.CompanyInfo{
		{CompanyName: "A", URL: "https://a.jp"},
		{CompanyName: "B", URL: "https://b.jp"},
		{CompanyName: "C", URL: "https://c.jp"},
	})

	require.Len(t, got, 3)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 5, f.peak)
}
