package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/query"
)

type testMocks struct {
	searcher  *mockSearcher
	scraper   *mockScraper
	extractor *mockExtractor
	enhancer  *mockEnhancer
	history   *mockHistory
}

func newTestPipeline(t *testing.T, cfg config.PipelineConfig) (*Pipeline, *testMocks) {
	t.Helper()
	m := &testMocks{
		searcher:  &mockSearcher{},
		scraper:   &mockScraper{},
		extractor: &mockExtractor{},
		enhancer:  &mockEnhancer{},
		history:   &mockHistory{},
	}
	t.Cleanup(func() {
		m.searcher.AssertExpectations(t)
		m.scraper.AssertExpectations(t)
		m.extractor.AssertExpectations(t)
		m.enhancer.AssertExpectations(t)
		m.history.AssertExpectations(t)
	})
	p := New(cfg, Stages{
		Searcher:  m.searcher,
		Scraper:   m.scraper,
		Extractor: m.extractor,
		Enhancer:  m.enhancer,
		History:   m.history,
	})
	p.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return p, m
}

func defaultCfg() config.PipelineConfig {
	return config.PipelineConfig{MaxResults: 50, ExcludeHistory: true, TopLeads: 10}
}

func itRequest() query.Request {
	return query.Request{Industry: "IT", Location: "東京", Keywords: []string{"SaaS"}}
}

func searchResults() []model.SearchResult {
	return []model.SearchResult{
		{Title: "Alpha", URL: "https://alpha.co.jp", Source: "google", Position: 1},
		{Title: "Beta", URL: "https://beta.example.xyz", Source: "google", Position: 2},
		{Title: "Alpha again", URL: "https://alpha.co.jp", Source: "serpapi", Position: 1},
	}
}

func scrapedPages() []model.ScrapedPage {
	return []model.ScrapedPage{
		{URL: "https://alpha.co.jp", Title: "Alpha", Content: "alpha"},
		{URL: "https://beta.example.xyz", Title: "Beta", Content: "beta", IsWordPress: true},
	}
}

func companies() []model.CompanyInfo {
	return []model.CompanyInfo{
		{CompanyName: "Beta", URL: "https://beta.example.xyz"},
		{
			CompanyName:  "Alpha",
			URL:          "https://alpha.co.jp",
			Industry:     "IT",
			Location:     "東京都千代田区",
			ContactEmail: "info@alpha.co.jp",
			BusinessSize: model.BusinessSizeMedium,
		},
	}
}

func TestRun_FullFlow(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	ctx := context.Background()

	m.searcher.On("SearchAll", ctx, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", ctx, mock.MatchedBy(func(rs []model.SearchResult) bool {
		return len(rs) == 2
	})).Return(scrapedPages())
	m.extractor.On("ExtractAll", ctx, scrapedPages()).Return(companies())
	m.history.On("FilterNew", ctx, companies()).Return(companies(), nil)
	m.enhancer.On("EnhanceAll", ctx, companies()).Return(companies())
	m.history.On("Record", ctx, companies(), "IT 東京 SaaS").Return(2, nil)

	result := p.Run(ctx, itRequest())

	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.Error)
	_, err := uuid.Parse(result.RunID)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), result.Timestamp)
	assert.Equal(t, SearchInfo{Industry: "IT", Location: "東京", AdditionalKeywords: []string{"SaaS"}}, result.SearchInfo)

	require.Len(t, result.Leads, 2)
	assert.Equal(t, 2, result.LeadsCount)
	assert.Equal(t, "Alpha", result.Leads[0].Company.CompanyName)
	assert.Equal(t, "Beta", result.Leads[1].Company.CompanyName)
	assert.Len(t, result.TopLeads, 2)

	require.NotNil(t, result.Statistics)
	assert.Equal(t, 2, result.Statistics.TotalLeads)
	assert.Equal(t, result.Leads[0].TotalScore, result.Statistics.ScoreStats.Max)

	var names []string
	for _, s := range result.Stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"search", "scrape", "extract", "history_filter", "enhance", "history_record", "score"}, names)
	assert.Equal(t, 2, result.Stages[0].Out)
}

func TestRun_InvalidRequest(t *testing.T) {
	p, _ := newTestPipeline(t, defaultCfg())

	result := p.Run(context.Background(), query.Request{Location: "東京"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrInvalidRequest, result.ErrorKind)
	assert.Contains(t, result.Error, "industry is required")
	assert.Empty(t, result.Stages)
}

func TestRun_NoSearchResults(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(nil, nil)

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, MsgNoSearchResults, result.Error)
	assert.Equal(t, model.ErrAllResultsExhausted, result.ErrorKind)
	assert.Nil(t, result.Statistics)
	m.scraper.AssertNotCalled(t, "ScrapeAll", mock.Anything, mock.Anything)
}

func TestRun_SearchError(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrProviderUnavailable, result.ErrorKind)
	assert.Contains(t, result.Error, "context canceled")
}

func TestRun_NoScrapedData(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(nil)

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, MsgNoScrapedData, result.Error)
	m.extractor.AssertNotCalled(t, "ExtractAll", mock.Anything, mock.Anything)
}

func TestRun_WordPressOnly(t *testing.T) {
	cfg := defaultCfg()
	cfg.WordPressOnly = true
	cfg.ExcludeHistory = false
	p, m := newTestPipeline(t, cfg)

	wp := []model.ScrapedPage{scrapedPages()[1]}
	beta := []model.CompanyInfo{companies()[0]}

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, wp).Return(beta)
	m.enhancer.On("EnhanceAll", mock.Anything, beta).Return(beta)
	m.history.On("Record", mock.Anything, beta, "IT 東京 SaaS").Return(1, nil)

	result := p.Run(context.Background(), itRequest())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.LeadsCount)
	m.history.AssertNotCalled(t, "FilterNew", mock.Anything, mock.Anything)
}

func TestRun_NoWordPressSites(t *testing.T) {
	cfg := defaultCfg()
	cfg.WordPressOnly = true
	p, m := newTestPipeline(t, cfg)

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return([]model.ScrapedPage{scrapedPages()[0]})

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, MsgNoWordPressSites, result.Error)
}

func TestRun_NoCompanies(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).Return(nil)

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, MsgNoCompanies, result.Error)
	m.history.AssertNotCalled(t, "FilterNew", mock.Anything, mock.Anything)
}

func TestRun_AllDuplicates(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).Return(companies())
	m.history.On("FilterNew", mock.Anything, mock.Anything).Return([]model.CompanyInfo{}, nil)

	result := p.Run(context.Background(), itRequest())

	assert.False(t, result.Success)
	assert.Equal(t, MsgAllDuplicates, result.Error)
	assert.Equal(t, model.ErrAllResultsExhausted, result.ErrorKind)
	m.enhancer.AssertNotCalled(t, "EnhanceAll", mock.Anything, mock.Anything)
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_HistoryFilterErrorKeepsCompanies(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).Return(companies())
	m.history.On("FilterNew", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	m.enhancer.On("EnhanceAll", mock.Anything, companies()).Return(companies())
	m.history.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("db down"))

	result := p.Run(context.Background(), itRequest())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.LeadsCount)
}

func TestRun_WithoutHistory(t *testing.T) {
	m := &testMocks{searcher: &mockSearcher{}, scraper: &mockScraper{}, extractor: &mockExtractor{}, enhancer: &mockEnhancer{}}
	p := New(defaultCfg(), Stages{Searcher: m.searcher, Scraper: m.scraper, Extractor: m.extractor, Enhancer: m.enhancer})

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).Return(companies())
	m.enhancer.On("EnhanceAll", mock.Anything, mock.Anything).Return(companies())

	result := p.Run(context.Background(), itRequest())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.LeadsCount)
}

func TestRun_CapsResultsAndTopLeads(t *testing.T) {
	cfg := config.PipelineConfig{MaxResults: 1, TopLeads: 1}
	p, m := newTestPipeline(t, cfg)

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.MatchedBy(func(rs []model.SearchResult) bool {
		return len(rs) == 1 && rs[0].URL == "https://alpha.co.jp"
	})).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).Return(companies())
	m.enhancer.On("EnhanceAll", mock.Anything, mock.Anything).Return(companies())
	m.history.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(2, nil)

	result := p.Run(context.Background(), itRequest())

	require.True(t, result.Success, result.Error)
	assert.Len(t, result.Leads, 2)
	require.Len(t, result.TopLeads, 1)
	assert.Equal(t, "Alpha", result.TopLeads[0].Company.CompanyName)
}

func TestRun_ReportsUsageForThisRun(t *testing.T) {
	tracker := cost.NewTracker(nil)
	tracker.Add("claude-sonnet-4-5-20250929", 999, 99, 0, 0)

	p, m := newTestPipeline(t, defaultCfg())
	p.stages.Usage = tracker

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return(searchResults(), nil)
	m.scraper.On("ScrapeAll", mock.Anything, mock.Anything).Return(scrapedPages())
	m.extractor.On("ExtractAll", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			tracker.Add("claude-sonnet-4-5-20250929", 1000, 200, 0, 0)
			tracker.Add("claude-sonnet-4-5-20250929", 1000, 200, 0, 0)
		}).
		Return(companies())
	m.history.On("FilterNew", mock.Anything, mock.Anything).Return(companies(), nil)
	m.enhancer.On("EnhanceAll", mock.Anything, mock.Anything).Return(companies())
	m.history.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(2, nil)

	result := p.Run(context.Background(), itRequest())

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 2, result.Usage.Calls)
	assert.Equal(t, int64(2000), result.Usage.InputTokens)
	assert.Equal(t, int64(400), result.Usage.OutputTokens)
	assert.InDelta(t, 0.012, result.Usage.CostUSD, 1e-9)
}

func TestRun_ReportsUsageOnFailure(t *testing.T) {
	p, m := newTestPipeline(t, defaultCfg())
	p.stages.Usage = cost.NewTracker(nil)

	m.searcher.On("SearchAll", mock.Anything, mock.Anything).Return([]model.SearchResult{}, nil)

	result := p.Run(context.Background(), itRequest())

	require.False(t, result.Success)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 0, result.Usage.Calls)
}
