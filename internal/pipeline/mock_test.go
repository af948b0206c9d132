package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-generator/internal/model"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchAll(ctx context.Context, queries []model.SearchQuery) ([]model.SearchResult, error) {
	args := m.Called(ctx, queries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- Scraper Mock ---

type mockScraper struct {
	mock.Mock
}

func (m *mockScraper) ScrapeAll(ctx context.Context, results []model.SearchResult) []model.ScrapedPage {
	args := m.Called(ctx, results)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.ScrapedPage)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractAll(ctx context.Context, pages []model.ScrapedPage) []model.CompanyInfo {
	args := m.Called(ctx, pages)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.CompanyInfo)
}

// --- Enhancer Mock ---

type mockEnhancer struct {
	mock.Mock
}

func (m *mockEnhancer) EnhanceAll(ctx context.Context, companies []model.CompanyInfo) []model.CompanyInfo {
	args := m.Called(ctx, companies)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.CompanyInfo)
}

// --- History Mock ---

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) FilterNew(ctx context.Context, companies []model.CompanyInfo) ([]model.CompanyInfo, error) {
	args := m.Called(ctx, companies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompanyInfo), args.Error(1)
}

func (m *mockHistory) Record(ctx context.Context, companies []model.CompanyInfo, query string) (int, error) {
	args := m.Called(ctx, companies, query)
	return args.Int(0), args.Error(1)
}
