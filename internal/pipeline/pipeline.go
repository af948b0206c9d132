package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/query"
	"github.com/sells-group/lead-generator/internal/scorer"
)

// Run abort messages.
const (
	MsgNoSearchResults  = "No search results found"
	MsgNoScrapedData    = "No data could be scraped"
	MsgNoWordPressSites = "No WordPress sites found"
	MsgNoCompanies      = "No company information extracted"
	MsgAllDuplicates    = "All companies were duplicates from history"
)

// Searcher runs the built queries.
type Searcher interface {
	SearchAll(ctx context.Context, queries []model.SearchQuery) ([]model.SearchResult, error)
}

// Scraper fetches and parses result pages.
type Scraper interface {
	ScrapeAll(ctx context.Context, results []model.SearchResult) []model.ScrapedPage
}

// Extractor turns pages into company records.
type Extractor interface {
	ExtractAll(ctx context.Context, pages []model.ScrapedPage) []model.CompanyInfo
}

// Enhancer fills contact gaps on company records.
type Enhancer interface {
	EnhanceAll(ctx context.Context, companies []model.CompanyInfo) []model.CompanyInfo
}

// History is the dedup index.
type History interface {
	FilterNew(ctx context.Context, companies []model.CompanyInfo) ([]model.CompanyInfo, error)
	Record(ctx context.Context, companies []model.CompanyInfo, query string) (int, error)
}

// Stages bundles the pipeline collaborators. History may be nil, which
// disables filtering and recording. Usage, when set, is the tracker the
// extraction completer reports to.
type Stages struct {
	Builder   *query.Builder
	Searcher  Searcher
	Scraper   Scraper
	Extractor Extractor
	Enhancer  Enhancer
	History   History
	Scorer    *scorer.Scorer
	Usage     *cost.Tracker
}

// Pipeline sequences search, scrape, extract, dedup, enhance, record, and
// score for one lead request.
type Pipeline struct {
	cfg    config.PipelineConfig
	stages Stages
	now    func() time.Time
}

// New creates a Pipeline. A nil Builder or Scorer uses the defaults.
func New(cfg config.PipelineConfig, stages Stages) *Pipeline {
	if stages.Builder == nil {
		stages.Builder = query.NewBuilder(nil)
	}
	if stages.Scorer == nil {
		stages.Scorer = scorer.New(scorer.DefaultConfig())
	}
	if cfg.TopLeads <= 0 {
		cfg.TopLeads = 10
	}
	return &Pipeline{cfg: cfg, stages: stages, now: time.Now}
}

// Run executes one lead run. It never returns a Go error: whole-run aborts
// come back as a Result with Success false.
func (p *Pipeline) Run(ctx context.Context, req query.Request) *Result {
	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("industry", req.Industry),
		zap.String("location", req.Location),
	)
	log.Info("pipeline: starting run")

	result := &Result{
		RunID:     runID,
		Timestamp: p.now().UTC(),
		SearchInfo: SearchInfo{
			Industry:           req.Industry,
			Location:           req.Location,
			AdditionalKeywords: nonNil(req.Keywords),
		},
	}

	if p.stages.Usage != nil {
		usageStart := p.stages.Usage.Snapshot()
		defer func() {
			u := p.stages.Usage.Snapshot().Since(usageStart)
			result.Usage = &u
			log.Info("pipeline: llm usage",
				zap.Int("calls", u.Calls),
				zap.Int64("input_tokens", u.InputTokens),
				zap.Int64("output_tokens", u.OutputTokens),
				zap.Float64("estimated_cost_usd", u.CostUSD),
			)
		}()
	}

	track := func(name string, in int, fn func() int) int {
		start := time.Now()
		out := fn()
		stage := StageResult{Name: name, In: in, Out: out, DurationMs: time.Since(start).Milliseconds()}
		result.Stages = append(result.Stages, stage)
		log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int("in", in),
			zap.Int("out", out),
			zap.Int64("duration_ms", stage.DurationMs),
		)
		return out
	}

	queries, err := p.stages.Builder.Build(req)
	if err != nil {
		return p.fail(log, result, model.KindOf(err), err.Error())
	}

	var results []model.SearchResult
	var searchErr error
	track("search", len(queries), func() int {
		results, searchErr = p.stages.Searcher.SearchAll(ctx, queries)
		results = model.DedupeResults(results)
		if p.cfg.MaxResults > 0 && len(results) > p.cfg.MaxResults {
			results = results[:p.cfg.MaxResults]
		}
		return len(results)
	})
	if searchErr != nil {
		return p.fail(log, result, model.ErrProviderUnavailable, searchErr.Error())
	}
	if len(results) == 0 {
		return p.fail(log, result, model.ErrAllResultsExhausted, MsgNoSearchResults)
	}

	var pages []model.ScrapedPage
	track("scrape", len(results), func() int {
		pages = p.stages.Scraper.ScrapeAll(ctx, results)
		return len(pages)
	})
	if len(pages) == 0 {
		return p.fail(log, result, model.ErrAllResultsExhausted, MsgNoScrapedData)
	}

	if p.cfg.WordPressOnly {
		n := len(pages)
		track("wordpress_filter", n, func() int {
			pages = wordPressOnly(pages)
			return len(pages)
		})
		if len(pages) == 0 {
			return p.fail(log, result, model.ErrAllResultsExhausted, MsgNoWordPressSites)
		}
	}

	var companies []model.CompanyInfo
	track("extract", len(pages), func() int {
		companies = p.stages.Extractor.ExtractAll(ctx, pages)
		return len(companies)
	})
	if len(companies) == 0 {
		return p.fail(log, result, model.ErrAllResultsExhausted, MsgNoCompanies)
	}

	if p.cfg.ExcludeHistory && p.stages.History != nil {
		before := len(companies)
		track("history_filter", before, func() int {
			fresh, ferr := p.stages.History.FilterNew(ctx, companies)
			if ferr != nil {
				log.Warn("pipeline: history filter failed, keeping all companies", zap.Error(ferr))
				return len(companies)
			}
			companies = fresh
			return len(companies)
		})
		monitoring.RecordHistory(before-len(companies), 0)
		if len(companies) == 0 {
			return p.fail(log, result, model.ErrAllResultsExhausted, MsgAllDuplicates)
		}
	}

	track("enhance", len(companies), func() int {
		companies = p.stages.Enhancer.EnhanceAll(ctx, companies)
		return len(companies)
	})

	if p.stages.History != nil {
		track("history_record", len(companies), func() int {
			n, rerr := p.stages.History.Record(ctx, companies, req.Label())
			if rerr != nil {
				log.Warn("pipeline: history record failed", zap.Error(rerr))
			}
			monitoring.RecordHistory(0, n)
			return n
		})
	}

	var leads []model.ScoredLead
	track("score", len(companies), func() int {
		leads = p.stages.Scorer.Rank(companies, req)
		return len(leads)
	})

	stats := scorer.Analyze(leads)
	result.Success = true
	result.Statistics = &stats
	result.LeadsCount = len(leads)
	result.TopLeads = scorer.TopLeads(leads, p.cfg.TopLeads)
	result.Leads = leads

	monitoring.RecordRun("")
	log.Info("pipeline: run complete",
		zap.Int("leads", len(leads)),
		zap.Int("high_priority", stats.HighPriorityLeads),
	)
	return result
}

func (p *Pipeline) fail(log *zap.Logger, result *Result, kind model.ErrorKind, msg string) *Result {
	if kind == "" {
		kind = model.ErrAllResultsExhausted
	}
	result.Success = false
	result.Error = msg
	result.ErrorKind = kind
	monitoring.RecordRun(string(kind))
	log.Warn("pipeline: run aborted", zap.String("kind", string(kind)), zap.String("error", msg))
	return result
}

func wordPressOnly(pages []model.ScrapedPage) []model.ScrapedPage {
	var out []model.ScrapedPage
	for _, pg := range pages {
		if pg.IsWordPress {
			out = append(out, pg)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
