package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/internal/enhance"
	"github.com/sells-group/lead-generator/internal/extract"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/pipeline"
	"github.com/sells-group/lead-generator/internal/query"
	"github.com/sells-group/lead-generator/internal/resilience"
	"github.com/sells-group/lead-generator/internal/scorer"
	"github.com/sells-group/lead-generator/internal/scrape"
	"github.com/sells-group/lead-generator/internal/search"
	"github.com/sells-group/lead-generator/internal/store"
	"github.com/sells-group/lead-generator/pkg/jina"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the lead pipeline for an industry and location",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		applyGenerateFlags(cmd, cfg)
		return cfg.Validate("generate")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}

		if cfg.Metrics.Addr != "" {
			srv, err := monitoring.Start(cfg.Metrics.Addr)
			if err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(stopCtx)
			}()
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := buildPipeline(ctx, cfg, st)
		if err != nil {
			return err
		}

		result := p.Run(ctx, req)

		format, _ := cmd.Flags().GetString("format")
		if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if !result.Success {
			return eris.New(result.Error)
		}
		return nil
	},
}

// buildPipeline wires every stage from config.
func buildPipeline(ctx context.Context, cfg *config.Config, st store.Store) (*pipeline.Pipeline, error) {
	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit))

	providers := search.ProvidersFromConfig(cfg, nil)
	if len(providers) == 0 {
		return nil, eris.New("no search provider is configured")
	}
	engine := search.NewEngine(providers, cfg.Search, breakers)

	var scrapeOpts []scrape.Option
	if cfg.Scrape.RenderFallback && cfg.Jina.Key != "" {
		reader := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		scrapeOpts = append(scrapeOpts, scrape.WithRenderer(
			scrape.NewJinaRenderer(reader, breakers.Get("jina_reader"), cfg.Scrape.ContentLimit),
		))
	}
	scraper := scrape.New(cfg.Scrape, scrapeOpts...)

	usage := cost.NewTracker(cost.NewCalculator(cost.DefaultRates()))
	completer, err := extract.NewCompleter(ctx, cfg, usage)
	if err != nil {
		return nil, err
	}
	extractor := extract.New(completer, cfg.Extract)

	zap.L().Info("pipeline configured",
		zap.Strings("search_providers", engine.Providers()),
		zap.String("extract_provider", cfg.Extract.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("render_fallback", len(scrapeOpts) > 0),
	)

	return pipeline.New(cfg.Pipeline, pipeline.Stages{
		Builder:   query.NewBuilder(nil),
		Searcher:  engine,
		Scraper:   scraper,
		Extractor: extractor,
		Enhancer:  enhance.New(scraper, extractor, cfg.Enhance),
		History:   st,
		Scorer:    scorer.New(cfg.Scoring),
		Usage:     usage,
	}), nil
}

// applyGenerateFlags copies explicitly set run flags over the loaded config.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("max-results") {
		cfg.Pipeline.MaxResults, _ = f.GetInt("max-results")
	}
	if f.Changed("wordpress-only") {
		cfg.Pipeline.WordPressOnly, _ = f.GetBool("wordpress-only")
	}
	if f.Changed("no-history") {
		noHistory, _ := f.GetBool("no-history")
		cfg.Pipeline.ExcludeHistory = !noHistory
	}
	if f.Changed("top") {
		cfg.Pipeline.TopLeads, _ = f.GetInt("top")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
}

func requestFromFlags(cmd *cobra.Command) (query.Request, error) {
	f := cmd.Flags()
	industry, _ := f.GetString("industry")
	location, _ := f.GetString("location")
	keywords, _ := f.GetStringSlice("keywords")
	exclude, _ := f.GetStringSlice("exclude")

	req := query.Request{
		Industry:        industry,
		Location:        location,
		Keywords:        keywords,
		ExcludeKeywords: exclude,
	}
	return req, req.Validate()
}

// writeResult prints r as indented JSON or as the text report.
func writeResult(w io.Writer, r *pipeline.Result, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case "text":
		_, err := fmt.Fprint(w, pipeline.FormatReport(r))
		return err
	default:
		return eris.Errorf("unknown format %q (want json or text)", format)
	}
}

// addRequestFlags registers the lead request flags on cmd.
func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("industry", "", "target industry (required)")
	f.String("location", "", "target location (required)")
	f.StringSlice("keywords", nil, "additional search keywords")
	f.StringSlice("exclude", nil, "keywords to exclude from search")
	_ = cmd.MarkFlagRequired("industry")
	_ = cmd.MarkFlagRequired("location")
}

// addRunFlags registers the run override flags on cmd.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "json", "output format: json or text")
	f.Int("max-results", 0, "cap on unique search results to scrape (default from config)")
	f.Bool("wordpress-only", false, "keep only WordPress sites")
	f.Bool("no-history", false, "do not filter out companies already in history")
	f.Int("top", 0, "number of top leads in the result (default from config)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
}

func init() {
	addRequestFlags(generateCmd)
	addRunFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}
