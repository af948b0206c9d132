package search

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/pkg/google"
	"github.com/sells-group/lead-generator/pkg/jina"
	"github.com/sells-group/lead-generator/pkg/serpapi"
)

// ProvidersFromConfig builds the providers named in cfg.Search.Providers,
// in order. Providers without credentials are left out. A nil hc keeps
// each client's default http.Client.
func ProvidersFromConfig(cfg *config.Config, hc *http.Client) []Provider {
	var out []Provider
	for _, name := range cfg.Search.Providers {
		switch name {
		case "google":
			if cfg.Google.Key == "" || cfg.Google.CX == "" {
				zap.L().Debug("google search not configured")
				continue
			}
			var opts []google.Option
			if hc != nil {
				opts = append(opts, google.WithHTTPClient(hc))
			}
			if cfg.Google.BaseURL != "" {
				opts = append(opts, google.WithBaseURL(cfg.Google.BaseURL))
			}
			out = append(out, NewGoogleProvider(google.NewClient(cfg.Google.Key, cfg.Google.CX, opts...)))
		case "serpapi":
			if cfg.SerpAPI.Key == "" {
				zap.L().Debug("serpapi not configured")
				continue
			}
			opts := []serpapi.Option{serpapi.WithLocale(cfg.SerpAPI.HL, cfg.SerpAPI.GL)}
			if hc != nil {
				opts = append(opts, serpapi.WithHTTPClient(hc))
			}
			if cfg.SerpAPI.BaseURL != "" {
				opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
			}
			if cfg.SerpAPI.Engine != "" {
				opts = append(opts, serpapi.WithEngine(cfg.SerpAPI.Engine))
			}
			out = append(out, NewSerpAPIProvider(serpapi.NewClient(cfg.SerpAPI.Key, opts...)))
		case "jina":
			if cfg.Jina.Key == "" {
				zap.L().Debug("jina search not configured")
				continue
			}
			var opts []jina.Option
			if hc != nil {
				opts = append(opts, jina.WithHTTPClient(hc))
			}
			if cfg.Jina.SearchBaseURL != "" {
				opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
			}
			out = append(out, NewJinaProvider(jina.NewClient(cfg.Jina.Key, opts...)))
		}
	}
	return out
}
