package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Enhance   EnhanceConfig   `yaml:"enhance" mapstructure:"enhance"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ExtractConfig configures structured extraction.
type ExtractConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"` // anthropic | gemini
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	ContentLimit  int     `yaml:"content_limit" mapstructure:"content_limit"`
}

// SearchConfig configures the search engine.
type SearchConfig struct {
	Providers          []string      `yaml:"providers" mapstructure:"providers"`
	Delay              time.Duration `yaml:"delay" mapstructure:"delay"`
	MaxResultsPerQuery int           `yaml:"max_results_per_query" mapstructure:"max_results_per_query"`
	MaxConcurrent      int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// GoogleConfig holds Google Custom Search credentials.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerpAPIConfig holds SerpAPI credentials and locale.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Engine  string `yaml:"engine" mapstructure:"engine"`
	HL      string `yaml:"hl" mapstructure:"hl"`
	GL      string `yaml:"gl" mapstructure:"gl"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ScrapeConfig configures page fetching.
type ScrapeConfig struct {
	RequestTimeout   time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxRetries       int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt" mapstructure:"respect_robots_txt"`
	MaxConcurrent    int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	ContentLimit     int           `yaml:"content_limit" mapstructure:"content_limit"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RenderFallback   bool          `yaml:"render_fallback" mapstructure:"render_fallback"`
}

// EnhanceConfig configures post-extraction enhancement.
type EnhanceConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	MaxPages      int  `yaml:"max_pages" mapstructure:"max_pages"`
	PageChars     int  `yaml:"page_chars" mapstructure:"page_chars"`
	TotalChars    int  `yaml:"total_chars" mapstructure:"total_chars"`
	MaxConcurrent int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// StoreConfig configures the history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig holds the lead scoring weights.
type ScoringConfig struct {
	IndustryWeight float64 `yaml:"industry_weight" mapstructure:"industry_weight"`
	SizeWeight     float64 `yaml:"size_weight" mapstructure:"size_weight"`
	ContactWeight  float64 `yaml:"contact_weight" mapstructure:"contact_weight"`
	LocationWeight float64 `yaml:"location_weight" mapstructure:"location_weight"`
	MaxScore       float64 `yaml:"max_score" mapstructure:"max_score"`
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// PipelineConfig configures run-level behavior.
type PipelineConfig struct {
	MaxResults     int  `yaml:"max_results" mapstructure:"max_results"`
	ExcludeHistory bool `yaml:"exclude_history" mapstructure:"exclude_history"`
	WordPressOnly  bool `yaml:"wordpress_only" mapstructure:"wordpress_only"`
	TopLeads       int  `yaml:"top_leads" mapstructure:"top_leads"`
}

// MetricsConfig configures the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a meaningful default are registered empty so that
	// AutomaticEnv picks them up during Unmarshal.
	for _, k := range []string{
		"anthropic.key", "gemini.key", "gemini.base_url", "google.key", "google.cx",
		"serpapi.key", "jina.key", "store.database_url",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("extract.provider", "anthropic")
	v.SetDefault("extract.max_concurrent", 5)
	v.SetDefault("extract.min_confidence", 0.3)
	v.SetDefault("extract.content_limit", 3000)
	v.SetDefault("search.providers", []string{"google", "serpapi"})
	v.SetDefault("search.delay", time.Second)
	v.SetDefault("search.max_results_per_query", 20)
	v.SetDefault("search.max_concurrent", 2)
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("serpapi.base_url", "https://serpapi.com/search.json")
	v.SetDefault("serpapi.engine", "google")
	v.SetDefault("serpapi.hl", "ja")
	v.SetDefault("serpapi.gl", "jp")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("scrape.request_timeout", 30*time.Second)
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.retry_delay", 2*time.Second)
	v.SetDefault("scrape.user_agent", "SalesLeadGenerator/1.0 (Research Tool)")
	v.SetDefault("scrape.respect_robots_txt", true)
	v.SetDefault("scrape.max_concurrent", 5)
	v.SetDefault("scrape.content_limit", 1000)
	v.SetDefault("scrape.max_body_bytes", 2<<20)
	v.SetDefault("scrape.render_fallback", false)
	v.SetDefault("enhance.enabled", true)
	v.SetDefault("enhance.max_pages", 5)
	v.SetDefault("enhance.page_chars", 500)
	v.SetDefault("enhance.total_chars", 3000)
	v.SetDefault("enhance.max_concurrent", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "leads_history.db")
	v.SetDefault("scoring.industry_weight", 5.0)
	v.SetDefault("scoring.size_weight", 3.0)
	v.SetDefault("scoring.contact_weight", 2.0)
	v.SetDefault("scoring.location_weight", 3.0)
	v.SetDefault("scoring.max_score", 13.0)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout", 30*time.Second)
	v.SetDefault("pipeline.max_results", 50)
	v.SetDefault("pipeline.exclude_history", true)
	v.SetDefault("pipeline.wordpress_only", false)
	v.SetDefault("pipeline.top_leads", 10)
	v.SetDefault("metrics.addr", "")
}

// Validate checks that the fields required by the given mode are present.
// Modes: "generate" (full pipeline) and "history" (store only).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "generate":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateExtract()...)
		errs = append(errs, c.validateSearch()...)
		errs = append(errs, c.validateScrape()...)
		errs = append(errs, c.validateScoring()...)
		if c.Enhance.Enabled && c.Enhance.MaxConcurrent < 1 {
			errs = append(errs, "enhance.max_concurrent must be >= 1")
		}
	case "history":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DSN == "" {
			return []string{"store.dsn is required for sqlite"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
	default:
		return []string{fmt.Sprintf("store.driver %q is not supported", c.Store.Driver)}
	}
	return nil
}

func (c *Config) validateExtract() []string {
	var errs []string
	switch c.Extract.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("extract.provider %q is not supported", c.Extract.Provider))
	}
	if c.Extract.MaxConcurrent < 1 {
		errs = append(errs, "extract.max_concurrent must be >= 1")
	}
	if c.Extract.MinConfidence < 0 || c.Extract.MinConfidence > 1 {
		errs = append(errs, "extract.min_confidence must be between 0 and 1")
	}
	return errs
}

func (c *Config) validateSearch() []string {
	var errs []string
	usable := 0
	for _, p := range c.Search.Providers {
		switch p {
		case "google":
			if c.Google.Key != "" && c.Google.CX != "" {
				usable++
			}
		case "serpapi":
			if c.SerpAPI.Key != "" {
				usable++
			}
		case "jina":
			if c.Jina.Key != "" {
				usable++
			}
		default:
			errs = append(errs, fmt.Sprintf("search.providers: unknown provider %q", p))
		}
	}
	if usable == 0 {
		errs = append(errs, "at least one search provider needs credentials (google.key+google.cx, serpapi.key, or jina.key)")
	}
	if c.Search.MaxResultsPerQuery < 1 {
		errs = append(errs, "search.max_results_per_query must be >= 1")
	}
	return errs
}

func (c *Config) validateScrape() []string {
	var errs []string
	if c.Scrape.MaxConcurrent < 1 {
		errs = append(errs, "scrape.max_concurrent must be >= 1")
	}
	if c.Scrape.MaxRetries < 1 {
		errs = append(errs, "scrape.max_retries must be >= 1")
	}
	return errs
}

func (c *Config) validateScoring() []string {
	var errs []string
	s := c.Scoring
	if s.IndustryWeight <= 0 || s.SizeWeight <= 0 || s.ContactWeight <= 0 || s.LocationWeight <= 0 {
		errs = append(errs, "scoring weights must be > 0")
	}
	if s.MaxScore <= 0 {
		errs = append(errs, "scoring.max_score must be > 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
