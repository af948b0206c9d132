package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/pkg/anthropic"
	"github.com/sells-group/lead-generator/pkg/gemini"
)

// Completer sends one prompt to a generative model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicCompleter completes prompts with the Anthropic Messages API.
type AnthropicCompleter struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	tracker *cost.Tracker
}

// NewAnthropicCompleter wraps an Anthropic client.
func NewAnthropicCompleter(client anthropic.Client, cfg config.AnthropicConfig) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, cfg: cfg}
}

// WithTracker records token usage of every completion on t.
func (c *AnthropicCompleter) WithTracker(t *cost.Tracker) *AnthropicCompleter {
	c.tracker = t
	return c
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := c.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if system != "" {
		req.System = []anthropic.SystemBlock{{Text: system, Cached: true}}
	}

	resp, err := c.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "extract: anthropic completion")
	}
	resp.Usage.LogCost(c.cfg.Model, "extract")
	c.tracker.Add(c.cfg.Model,
		resp.Usage.InputTokens, resp.Usage.OutputTokens,
		resp.Usage.CacheCreationInputTokens, resp.Usage.CacheReadInputTokens)
	return resp.Text(), nil
}

// GeminiCompleter completes prompts with a Gemini model in JSON mode.
type GeminiCompleter struct {
	client      gemini.Client
	model       string
	maxTokens   int32
	temperature float32
	tracker     *cost.Tracker
}

// NewGeminiCompleter wraps a Gemini client. Token and temperature limits
// are shared with the Anthropic settings.
func NewGeminiCompleter(client gemini.Client, cfg config.GeminiConfig, limits config.AnthropicConfig) *GeminiCompleter {
	return &GeminiCompleter{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(limits.MaxTokens),
		temperature: float32(limits.Temperature),
	}
}

// WithTracker records token usage of every completion on t.
func (c *GeminiCompleter) WithTracker(t *cost.Tracker) *GeminiCompleter {
	c.tracker = t
	return c
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := c.temperature
	resp, err := c.client.Generate(ctx, gemini.GenerateRequest{
		Model:       c.model,
		System:      system,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		return "", eris.Wrap(err, "extract: gemini completion")
	}
	c.tracker.Add(c.model, int64(resp.InputTokens), int64(resp.OutputTokens), 0, 0)
	return resp.Text, nil
}

// NewCompleter builds the Completer selected by extract.provider. Usage is
// recorded on tracker when it is non-nil.
func NewCompleter(ctx context.Context, cfg *config.Config, tracker *cost.Tracker) (Completer, error) {
	switch cfg.Extract.Provider {
	case "", "anthropic":
		return NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic).WithTracker(tracker), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.Gemini.Key, BaseURL: cfg.Gemini.BaseURL})
		if err != nil {
			return nil, eris.Wrap(err, "extract: gemini client")
		}
		return NewGeminiCompleter(client, cfg.Gemini, cfg.Anthropic).WithTracker(tracker), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Extract.Provider)
	}
}
