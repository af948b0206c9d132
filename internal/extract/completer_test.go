package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/pkg/anthropic"
	"github.com/sells-group/lead-generator/pkg/gemini"
)

type fakeAnthropic struct {
	got  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeGemini struct {
	got  gemini.GenerateRequest
	resp *gemini.GenerateResponse
	err  error
}

func (f *fakeGemini) Generate(_ context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestAnthropicCompleter(t *testing.T) {
	fa := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"company_name":"Acme"}`}},
	}}
	cfg := config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4000, Temperature: 0.1}

	text, err := NewAnthropicCompleter(fa, cfg).Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"company_name":"Acme"}`, text)

	assert.Equal(t, cfg.Model, fa.got.Model)
	assert.Equal(t, int64(4000), fa.got.MaxTokens)
	require.NotNil(t, fa.got.Temperature)
	assert.InDelta(t, 0.1, *fa.got.Temperature, 0.0001)
	require.Len(t, fa.got.System, 1)
	assert.True(t, fa.got.System[0].Cached)
	require.Len(t, fa.got.Messages, 1)
	assert.Equal(t, "user", fa.got.Messages[0].Role)
	assert.Equal(t, "prompt", fa.got.Messages[0].Content)
}

func TestAnthropicCompleter_Error(t *testing.T) {
	fa := &fakeAnthropic{err: errors.New("529 overloaded")}
	_, err := NewAnthropicCompleter(fa, config.AnthropicConfig{}).Complete(context.Background(), "", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic completion")
	assert.Empty(t, fa.got.System)
}

func TestGeminiCompleter(t *testing.T) {
	fg := &fakeGemini{resp: &gemini.GenerateResponse{Text: `{"a":1}`}}
	c := NewGeminiCompleter(fg, config.GeminiConfig{Model: "gemini-2.5-flash"}, config.AnthropicConfig{MaxTokens: 2048, Temperature: 0.2})

	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
	assert.Equal(t, "gemini-2.5-flash", fg.got.Model)
	assert.Equal(t, "sys", fg.got.System)
	assert.Equal(t, int32(2048), fg.got.MaxTokens)
	assert.True(t, fg.got.JSON)
	require.NotNil(t, fg.got.Temperature)
	assert.InDelta(t, 0.2, *fg.got.Temperature, 0.0001)

	fg.err = errors.New("quota")
	_, err = c.Complete(context.Background(), "sys", "prompt")
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Anthropic.Key = "sk-ant"

	c, err := NewCompleter(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)

	cfg.Extract.Provider = "gemini"
	_, err = NewCompleter(context.Background(), cfg, nil)
	assert.Error(t, err, "gemini without key")

	cfg.Gemini.Key = "g-key"
	c, err = NewCompleter(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &GeminiCompleter{}, c)

	cfg.Extract.Provider = "openai"
	_, err = NewCompleter(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestCompleters_TrackUsage(t *testing.T) {
	tracker := cost.NewTracker(nil)

	fa := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "{}"}},
		Usage:   anthropic.TokenUsage{InputTokens: 1200, OutputTokens: 300, CacheReadInputTokens: 800},
	}}
	ac := NewAnthropicCompleter(fa, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"}).WithTracker(tracker)
	_, err := ac.Complete(context.Background(), "sys", "p")
	require.NoError(t, err)

	fg := &fakeGemini{resp: &gemini.GenerateResponse{Text: "{}", InputTokens: 500, OutputTokens: 50}}
	gc := NewGeminiCompleter(fg, config.GeminiConfig{Model: "gemini-2.5-flash"}, config.AnthropicConfig{}).WithTracker(tracker)
	_, err = gc.Complete(context.Background(), "sys", "p")
	require.NoError(t, err)

	u := tracker.Snapshot()
	assert.Equal(t, 2, u.Calls)
	assert.Equal(t, int64(1700), u.InputTokens)
	assert.Equal(t, int64(350), u.OutputTokens)
	assert.Equal(t, int64(800), u.CacheReadTokens)
	assert.Greater(t, u.CostUSD, 0.0)
}
