package cost

import "sync"

// Usage is a running total of model calls.
type Usage struct {
	Calls            int     `json:"calls"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens,omitempty"`
	CacheReadTokens  int64   `json:"cache_read_tokens,omitempty"`
	CostUSD          float64 `json:"estimated_cost_usd"`
}

// Since returns the usage accumulated after earlier was taken.
func (u Usage) Since(earlier Usage) Usage {
	return Usage{
		Calls:            u.Calls - earlier.Calls,
		InputTokens:      u.InputTokens - earlier.InputTokens,
		OutputTokens:     u.OutputTokens - earlier.OutputTokens,
		CacheWriteTokens: u.CacheWriteTokens - earlier.CacheWriteTokens,
		CacheReadTokens:  u.CacheReadTokens - earlier.CacheReadTokens,
		CostUSD:          u.CostUSD - earlier.CostUSD,
	}
}

// Tracker accumulates usage from concurrent callers. A nil Tracker ignores
// every call.
type Tracker struct {
	calc *Calculator

	mu    sync.Mutex
	usage Usage
}

// NewTracker returns a Tracker pricing calls with calc. A nil calc uses
// DefaultRates.
func NewTracker(calc *Calculator) *Tracker {
	if calc == nil {
		calc = NewCalculator(DefaultRates())
	}
	return &Tracker{calc: calc}
}

// Add records one model call.
func (t *Tracker) Add(model string, input, output, cacheWrite, cacheRead int64) {
	if t == nil {
		return
	}
	c := t.calc.Tokens(model, input, output, cacheWrite, cacheRead)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Calls++
	t.usage.InputTokens += input
	t.usage.OutputTokens += output
	t.usage.CacheWriteTokens += cacheWrite
	t.usage.CacheReadTokens += cacheRead
	t.usage.CostUSD += c
}

// Snapshot returns the current totals.
func (t *Tracker) Snapshot() Usage {
	if t == nil {
		return Usage{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
