// Package pipeline runs the lead-generation stages end to end.
package pipeline

import (
	"time"

	"github.com/sells-group/lead-generator/internal/cost"
	"github.com/sells-group/lead-generator/internal/model"
)

// SearchInfo echoes the request a run was made for.
type SearchInfo struct {
	Industry           string   `json:"industry"`
	Location           string   `json:"location"`
	AdditionalKeywords []string `json:"additional_keywords"`
}

// StageResult records the item counts and duration of one stage.
type StageResult struct {
	Name       string `json:"name"`
	In         int    `json:"in"`
	Out        int    `json:"out"`
	DurationMs int64  `json:"duration_ms"`
}

// Result is the structured outcome of one run.
type Result struct {
	Success    bool               `json:"success"`
	RunID      string             `json:"run_id"`
	Timestamp  time.Time          `json:"timestamp"`
	SearchInfo SearchInfo         `json:"search_info"`
	Statistics *model.Statistics  `json:"statistics,omitempty"`
	LeadsCount int                `json:"leads_count"`
	TopLeads   []model.ScoredLead `json:"top_leads,omitempty"`
	Leads      []model.ScoredLead `json:"leads,omitempty"`
	Stages     []StageResult      `json:"stages"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  model.ErrorKind    `json:"error_kind,omitempty"`
	Usage      *cost.Usage        `json:"usage,omitempty"`
}
