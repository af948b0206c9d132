// Package monitoring exposes Prometheus metrics for each pipeline stage.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape outcomes.
const (
	ScrapeOK           = "ok"
	ScrapeRobotsDenied = "robots_denied"
	ScrapeFiltered     = "filtered"
	ScrapeHTTPError    = "http_error"
	ScrapeFailed       = "failed"
)

// Extraction outcomes.
const (
	ExtractAccepted      = "accepted"
	ExtractLowConfidence = "low_confidence"
	ExtractParseFailure  = "parse_failure"
	ExtractModelError    = "model_error"
)

var (
	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_search_results_total",
			Help: "Search results returned per provider",
		},
		[]string{"provider"},
	)

	SearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_search_errors_total",
			Help: "Failed or skipped provider calls",
		},
		[]string{"provider", "reason"},
	)

	ScrapeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_scrape_outcomes_total",
			Help: "Page scrapes by outcome",
		},
		[]string{"outcome"},
	)

	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadgen_scrape_duration_seconds",
			Help:    "Duration of a single page scrape including retries",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	ExtractOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_extract_outcomes_total",
			Help: "Extraction attempts by outcome",
		},
		[]string{"outcome"},
	)

	HistoryFilteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgen_history_filtered_total",
			Help: "Companies dropped because history already had them",
		},
	)

	HistoryRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgen_history_recorded_total",
			Help: "Companies newly written to history",
		},
	)

	LeadScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadgen_lead_score",
			Help:    "Distribution of total lead scores",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_runs_total",
			Help: "Pipeline runs by result",
		},
		[]string{"result"},
	)
)

// RecordSearch counts the results one provider returned.
func RecordSearch(provider string, n int) {
	SearchResultsTotal.WithLabelValues(provider).Add(float64(n))
}

// RecordSearchError counts a provider call that failed or was skipped.
func RecordSearchError(provider, reason string) {
	SearchErrorsTotal.WithLabelValues(provider, reason).Inc()
}

// RecordScrape counts a scrape outcome and its duration.
func RecordScrape(outcome string, d time.Duration) {
	ScrapeOutcomesTotal.WithLabelValues(outcome).Inc()
	ScrapeDuration.Observe(d.Seconds())
}

// RecordExtract counts an extraction outcome.
func RecordExtract(outcome string) {
	ExtractOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordHistory counts filtered and recorded companies.
func RecordHistory(filtered, recorded int) {
	HistoryFilteredTotal.Add(float64(filtered))
	HistoryRecordedTotal.Add(float64(recorded))
}

// RecordScores observes every lead score.
func RecordScores(scores []float64) {
	for _, s := range scores {
		LeadScore.Observe(s)
	}
}

// RecordRun counts a finished run. An empty kind means success.
func RecordRun(kind string) {
	if kind == "" {
		kind = "success"
	}
	RunsTotal.WithLabelValues(kind).Inc()
}
