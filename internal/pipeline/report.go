package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/lead-generator/internal/model"
)

// FormatReport renders a human-readable run summary.
func FormatReport(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Lead Report: %s / %s\n", r.SearchInfo.Industry, r.SearchInfo.Location)
	if len(r.SearchInfo.AdditionalKeywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(r.SearchInfo.AdditionalKeywords, ", "))
	}
	fmt.Fprintf(&b, "Run: %s (%s)\n\n", r.RunID, r.Timestamp.Format("2006-01-02 15:04:05 MST"))

	if !r.Success {
		fmt.Fprintf(&b, "Run failed: %s\n", r.Error)
		writeStages(&b, r.Stages)
		return b.String()
	}

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Leads: %d\n", r.LeadsCount)
	if s := r.Statistics; s != nil {
		fmt.Fprintf(&b, "- Score: min %.2f / avg %.2f / median %.2f / max %.2f\n",
			s.ScoreStats.Min, s.ScoreStats.Average, s.ScoreStats.Median, s.ScoreStats.Max)
		fmt.Fprintf(&b, "- Confidence: avg %.0f%%\n", s.ConfidenceStats.Average*100)
		fmt.Fprintf(&b, "- Priority: high %d, medium %d, low %d\n",
			s.HighPriorityLeads, s.MediumPriorityLeads, s.LowPriorityLeads)
	}
	if u := r.Usage; u != nil && u.Calls > 0 {
		fmt.Fprintf(&b, "- LLM: %d calls, %d in / %d out tokens, ~$%.4f\n",
			u.Calls, u.InputTokens, u.OutputTokens, u.CostUSD)
	}
	b.WriteString("\n")

	writeStages(&b, r.Stages)

	b.WriteString("## Top Leads\n")
	if len(r.TopLeads) == 0 {
		b.WriteString("No leads.\n")
	}
	for i, l := range r.TopLeads {
		writeLead(&b, i+1, l)
	}
	return b.String()
}

func writeStages(b *strings.Builder, stages []StageResult) {
	if len(stages) == 0 {
		return
	}
	b.WriteString("## Stages\n")
	for _, s := range stages {
		fmt.Fprintf(b, "- %s: %d -> %d (%dms)\n", s.Name, s.In, s.Out, s.DurationMs)
	}
	b.WriteString("\n")
}

func writeLead(b *strings.Builder, rank int, l model.ScoredLead) {
	c := l.Company
	fmt.Fprintf(b, "%d. %s [%s] score %.2f, confidence %.0f%%\n",
		rank, c.CompanyName, l.Tier(), l.TotalScore, l.Confidence*100)
	fmt.Fprintf(b, "   URL: %s\n", c.URL)
	if c.Industry != "" {
		fmt.Fprintf(b, "   Industry: %s\n", c.Industry)
	}
	if c.Location != "" {
		fmt.Fprintf(b, "   Location: %s\n", c.Location)
	}
	if c.ContactEmail != "" {
		fmt.Fprintf(b, "   Email: %s\n", c.ContactEmail)
	}
	if c.Phone != "" {
		fmt.Fprintf(b, "   Phone: %s\n", c.Phone)
	}
	fmt.Fprintf(b, "   Scores: industry %.2f, size %.2f, contact %.2f, location %.2f, domain %.2f\n",
		l.Scores[model.FactorIndustryMatch],
		l.Scores[model.FactorBusinessSize],
		l.Scores[model.FactorContactInfo],
		l.Scores[model.FactorLocationMatch],
		l.Scores[model.FactorDomainReputation],
	)
}
