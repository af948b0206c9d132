// Package scorer computes multi-factor lead scores and ranks companies.
package scorer

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/query"
)

// DefaultConfig returns the default factor weights.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		IndustryWeight: 5.0,
		SizeWeight:     3.0,
		ContactWeight:  2.0,
		LocationWeight: 3.0,
		MaxScore:       13.0,
	}
}

// Scorer scores companies against a lead request.
type Scorer struct {
	cfg      config.ScoringConfig
	keywords *query.KeywordTable
}

// New returns a Scorer. A non-positive MaxScore uses the default.
func New(cfg config.ScoringConfig) *Scorer {
	if cfg.MaxScore <= 0 {
		cfg.MaxScore = DefaultConfig().MaxScore
	}
	return &Scorer{cfg: cfg, keywords: query.DefaultKeywords()}
}

// WithKeywords replaces the industry keyword table.
func (s *Scorer) WithKeywords(t *query.KeywordTable) *Scorer {
	if t != nil {
		s.keywords = t
	}
	return s
}

// Score computes the total score, breakdown, and confidence for one company.
func (s *Scorer) Score(c model.CompanyInfo, req query.Request) model.ScoredLead {
	keywords := s.keywords.ScoringKeywords(req.Industry)
	if len(keywords) == 0 && strings.TrimSpace(req.Industry) != "" {
		keywords = []string{req.Industry}
	}

	im := IndustryMatch(c.Industry, req.Industry, keywords)
	bs := BusinessSize(c.BusinessSize)
	ci := ContactInfo(c)
	lm := LocationMatch(c.Location, req.Location)
	dr := DomainReputation(c.URL)

	total := im*(s.cfg.IndustryWeight/MaxIndustryMatch) +
		bs*(s.cfg.SizeWeight/MaxBusinessSize) +
		ci*(s.cfg.ContactWeight/MaxContactInfo) +
		lm*(s.cfg.LocationWeight/MaxLocationMatch) +
		dr
	total = math.Min(total, s.cfg.MaxScore)

	return model.ScoredLead{
		Company:    c,
		TotalScore: total,
		Scores: map[string]float64{
			model.FactorIndustryMatch:    im,
			model.FactorBusinessSize:     bs,
			model.FactorContactInfo:      ci,
			model.FactorLocationMatch:    lm,
			model.FactorDomainReputation: dr,
		},
		Confidence: confidence(c, ci, dr),
	}
}

// confidence is the mean of field completeness, normalized contact score,
// and domain reputation.
func confidence(c model.CompanyInfo, contact, domain float64) float64 {
	basic := 0.0
	if strings.TrimSpace(c.CompanyName) != "" {
		basic += 0.3
	}
	if strings.TrimSpace(c.Industry) != "" {
		basic += 0.2
	}
	if strings.TrimSpace(c.Location) != "" {
		basic += 0.2
	}
	if strings.TrimSpace(c.Description) != "" {
		basic += 0.3
	}
	return (basic + contact/MaxContactInfo + domain) / 3
}

// Rank scores every company and sorts descending by total score. Ties keep
// input order.
func (s *Scorer) Rank(companies []model.CompanyInfo, req query.Request) []model.ScoredLead {
	leads := make([]model.ScoredLead, 0, len(companies))
	scores := make([]float64, 0, len(companies))
	for _, c := range companies {
		lead := s.Score(c, req)
		leads = append(leads, lead)
		scores = append(scores, lead.TotalScore)
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].TotalScore > leads[j].TotalScore
	})
	monitoring.RecordScores(scores)

	if len(leads) > 0 {
		zap.L().Debug("scorer: ranked leads",
			zap.Int("count", len(leads)),
			zap.Float64("top_score", leads[0].TotalScore),
		)
	}
	return leads
}

// Analyze summarizes ranked leads. Median is the upper middle for even counts.
func Analyze(leads []model.ScoredLead) model.Statistics {
	stats := model.Statistics{TotalLeads: len(leads)}
	if len(leads) == 0 {
		return stats
	}

	scores := make([]float64, len(leads))
	confidences := make([]float64, len(leads))
	for i, l := range leads {
		scores[i] = l.TotalScore
		confidences[i] = l.Confidence
		switch l.Tier() {
		case model.TierHigh:
			stats.HighPriorityLeads++
		case model.TierMedium:
			stats.MediumPriorityLeads++
		default:
			stats.LowPriorityLeads++
		}
	}

	stats.ScoreStats = summarize(scores)
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	stats.ScoreStats.Median = sorted[len(sorted)/2]
	stats.ConfidenceStats = summarize(confidences)
	return stats
}

func summarize(vals []float64) model.ScoreStats {
	out := model.ScoreStats{Min: vals[0], Max: vals[0]}
	sum := 0.0
	for _, v := range vals {
		out.Min = math.Min(out.Min, v)
		out.Max = math.Max(out.Max, v)
		sum += v
	}
	out.Average = sum / float64(len(vals))
	return out
}

// TopLeads returns the first limit leads. A non-positive limit returns none.
func TopLeads(leads []model.ScoredLead, limit int) []model.ScoredLead {
	if limit <= 0 {
		return nil
	}
	if limit > len(leads) {
		limit = len(leads)
	}
	return leads[:limit]
}
