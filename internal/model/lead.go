package model

import (
	"encoding/json"
	"time"
)

// Score factor names used as keys in ScoredLead.Scores.
const (
	FactorIndustryMatch    = "industry_match"
	FactorBusinessSize     = "business_size"
	FactorContactInfo      = "contact_info"
	FactorLocationMatch    = "location_match"
	FactorDomainReputation = "domain_reputation"
)

// Priority tier thresholds on the total score.
const (
	HighPriorityScore   = 8.0
	MediumPriorityScore = 5.0
)

// Tier is the priority bucket a lead falls into.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor returns the priority tier for a total score.
func TierFor(score float64) Tier {
	switch {
	case score >= HighPriorityScore:
		return TierHigh
	case score >= MediumPriorityScore:
		return TierMedium
	default:
		return TierLow
	}
}

// ScoredLead is a company together with its score breakdown.
type ScoredLead struct {
	Company    CompanyInfo        `json:"company"`
	TotalScore float64            `json:"total_score"`
	Scores     map[string]float64 `json:"scores"`
	Confidence float64            `json:"confidence"`
}

// MarshalJSON flattens the company fields next to the per-factor scores.
func (l ScoredLead) MarshalJSON() ([]byte, error) {
	company := l.Company.Clone()
	return json.Marshal(struct {
		companyAlias
		TotalScore            float64 `json:"total_score"`
		IndustryMatchScore    float64 `json:"industry_match_score"`
		BusinessSizeScore     float64 `json:"business_size_score"`
		ContactInfoScore      float64 `json:"contact_info_score"`
		LocationMatchScore    float64 `json:"location_match_score"`
		DomainReputationScore float64 `json:"domain_reputation_score"`
		Confidence            float64 `json:"confidence"`
		Tier                  Tier    `json:"tier"`
	}{
		companyAlias:          companyAlias(company),
		TotalScore:            l.TotalScore,
		IndustryMatchScore:    l.Scores[FactorIndustryMatch],
		BusinessSizeScore:     l.Scores[FactorBusinessSize],
		ContactInfoScore:      l.Scores[FactorContactInfo],
		LocationMatchScore:    l.Scores[FactorLocationMatch],
		DomainReputationScore: l.Scores[FactorDomainReputation],
		Confidence:            l.Confidence,
		Tier:                  TierFor(l.TotalScore),
	})
}

// Tier returns the lead's priority tier.
func (l ScoredLead) Tier() Tier {
	return TierFor(l.TotalScore)
}

// ScoreStats summarizes a numeric series.
type ScoreStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Median  float64 `json:"median,omitempty"`
}

// Statistics is the aggregate summary of one run's ranked leads.
type Statistics struct {
	TotalLeads          int        `json:"total_leads"`
	ScoreStats          ScoreStats `json:"score_stats"`
	ConfidenceStats     ScoreStats `json:"confidence_stats"`
	HighPriorityLeads   int        `json:"high_priority_leads"`
	MediumPriorityLeads int        `json:"medium_priority_leads"`
	LowPriorityLeads    int        `json:"low_priority_leads"`
}

// HistoryRecord is the persisted projection of a CompanyInfo.
type HistoryRecord struct {
	ID          int64       `json:"id"`
	CompanyName string      `json:"company_name"`
	URL         string      `json:"url"`
	Domain      string      `json:"domain"`
	Location    string      `json:"location"`
	Industry    string      `json:"industry"`
	Email       string      `json:"contact_email"`
	Phone       string      `json:"phone"`
	SearchQuery string      `json:"search_query"`
	CreatedAt   time.Time   `json:"created_at"`
	Metadata    HistoryMeta `json:"metadata"`
}

// HistoryMeta carries the CompanyInfo fields without a dedicated column.
type HistoryMeta struct {
	Description      string            `json:"description"`
	BusinessSize     BusinessSize      `json:"business_size"`
	AdditionalEmails []string          `json:"additional_emails"`
	SocialMedia      map[string]string `json:"social_media"`
}

// NamedCount is one row of a grouped count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HistoryStats summarizes the history index.
type HistoryStats struct {
	TotalCompanies int          `json:"total_companies"`
	TopIndustries  []NamedCount `json:"top_industries"`
	TopLocations   []NamedCount `json:"top_locations"`
	LastAdded      *time.Time   `json:"last_added,omitempty"`
}
