package scorer

import (
	"math"
	"net/url"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/sells-group/lead-generator/internal/model"
)

// Upper bounds of each factor before weighting.
const (
	MaxIndustryMatch    = 5.0
	MaxBusinessSize     = 3.0
	MaxContactInfo      = 2.0
	MaxLocationMatch    = 3.0
	MaxDomainReputation = 1.0
)

var sizeScores = map[model.BusinessSize]float64{
	model.BusinessSizeStartup:    1.5,
	model.BusinessSizeSmall:      2.5,
	model.BusinessSizeMedium:     3.0,
	model.BusinessSizeLarge:      2.8,
	model.BusinessSizeEnterprise: 2.0,
}

const unknownSizeScore = 1.0

// directEmailPrefixes mark a mailbox that reaches the company directly.
var directEmailPrefixes = []string{"info", "contact", "inquiry", "support", "sales"}

var corporateTokens = []string{"co.jp", "corp", "inc", "ltd", "llc", "company"}

var reputableTLDs = []string{".com", ".jp", ".org", ".net"}

const (
	coJPWeight     = 1.0
	reputableTLD   = 0.8
	defaultTLD     = 0.5
	domainAgeProxy = 0.5
)

// fold normalizes s for comparison: NFKC, full-width to half-width ASCII,
// lower case.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(norm.NFKC.String(s))))
}

// similarity is the normalized edit-distance ratio of a and b in [0,1].
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.Similarity(a, b, nil)
}

// IndustryMatch scores how well the company industry fits the query industry.
// keywords are the scoring terms for the query industry.
func IndustryMatch(companyIndustry, queryIndustry string, keywords []string) float64 {
	ci, qi := fold(companyIndustry), fold(queryIndustry)
	if ci == "" || qi == "" {
		return 0
	}
	if strings.Contains(ci, qi) {
		return MaxIndustryMatch
	}

	best := similarity(ci, qi) * MaxIndustryMatch

	if tokens := strings.Fields(qi); len(tokens) > 0 {
		best = math.Max(best, fractionContained(ci, tokens)*3.0)
	}
	if len(keywords) > 0 {
		folded := make([]string, 0, len(keywords))
		for _, k := range keywords {
			folded = append(folded, fold(k))
		}
		best = math.Max(best, fractionContained(ci, folded)*2.0)
	}
	return math.Min(best, MaxIndustryMatch)
}

func fractionContained(s string, terms []string) float64 {
	hit := 0
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			hit++
		}
	}
	return float64(hit) / float64(len(terms))
}

// BusinessSize scores the size bucket. Unknown sizes get a flat 1.0.
func BusinessSize(size model.BusinessSize) float64 {
	if s, ok := sizeScores[size]; ok {
		return s
	}
	return unknownSizeScore
}

// ContactInfo scores how reachable the company is.
func ContactInfo(c model.CompanyInfo) float64 {
	score := 0.0
	if email := strings.TrimSpace(c.ContactEmail); email != "" {
		if isDirectEmail(email) {
			score += 1.0
		} else {
			score += 0.5
		}
	}
	if strings.TrimSpace(c.Phone) != "" {
		score += 0.5
	}
	score += math.Min(0.1*float64(len(c.AdditionalEmails)), 0.3)
	score += math.Min(0.1*float64(c.ActiveSocialCount()), 0.2)
	return math.Min(score, MaxContactInfo)
}

func isDirectEmail(email string) bool {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	for _, p := range directEmailPrefixes {
		if strings.HasPrefix(local, p) {
			return true
		}
	}
	return false
}

// LocationMatch scores how well the company location fits the query location.
func LocationMatch(companyLocation, queryLocation string) float64 {
	cl, ql := fold(companyLocation), fold(queryLocation)
	if cl == "" || ql == "" {
		return 0
	}
	if strings.Contains(cl, ql) {
		return MaxLocationMatch
	}
	for _, p := range model.Prefectures {
		if strings.Contains(ql, p) && strings.Contains(cl, p) {
			return 2.0
		}
	}
	return similarity(cl, ql) * MaxLocationMatch
}

// DomainReputation scores the company's web domain.
func DomainReputation(rawURL string) float64 {
	host := hostOf(rawURL)
	if host == "" {
		return 0
	}

	score := 0.0
	for _, t := range corporateTokens {
		if strings.Contains(host, t) {
			score += 0.4
			break
		}
	}
	score += tldWeight(host) * 0.4
	score += domainAgeProxy * 0.2
	return math.Min(score, MaxDomainReputation)
}

func tldWeight(host string) float64 {
	if strings.HasSuffix(host, ".co.jp") {
		return coJPWeight
	}
	for _, tld := range reputableTLDs {
		if strings.HasSuffix(host, tld) {
			return reputableTLD
		}
	}
	return defaultTLD
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
