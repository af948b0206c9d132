// Package enhance raises the contact completeness of extracted companies.
package enhance

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/resilience"
)

// EmailPrefixes are the role mailboxes guessed for every company domain.
var EmailPrefixes = []string{
	"info", "contact", "inquiry", "support", "sales", "hello",
	"admin", "office", "general", "mail", "ask",
}

// AuxiliaryPaths are the secondary pages tried under a company's base URL.
// The first entries cover one page per kind so a small page budget still
// reaches about, contact, services and careers.
var AuxiliaryPaths = []string{
	"about", "company", "contact", "services", "careers",
	"about-us", "profile", "overview", "contact-us", "inquiry", "info",
	"recruit", "jobs", "hiring", "service", "business", "products",
	"news", "information", "ir",
}

// PageScraper fetches a list of URLs and returns the pages it could parse.
type PageScraper interface {
	ScrapeURLs(ctx context.Context, urls []string) []model.ScrapedPage
}

// Augmenter completes a company record from extra page text.
type Augmenter interface {
	Enhance(ctx context.Context, company model.CompanyInfo, additional string) (model.CompanyInfo, error)
}

// Enhancer infers contact emails and crawls auxiliary pages.
type Enhancer struct {
	scraper   PageScraper
	augmenter Augmenter
	cfg       config.EnhanceConfig
}

// New creates an Enhancer. Zero limits in cfg fall back to 5 pages, 500
// characters per page, 3000 in total and 3 companies at a time.
func New(scraper PageScraper, augmenter Augmenter, cfg config.EnhanceConfig) *Enhancer {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.PageChars <= 0 {
		cfg.PageChars = 500
	}
	if cfg.TotalChars <= 0 {
		cfg.TotalChars = 3000
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	return &Enhancer{scraper: scraper, augmenter: augmenter, cfg: cfg}
}

// EnhanceAll enhances every company and returns them in input order. A
// failure on one company leaves that record as it was.
func (e *Enhancer) EnhanceAll(ctx context.Context, companies []model.CompanyInfo) []model.CompanyInfo {
	res := resilience.FanOut(ctx, e.cfg.MaxConcurrent, companies, func(ctx context.Context, c model.CompanyInfo) (model.CompanyInfo, error) {
		return e.Enhance(ctx, c), nil
	})
	zap.L().Info("enhancement complete", zap.Int("companies", len(res.Values)))
	return res.Values
}

// Enhance runs email inference and the auxiliary crawl for one company.
func (e *Enhancer) Enhance(ctx context.Context, company model.CompanyInfo) (out model.CompanyInfo) {
	out = company
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("enhance: recovered panic",
				zap.String("company", company.CompanyName),
				zap.Any("panic", r),
			)
			out = company
		}
	}()

	enhanced := company.Clone()
	InferEmails(&enhanced)

	if !e.cfg.Enabled {
		return enhanced
	}

	urls := AuxiliaryURLs(enhanced.URL)
	if len(urls) == 0 {
		return enhanced
	}
	if len(urls) > e.cfg.MaxPages {
		urls = urls[:e.cfg.MaxPages]
	}

	text := e.combine(e.scraper.ScrapeURLs(ctx, urls))
	if strings.TrimSpace(text) == "" {
		return enhanced
	}

	merged, err := e.augmenter.Enhance(ctx, enhanced, text)
	if err != nil {
		zap.L().Warn("enhance: augment failed",
			zap.String("company", enhanced.CompanyName),
			zap.Error(err),
		)
		return enhanced
	}
	return merged
}

func (e *Enhancer) combine(pages []model.ScrapedPage) string {
	var b strings.Builder
	for _, p := range pages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- %s ---\n", p.URL)
		b.WriteString(clip(p.Content, e.cfg.PageChars))
	}
	return clip(b.String(), e.cfg.TotalChars)
}

// RegistrableDomain returns the eTLD+1 of rawURL's host, or "" when the
// URL has no public domain.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// CandidateEmails returns one address per role prefix at the company's
// registrable domain.
func CandidateEmails(rawURL string) []string {
	domain := RegistrableDomain(rawURL)
	if domain == "" {
		return nil
	}
	out := make([]string, len(EmailPrefixes))
	for i, p := range EmailPrefixes {
		out[i] = p + "@" + domain
	}
	return out
}

// InferEmails adds the candidate addresses to company. When it has no
// contact email the first new candidate is promoted; the rest go to the
// additional emails, skipping addresses already known.
func InferEmails(company *model.CompanyInfo) {
	var fresh []string
	for _, addr := range CandidateEmails(company.URL) {
		if !company.HasEmail(addr) {
			fresh = append(fresh, addr)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if strings.TrimSpace(company.ContactEmail) == "" {
		company.ContactEmail = fresh[0]
		fresh = fresh[1:]
	}
	company.AdditionalEmails = append(company.AdditionalEmails, fresh...)
}

// AuxiliaryURLs builds the secondary page URLs under rawURL's origin.
func AuxiliaryURLs(rawURL string) []string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	base := u.Scheme + "://" + u.Host
	out := make([]string, len(AuxiliaryPaths))
	for i, p := range AuxiliaryPaths {
		out[i] = base + "/" + p
	}
	return out
}

func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
