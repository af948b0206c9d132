// Package extract turns scraped pages into company records with a
// generative model.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/monitoring"
	"github.com/sells-group/lead-generator/internal/resilience"
)

// DefaultMinConfidence is the acceptance threshold used when none is configured.
const DefaultMinConfidence = 0.3

// Extractor converts pages into CompanyInfo records.
type Extractor struct {
	completer     Completer
	maxConcurrent int
	minConfidence float64
	contentLimit  int
}

// New creates an Extractor backed by completer.
func New(completer Completer, cfg config.ExtractConfig) *Extractor {
	e := &Extractor{
		completer:     completer,
		maxConcurrent: cfg.MaxConcurrent,
		minConfidence: cfg.MinConfidence,
		contentLimit:  cfg.ContentLimit,
	}
	if e.maxConcurrent < 1 {
		e.maxConcurrent = 5
	}
	if e.minConfidence <= 0 {
		e.minConfidence = DefaultMinConfidence
	}
	if e.contentLimit <= 0 {
		e.contentLimit = 3000
	}
	return e
}

// extraction is the decoded model answer. Pointer fields tell a missing
// key apart from an empty one.
type extraction struct {
	CompanyName      *string            `json:"company_name"`
	Industry         *string            `json:"industry"`
	Location         *string            `json:"location"`
	Description      *string            `json:"description"`
	BusinessSize     model.BusinessSize `json:"business_size"`
	ContactEmail     *string            `json:"contact_email"`
	Phone            *string            `json:"phone"`
	AdditionalEmails []string           `json:"additional_emails"`
	SocialMedia      map[string]*string `json:"social_media"`
	ConfidenceScore  *float64           `json:"confidence_score"`
}

// parseResponse decodes the first JSON object in text. A response without
// an object, with invalid JSON, or missing a required key is a ParseFailure.
func parseResponse(text string) (*extraction, error) {
	obj, ok := FirstJSONObject(text)
	if !ok {
		return nil, model.NewError(model.ErrParseFailure, "no JSON object in model response")
	}
	var ex extraction
	if err := json.Unmarshal([]byte(obj), &ex); err != nil {
		return nil, model.WrapError(model.ErrParseFailure, "decode model response", err)
	}
	if ex.CompanyName == nil || strings.TrimSpace(*ex.CompanyName) == "" {
		return nil, model.NewError(model.ErrParseFailure, "company_name missing")
	}
	if ex.ConfidenceScore == nil {
		return nil, model.NewError(model.ErrParseFailure, "confidence_score missing")
	}
	return &ex, nil
}

func (ex *extraction) company(url string) model.CompanyInfo {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}

	c := model.CompanyInfo{
		CompanyName:      str(ex.CompanyName),
		URL:              url,
		Location:         str(ex.Location),
		ContactEmail:     str(ex.ContactEmail),
		Phone:            str(ex.Phone),
		Description:      str(ex.Description),
		Industry:         str(ex.Industry),
		BusinessSize:     ex.BusinessSize,
		AdditionalEmails: []string{},
		SocialMedia:      map[string]string{},
	}
	for _, e := range ex.AdditionalEmails {
		e = strings.TrimSpace(e)
		if e != "" && !c.HasEmail(e) {
			c.AdditionalEmails = append(c.AdditionalEmails, e)
		}
	}
	for k, v := range ex.SocialMedia {
		if h := str(v); h != "" {
			c.SocialMedia[k] = h
		}
	}
	return c
}

// Extract asks the model for the company behind page. It returns (nil, nil)
// when the answer does not clear the confidence gate. Model and parse
// failures are returned as errors tagged ProviderUnavailable and
// ParseFailure.
func (e *Extractor) Extract(ctx context.Context, page model.ScrapedPage) (*model.CompanyInfo, error) {
	log := zap.L().With(zap.String("stage", "extract"), zap.String("url", page.URL))

	text, err := e.completer.Complete(ctx, systemPrompt, buildExtractPrompt(page, e.contentLimit))
	if err != nil {
		monitoring.RecordExtract(monitoring.ExtractModelError)
		return nil, model.WrapError(model.ErrProviderUnavailable, "extract "+page.URL, err)
	}

	ex, err := parseResponse(text)
	if err != nil {
		monitoring.RecordExtract(monitoring.ExtractParseFailure)
		return nil, eris.Wrapf(err, "extract: %s", page.URL)
	}

	if *ex.ConfidenceScore <= e.minConfidence {
		monitoring.RecordExtract(monitoring.ExtractLowConfidence)
		log.Debug("extraction below confidence gate",
			zap.String("company", *ex.CompanyName),
			zap.Float64("confidence", *ex.ConfidenceScore),
		)
		return nil, nil
	}

	company := ex.company(page.URL)
	// Contacts found by the scraper back-fill what the model left empty.
	// A scraped address only counts as a location when it names a
	// prefecture.
	fill := model.CompanyInfo{ContactEmail: page.Email, Phone: page.Phone}
	if model.PrefectureOf(page.Address) != "" {
		fill.Location = page.Address
	}
	company.Merge(fill)

	monitoring.RecordExtract(monitoring.ExtractAccepted)
	log.Debug("company extracted",
		zap.String("company", company.CompanyName),
		zap.Float64("confidence", *ex.ConfidenceScore),
	)
	return &company, nil
}

// ExtractAll extracts every page with at most maxConcurrent model calls in
// flight. Pages that fail or fall below the gate are left out.
func (e *Extractor) ExtractAll(ctx context.Context, pages []model.ScrapedPage) []model.CompanyInfo {
	res := resilience.FanOut(ctx, e.maxConcurrent, pages, func(ctx context.Context, p model.ScrapedPage) (model.CompanyInfo, error) {
		c, err := e.Extract(ctx, p)
		if err != nil {
			zap.L().Warn("extraction failed", zap.String("url", p.URL), zap.Error(err))
			return model.CompanyInfo{}, err
		}
		if c == nil {
			return model.CompanyInfo{}, resilience.ErrSkip
		}
		return *c, nil
	})

	zap.L().Info("extraction complete",
		zap.Int("pages", len(pages)),
		zap.Int("accepted", len(res.Values)),
		zap.Int("rejected", res.Skipped),
		zap.Int("failed", len(res.Errors)),
	)
	return res.Values
}

// Enhance asks the model to complete company from additional text. Fields
// already set on company are kept. On any failure the original record is
// returned together with the error.
func (e *Extractor) Enhance(ctx context.Context, company model.CompanyInfo, additional string) (model.CompanyInfo, error) {
	if strings.TrimSpace(additional) == "" {
		return company, nil
	}

	text, err := e.completer.Complete(ctx, systemPrompt, buildEnhancePrompt(company, additional, e.contentLimit))
	if err != nil {
		return company, model.WrapError(model.ErrProviderUnavailable, "enhance "+company.URL, err)
	}

	ex, err := parseResponse(text)
	if err != nil {
		return company, eris.Wrapf(err, "extract: enhance %s", company.URL)
	}

	out := company.Clone()
	out.Merge(ex.company(company.URL))
	return out, nil
}
