package model

import (
	"encoding/json"
	"strings"
)

// BusinessSize is the coarse headcount bucket assigned during extraction.
type BusinessSize string

const (
	BusinessSizeStartup    BusinessSize = "startup"
	BusinessSizeSmall      BusinessSize = "small"
	BusinessSizeMedium     BusinessSize = "medium"
	BusinessSizeLarge      BusinessSize = "large"
	BusinessSizeEnterprise BusinessSize = "enterprise"
)

// AllBusinessSizes returns every defined size in ascending order.
func AllBusinessSizes() []BusinessSize {
	return []BusinessSize{
		BusinessSizeStartup,
		BusinessSizeSmall,
		BusinessSizeMedium,
		BusinessSizeLarge,
		BusinessSizeEnterprise,
	}
}

// ParseBusinessSize maps a free-form string onto a BusinessSize. The second
// return value is false when s is not a known size.
func ParseBusinessSize(s string) (BusinessSize, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, bs := range AllBusinessSizes() {
		if string(bs) == s {
			return bs, true
		}
	}
	return "", false
}

// UnmarshalJSON accepts null and unknown values as the empty size.
func (b *BusinessSize) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*b = ""
		return nil
	}
	*b, _ = ParseBusinessSize(*s)
	return nil
}

// MarshalJSON writes the empty size as null.
func (b BusinessSize) MarshalJSON() ([]byte, error) {
	if b == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(b))
}

// CompanyInfo is the company record that flows from extraction through
// enhancement, history, and scoring.
type CompanyInfo struct {
	CompanyName      string            `json:"company_name"`
	URL              string            `json:"url"`
	Location         string            `json:"location"`
	ContactEmail     string            `json:"contact_email"`
	Phone            string            `json:"phone"`
	Description      string            `json:"description"`
	Industry         string            `json:"industry"`
	BusinessSize     BusinessSize      `json:"business_size"`
	AdditionalEmails []string          `json:"additional_emails"`
	SocialMedia      map[string]string `json:"social_media"`
}

type companyAlias CompanyInfo

// MarshalJSON always emits empty collections instead of null.
func (c CompanyInfo) MarshalJSON() ([]byte, error) {
	c.normalize()
	return json.Marshal(companyAlias(c))
}

// UnmarshalJSON tolerates null and missing optional fields.
func (c *CompanyInfo) UnmarshalJSON(data []byte) error {
	var a companyAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = CompanyInfo(a)
	c.normalize()
	return nil
}

func (c *CompanyInfo) normalize() {
	if c.AdditionalEmails == nil {
		c.AdditionalEmails = []string{}
	}
	if c.SocialMedia == nil {
		c.SocialMedia = map[string]string{}
	}
}

// Clone returns a deep copy of c.
func (c CompanyInfo) Clone() CompanyInfo {
	out := c
	out.AdditionalEmails = append([]string{}, c.AdditionalEmails...)
	out.SocialMedia = make(map[string]string, len(c.SocialMedia))
	for k, v := range c.SocialMedia {
		out.SocialMedia[k] = v
	}
	return out
}

// ActiveSocialCount returns the number of social networks with a non-empty handle.
func (c CompanyInfo) ActiveSocialCount() int {
	n := 0
	for _, v := range c.SocialMedia {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// HasEmail reports whether addr is already known on the record, either as
// the contact email or one of the additional emails. Comparison ignores case.
func (c CompanyInfo) HasEmail(addr string) bool {
	if strings.EqualFold(c.ContactEmail, addr) {
		return true
	}
	for _, e := range c.AdditionalEmails {
		if strings.EqualFold(e, addr) {
			return true
		}
	}
	return false
}

// Merge fills empty fields on c from other. Fields that already carry a
// value are never overwritten. Additional emails are unioned without
// case-insensitive duplicates, and social handles are added only for
// networks c does not have yet.
func (c *CompanyInfo) Merge(other CompanyInfo) {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	fill(&c.CompanyName, other.CompanyName)
	fill(&c.URL, other.URL)
	fill(&c.Location, other.Location)
	fill(&c.ContactEmail, other.ContactEmail)
	fill(&c.Phone, other.Phone)
	fill(&c.Description, other.Description)
	fill(&c.Industry, other.Industry)
	if c.BusinessSize == "" {
		c.BusinessSize = other.BusinessSize
	}

	for _, e := range other.AdditionalEmails {
		if strings.TrimSpace(e) == "" || c.HasEmail(e) {
			continue
		}
		c.AdditionalEmails = append(c.AdditionalEmails, e)
	}

	for k, v := range other.SocialMedia {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if c.SocialMedia == nil {
			c.SocialMedia = map[string]string{}
		}
		if strings.TrimSpace(c.SocialMedia[k]) == "" {
			c.SocialMedia[k] = v
		}
	}
}
