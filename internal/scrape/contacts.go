package scrape

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	// Tried in order; the first pattern with a match wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{2,4}-\d{2,4}-\d{4}`),
		regexp.MustCompile(`\d{3}\.\d{3}\.\d{4}`),
		regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`),
	}

	// Administrative-unit suffix followed by the rest of the address.
	addressRe = regexp.MustCompile(`[都道府県市区町村郡]{1,3}[^\s]{5,20}`)
)

// RolePrefixes mark an address as a general contact mailbox.
var RolePrefixes = []string{"info", "contact", "inquiry", "support"}

// Contacts is the best-effort contact data found in page text.
type Contacts struct {
	Email   string
	Phone   string
	Address string
}

// ExtractContacts scans text for an email, phone number and address.
// Extra email candidates (e.g. from mailto links) are considered after the
// ones found in text. Role mailboxes are preferred.
func ExtractContacts(text string, extraEmails []string) Contacts {
	var c Contacts

	emails := append(emailRe.FindAllString(text, -1), extraEmails...)
	c.Email = PreferredEmail(emails)

	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			c.Phone = m
			break
		}
	}

	c.Address = addressRe.FindString(text)
	return c
}

// PreferredEmail returns the first address containing a role prefix, or
// the first address, or "".
func PreferredEmail(emails []string) string {
	for _, e := range emails {
		if IsRoleEmail(e) {
			return e
		}
	}
	if len(emails) > 0 {
		return emails[0]
	}
	return ""
}

// IsRoleEmail reports whether addr contains one of RolePrefixes.
func IsRoleEmail(addr string) bool {
	lower := strings.ToLower(addr)
	for _, p := range RolePrefixes {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
