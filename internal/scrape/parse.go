package scrape

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/lead-generator/internal/model"
)

const (
	// DefaultContentLimit caps ScrapedPage.Content in characters.
	DefaultContentLimit = 1000
	// descriptionLimit caps a description taken from the first paragraph.
	descriptionLimit = 200
)

// mainSelectors are tried in order to find the main content region.
var mainSelectors = []string{
	"main", `[role="main"]`, ".main", "#main",
	".content", "#content", ".container", "article",
}

var spaceRe = regexp.MustCompile(`\s+`)

// Parse turns an HTML document into a ScrapedPage. Content is truncated to
// contentLimit characters; a non-positive limit uses DefaultContentLimit.
func Parse(pageURL string, body []byte, contentLimit int) (*model.ScrapedPage, error) {
	if contentLimit <= 0 {
		contentLimit = DefaultContentLimit
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	page := &model.ScrapedPage{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		IsWordPress: DetectWordPress(doc, body),
	}

	doc.Find("script, style, noscript, template").Remove()

	// Contacts often sit in the footer, so they are read before the
	// navigation regions are stripped.
	text := textOf(doc.Find("body"))
	if text == "" {
		text = textOf(doc.Selection)
	}
	c := ExtractContacts(text, mailtoAddresses(doc))
	page.Email, page.Phone, page.Address = c.Email, c.Phone, c.Address

	doc.Find("nav, footer, aside").Remove()
	page.Content = truncateRunes(extractMainContent(doc), contentLimit)

	return page, nil
}

// ParseText builds a ScrapedPage from already-rendered plain text.
func ParseText(pageURL, title, description, text string, contentLimit int) *model.ScrapedPage {
	if contentLimit <= 0 {
		contentLimit = DefaultContentLimit
	}
	text = collapse(text)
	if description == "" {
		description = truncateRunes(text, descriptionLimit)
	}
	c := ExtractContacts(text, nil)
	return &model.ScrapedPage{
		URL:         pageURL,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Content:     truncateRunes(text, contentLimit),
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
	}
}

func extractTitle(doc *goquery.Document) string {
	if t := textOf(doc.Find("title").First()); t != "" {
		return t
	}
	return textOf(doc.Find("h1").First())
}

func extractDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name, _ := s.Attr("name"); strings.EqualFold(name, "description") {
			desc, _ = s.Attr("content")
			return false
		}
		return true
	})
	if desc = collapse(desc); desc != "" {
		return desc
	}
	return truncateRunes(textOf(doc.Find("p").First()), descriptionLimit)
}

func extractMainContent(doc *goquery.Document) string {
	for _, sel := range mainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return textOf(s)
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return textOf(body)
	}
	return textOf(doc.Selection)
}

// blockTags get a space on both sides so adjacent blocks don't run
// together in extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "table": true, "section": true,
	"article": true, "header": true, "footer": true, "address": true,
	"dt": true, "dd": true, "dl": true, "main": true, "nav": true, "aside": true,
}

// textOf returns the whitespace-collapsed text of sel.
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if blockTags[n.Data] {
				b.WriteByte(' ')
				defer b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return collapse(b.String())
}

func mailtoAddresses(doc *goquery.Document) []string {
	var out []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	})
	return out
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
