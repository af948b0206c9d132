package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BlockType describes why a static fetch is not usable as-is.
type BlockType string

const (
	BlockNone    BlockType = ""
	BlockCaptcha BlockType = "captcha"
	BlockJSShell BlockType = "js_shell"
)

// scriptMarkers suggest the page builds its content client-side.
var scriptMarkers = []string{
	"document.write",
	"window.onload",
	"data-reactroot",
	"React",
	"Vue",
	"Angular",
}

// DetectJSShell reports whether body looks like it needs client-side
// script execution to show its content.
func DetectJSShell(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	for _, m := range scriptMarkers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	lower := bytes.ToLower(body)
	if len(body) < 2000 && bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
		return true
	}
	return false
}

// DetectBlock classifies a fetched body. Captcha walls win over script
// shells.
func DetectBlock(body []byte) BlockType {
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "checking your browser") {
		return BlockCaptcha
	}
	if DetectJSShell(body) {
		return BlockJSShell
	}
	return BlockNone
}

// DetectWordPress reports whether the document was generated by WordPress.
func DetectWordPress(doc *goquery.Document, body []byte) bool {
	if gen, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok &&
		strings.Contains(strings.ToLower(gen), "wordpress") {
		return true
	}
	return bytes.Contains(body, []byte("/wp-content/")) || bytes.Contains(body, []byte("/wp-includes/"))
}
