package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip search hits that are documents or media
// rather than pages.
var defaultExcludePatterns = []string{
	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",
	"*.zip", "*.jpg", "*.jpeg", "*.png", "*.gif", "*.mp4",
}

// PathMatcher filters URLs by glob-style path patterns. Patterns without a
// slash match the last path segment, so "*.pdf" matches "/docs/a.pdf".
// Patterns ending in "/*" also match every deeper path.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher. Falls back to the default
// document/media patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{patterns: patterns}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any exclude pattern. Unparseable
// and non-http(s) URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return true
	}
	return m.isPathExcluded(u.Path)
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		pattern = strings.ToLower(pattern)
		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, path.Base(urlPath)); ok {
				return true
			}
			continue
		}
		if matchSegmented(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented performs glob matching where "/blog/*" matches both
// "/blog/post" and "/blog/deep/nested/path".
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
