package query

import (
	_ "embed"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// IndustryKeywords holds the search and scoring terms for one industry.
type IndustryKeywords struct {
	Search  []string `yaml:"search"`
	Scoring []string `yaml:"scoring"`
}

// KeywordTable is the parsed keyword file.
type KeywordTable struct {
	Industries   map[string]IndustryKeywords `yaml:"industries"`
	BaseKeywords []string                    `yaml:"base_keywords"`
}

var (
	defaultTable     *KeywordTable
	defaultTableOnce sync.Once
)

// DefaultKeywords returns the embedded keyword table. It panics if the
// embedded file is malformed, which only a broken build can cause.
func DefaultKeywords() *KeywordTable {
	defaultTableOnce.Do(func() {
		t, err := ParseKeywords(keywordsYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// ParseKeywords decodes a keyword table from YAML.
func ParseKeywords(data []byte) (*KeywordTable, error) {
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.Industries == nil {
		t.Industries = map[string]IndustryKeywords{}
	}
	return &t, nil
}

// Lookup finds the entry for industry. Keys match after NFKC folding and
// case-insensitively, so "ｉｔ" finds "IT".
func (t *KeywordTable) Lookup(industry string) (IndustryKeywords, bool) {
	want := foldKey(industry)
	if kw, ok := t.Industries[want]; ok {
		return kw, true
	}
	for k, kw := range t.Industries {
		if strings.EqualFold(foldKey(k), want) {
			return kw, true
		}
	}
	return IndustryKeywords{}, false
}

// ScoringKeywords returns the scoring terms for industry, or nil.
func (t *KeywordTable) ScoringKeywords(industry string) []string {
	kw, _ := t.Lookup(industry)
	return kw.Scoring
}

func foldKey(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
