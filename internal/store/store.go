// Package store persists the history of every company a run has accepted
// so later runs do not surface the same lead twice.
package store

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-generator/internal/config"
	"github.com/sells-group/lead-generator/internal/model"
)

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 100

// Store is the history index.
type Store interface {
	// FilterNew drops companies whose URL or domain is already recorded.
	FilterNew(ctx context.Context, companies []model.CompanyInfo) ([]model.CompanyInfo, error)
	// Record inserts companies tagged with the query label. Existing URLs
	// are skipped. It returns how many rows were added.
	Record(ctx context.Context, companies []model.CompanyInfo, query string) (int, error)

	List(ctx context.Context, limit, offset int) ([]model.HistoryRecord, error)
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, term string) ([]model.HistoryRecord, error)
	DeleteByURL(ctx context.Context, rawURL string) (bool, error)
	DeleteByDomain(ctx context.Context, domain string) (int, error)
	ClearAll(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*model.HistoryStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "leads_history.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// NormalizeURL reduces rawURL to scheme, host and path. Case is kept.
// Unparseable input is returned trimmed.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// Domain returns rawURL's host in lower case with a leading "www."
// removed. The port, if any, is kept.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// NormalizeDomain lower-cases a user-supplied domain and strips "www.".
func NormalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}

// filterNew keeps the companies whose URL and domain are unseen. Within
// the batch only the first company per URL or domain survives.
func filterNew(companies []model.CompanyInfo, seenURLs, seenDomains map[string]bool) []model.CompanyInfo {
	out := make([]model.CompanyInfo, 0, len(companies))
	for _, c := range companies {
		u, d := NormalizeURL(c.URL), Domain(c.URL)
		if seenURLs[u] || (d != "" && seenDomains[d]) {
			continue
		}
		seenURLs[u] = true
		if d != "" {
			seenDomains[d] = true
		}
		out = append(out, c)
	}
	return out
}

// lookupKeys returns the distinct normalized URLs and domains of companies.
func lookupKeys(companies []model.CompanyInfo) (urls, domains []string) {
	seenU, seenD := map[string]bool{}, map[string]bool{}
	for _, c := range companies {
		if u := NormalizeURL(c.URL); !seenU[u] {
			seenU[u] = true
			urls = append(urls, u)
		}
		if d := Domain(c.URL); d != "" && !seenD[d] {
			seenD[d] = true
			domains = append(domains, d)
		}
	}
	return urls, domains
}

// recordRow is the column projection of one company.
type recordRow struct {
	CompanyName, URL, Domain, Location, Industry, Email, Phone string
	Metadata                                                   model.HistoryMeta
}

func toRow(c model.CompanyInfo) recordRow {
	return recordRow{
		CompanyName: c.CompanyName,
		URL:         NormalizeURL(c.URL),
		Domain:      Domain(c.URL),
		Location:    c.Location,
		Industry:    c.Industry,
		Email:       c.ContactEmail,
		Phone:       c.Phone,
		Metadata: model.HistoryMeta{
			Description:      c.Description,
			BusinessSize:     c.BusinessSize,
			AdditionalEmails: nonNil(c.AdditionalEmails),
			SocialMedia:      nonNilMap(c.SocialMedia),
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// likePattern escapes LIKE wildcards in term and wraps it in %...%.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
