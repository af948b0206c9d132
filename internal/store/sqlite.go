package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-generator/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	// mu serializes writers so concurrent runs in one process never race
	// on the url constraint.
	mu sync.Mutex
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS company_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name  TEXT NOT NULL,
	url           TEXT NOT NULL UNIQUE,
	domain        TEXT NOT NULL,
	location      TEXT,
	industry      TEXT,
	contact_email TEXT,
	phone         TEXT,
	search_query  TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	metadata      TEXT
);

CREATE INDEX IF NOT EXISTS idx_company_history_domain ON company_history(domain);
CREATE INDEX IF NOT EXISTS idx_company_history_created_at ON company_history(created_at);
`

const sqliteSelect = `SELECT id, company_name, url, domain, COALESCE(location, ''), COALESCE(industry, ''),
	COALESCE(contact_email, ''), COALESCE(phone, ''), COALESCE(search_query, ''), created_at, COALESCE(metadata, '')
	FROM company_history`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FilterNew(ctx context.Context, companies []model.CompanyInfo) ([]model.CompanyInfo, error) {
	if len(companies) == 0 {
		return []model.CompanyInfo{}, nil
	}
	urls, domains := lookupKeys(companies)

	args := make([]any, 0, len(urls)+len(domains))
	for _, u := range urls {
		args = append(args, u)
	}
	for _, d := range domains {
		args = append(args, d)
	}
	query := `SELECT url, domain FROM company_history WHERE url IN (` + placeholders(len(urls)) + `)`
	if len(domains) > 0 {
		query += ` OR domain IN (` + placeholders(len(domains)) + `)`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup history")
	}
	defer rows.Close() //nolint:errcheck

	seenURLs, seenDomains := map[string]bool{}, map[string]bool{}
	for rows.Next() {
		var u, d string
		if err := rows.Scan(&u, &d); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history key")
		}
		seenURLs[u] = true
		seenDomains[d] = true
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate history keys")
	}

	return filterNew(companies, seenURLs, seenDomains), nil
}

func (s *SQLiteStore) Record(ctx context.Context, companies []model.CompanyInfo, query string) (int, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO company_history
		(company_name, url, domain, location, industry, contact_email, phone, search_query, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	added := 0
	for _, c := range companies {
		r := toRow(c)
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal metadata")
		}
		res, err := stmt.ExecContext(ctx,
			r.CompanyName, r.URL, r.Domain, r.Location, r.Industry, r.Email, r.Phone, query, now, string(meta),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s", r.URL)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return added, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		sqliteSelect+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	return collectSQLite(rows)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM company_history`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count history")
}

func (s *SQLiteStore) Search(ctx context.Context, term string) ([]model.HistoryRecord, error) {
	p := likePattern(term)
	rows, err := s.db.QueryContext(ctx, sqliteSelect+`
		WHERE company_name LIKE ? ESCAPE '\'
		   OR url LIKE ? ESCAPE '\'
		   OR industry LIKE ? ESCAPE '\'
		   OR location LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC`, p, p, p, p)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search history")
	}
	return collectSQLite(rows)
}

func (s *SQLiteStore) DeleteByURL(ctx context.Context, rawURL string) (bool, error) {
	n, err := s.delete(ctx, `DELETE FROM company_history WHERE url = ?`, NormalizeURL(rawURL))
	return n > 0, err
}

func (s *SQLiteStore) DeleteByDomain(ctx context.Context, domain string) (int, error) {
	return s.delete(ctx, `DELETE FROM company_history WHERE domain = ?`, NormalizeDomain(domain))
}

func (s *SQLiteStore) ClearAll(ctx context.Context) (int, error) {
	return s.delete(ctx, `DELETE FROM company_history`)
}

func (s *SQLiteStore) delete(ctx context.Context, query string, args ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete history")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.HistoryStats, error) {
	stats := &model.HistoryStats{TopIndustries: []model.NamedCount{}, TopLocations: []model.NamedCount{}}

	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalCompanies = total

	if stats.TopIndustries, err = s.topCounts(ctx, "industry"); err != nil {
		return nil, err
	}
	if stats.TopLocations, err = s.topCounts(ctx, "location"); err != nil {
		return nil, err
	}

	var last time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM company_history ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, eris.Wrap(err, "sqlite: last added")
	default:
		stats.LastAdded = &last
	}
	return stats, nil
}

// topCounts groups by column, which is always a fixed column name.
func (s *SQLiteStore) topCounts(ctx context.Context, column string) ([]model.NamedCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) AS n FROM company_history
		WHERE `+column+` IS NOT NULL AND `+column+` != ''
		GROUP BY `+column+` ORDER BY n DESC, `+column+` LIMIT 10`)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: top %s", column)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.NamedCount{}
	for rows.Next() {
		var nc model.NamedCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan top %s", column)
		}
		out = append(out, nc)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate top %s", column)
}

func collectSQLite(rows *sql.Rows) ([]model.HistoryRecord, error) {
	defer rows.Close() //nolint:errcheck

	out := []model.HistoryRecord{}
	for rows.Next() {
		var r model.HistoryRecord
		var meta string
		if err := rows.Scan(&r.ID, &r.CompanyName, &r.URL, &r.Domain, &r.Location, &r.Industry,
			&r.Email, &r.Phone, &r.SearchQuery, &r.CreatedAt, &meta); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		if err := decodeMeta([]byte(meta), &r.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func decodeMeta(data []byte, m *model.HistoryMeta) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, m); err != nil {
			return err
		}
	}
	m.AdditionalEmails = nonNil(m.AdditionalEmails)
	m.SocialMedia = nonNilMap(m.SocialMedia)
	return nil
}
