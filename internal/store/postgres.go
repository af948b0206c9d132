package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-generator/internal/db"
	"github.com/sells-group/lead-generator/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// historyColumns are the columns written by Record, in row order.
var historyColumns = []string{
	"company_name", "url", "domain", "location", "industry",
	"contact_email", "phone", "search_query", "created_at", "metadata",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS company_history (
	id            BIGSERIAL PRIMARY KEY,
	company_name  TEXT NOT NULL,
	url           TEXT NOT NULL UNIQUE,
	domain        TEXT NOT NULL,
	location      TEXT,
	industry      TEXT,
	contact_email TEXT,
	phone         TEXT,
	search_query  TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	metadata      JSONB
);

CREATE INDEX IF NOT EXISTS idx_company_history_domain ON company_history(domain);
CREATE INDEX IF NOT EXISTS idx_company_history_created_at ON company_history(created_at);
`

const postgresSelect = `SELECT id, company_name, url, domain, COALESCE(location, ''), COALESCE(industry, ''),
	COALESCE(contact_email, ''), COALESCE(phone, ''), COALESCE(search_query, ''), created_at, metadata
	FROM company_history`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FilterNew(ctx context.Context, companies []model.CompanyInfo) ([]model.CompanyInfo, error) {
	if len(companies) == 0 {
		return []model.CompanyInfo{}, nil
	}
	urls, domains := lookupKeys(companies)
	if domains == nil {
		domains = []string{}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT url, domain FROM company_history WHERE url = ANY($1) OR domain = ANY($2)`,
		urls, domains,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup history")
	}
	defer rows.Close()

	seenURLs, seenDomains := map[string]bool{}, map[string]bool{}
	for rows.Next() {
		var u, d string
		if err := rows.Scan(&u, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history key")
		}
		seenURLs[u] = true
		seenDomains[d] = true
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate history keys")
	}

	return filterNew(companies, seenURLs, seenDomains), nil
}

// Record loads the batch through db.InsertIgnore, one transaction per
// batch. The unique url constraint makes repeated inserts no-ops.
func (s *PostgresStore) Record(ctx context.Context, companies []model.CompanyInfo, query string) (int, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(companies))
	for _, c := range companies {
		r := toRow(c)
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal metadata")
		}
		rows = append(rows, []any{
			r.CompanyName, r.URL, r.Domain, r.Location, r.Industry,
			r.Email, r.Phone, query, now, meta,
		})
	}

	n, err := db.InsertIgnore(ctx, s.pool, db.InsertConfig{
		Table:        "company_history",
		Columns:      historyColumns,
		ConflictKeys: []string{"url"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: record history")
	}
	return int(n), nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx,
		postgresSelect+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	return collectPostgres(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM company_history`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count history")
}

func (s *PostgresStore) Search(ctx context.Context, term string) ([]model.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, postgresSelect+`
		WHERE company_name ILIKE $1 OR url ILIKE $1 OR industry ILIKE $1 OR location ILIKE $1
		ORDER BY created_at DESC, id DESC`, likePattern(term))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search history")
	}
	return collectPostgres(rows)
}

func (s *PostgresStore) DeleteByURL(ctx context.Context, rawURL string) (bool, error) {
	n, err := s.delete(ctx, `DELETE FROM company_history WHERE url = $1`, NormalizeURL(rawURL))
	return n > 0, err
}

func (s *PostgresStore) DeleteByDomain(ctx context.Context, domain string) (int, error) {
	return s.delete(ctx, `DELETE FROM company_history WHERE domain = $1`, NormalizeDomain(domain))
}

func (s *PostgresStore) ClearAll(ctx context.Context) (int, error) {
	return s.delete(ctx, `DELETE FROM company_history`)
}

func (s *PostgresStore) delete(ctx context.Context, query string, args ...any) (int, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete history")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.HistoryStats, error) {
	stats := &model.HistoryStats{}

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
	err = s.pool.QueryRow(ctx,
		`SELECT created_at FROM company_history ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, eris.Wrap(err, "postgres: last added")
	default:
		stats.LastAdded = &last
	}
	return stats, nil
}

// topCounts groups by column, which is always a fixed column name.
func (s *PostgresStore) topCounts(ctx context.Context, column string) ([]model.NamedCount, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+column+`, COUNT(*) AS n FROM company_history
		WHERE `+column+` IS NOT NULL AND `+column+` <> ''
		GROUP BY `+column+` ORDER BY n DESC, `+column+` LIMIT 10`)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: top %s", column)
	}
	defer rows.Close()

	out := []model.NamedCount{}
	for rows.Next() {
		var nc model.NamedCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan top %s", column)
		}
		out = append(out, nc)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate top %s", column)
}

func collectPostgres(rows pgx.Rows) ([]model.HistoryRecord, error) {
	defer rows.Close()

	out := []model.HistoryRecord{}
	for rows.Next() {
		var r model.HistoryRecord
		var meta []byte
		if err := rows.Scan(&r.ID, &r.CompanyName, &r.URL, &r.Domain, &r.Location, &r.Industry,
			&r.Email, &r.Phone, &r.SearchQuery, &r.CreatedAt, &meta); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		if err := decodeMeta(meta, &r.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate history")
}
