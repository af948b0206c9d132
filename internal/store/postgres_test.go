package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-generator/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var selectCols = []string{
	"id", "company_name", "url", "domain", "location", "industry",
	"contact_email", "phone", "search_query", "created_at", "metadata",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS company_history`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FilterNew(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	companies := []model.CompanyInfo{
		{CompanyName: "Seen URL", URL: "https://a.jp/"},
		{CompanyName: "Seen domain", URL: "https://www.b.jp/contact"},
		{CompanyName: "New", URL: "https://c.jp/"},
	}

	mock.ExpectQuery(`SELECT url, domain FROM company_history WHERE url = ANY\(\$1\) OR domain = ANY\(\$2\)`).
		WithArgs(
			[]string{"https://a.jp/", "https://www.b.jp/contact", "https://c.jp/"},
			[]string{"a.jp", "b.jp", "c.jp"},
		).
		WillReturnRows(pgxmock.NewRows([]string{"url", "domain"}).
			AddRow("https://a.jp/", "a.jp").
			AddRow("https://b.jp/", "b.jp"))

	got, err := s.FilterNew(context.Background(), companies)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FilterNew_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	got, err := s.FilterNew(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_company_history"}, historyColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "company_history" .* ON CONFLICT \("url"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.Record(context.Background(), []model.CompanyInfo{
		{CompanyName: "A", URL: "https://a.jp/"},
		{CompanyName: "B", URL: "https://b.jp/"},
	}, "IT 東京")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record_BeginFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

	_, err := s.Record(context.Background(), []model.CompanyInfo{{CompanyName: "A", URL: "https://a.jp/"}}, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM company_history ORDER BY created_at DESC, id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(DefaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows(selectCols).
			AddRow(int64(7), "Acme", "https://acme.jp/", "acme.jp", "東京都", "IT",
				"info@acme.jp", "", "IT 東京", created, []byte(`{"description":"SI","business_size":"small","additional_emails":null,"social_media":null}`)))

	got, err := s.List(context.Background(), 0, -1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "info@acme.jp", got[0].Email)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, model.BusinessSizeSmall, got[0].Metadata.BusinessSize)
	assert.Equal(t, []string{}, got[0].Metadata.AdditionalEmails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Search(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE company_name ILIKE \$1 OR url ILIKE \$1`).
		WithArgs(`%IT%`).
		WillReturnRows(pgxmock.NewRows(selectCols))

	got, err := s.Search(context.Background(), "IT")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Deletes(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM company_history WHERE url = \$1`).
		WithArgs("https://acme.jp/about").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM company_history WHERE domain = \$1`).
		WithArgs("acme.jp").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM company_history$`).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))

	ok, err := s.DeleteByURL(ctx, "https://acme.jp/about?x=1")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.DeleteByDomain(ctx, "www.acme.jp")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	last := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM company_history`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT industry, COUNT\(\*\) AS n`).
		WillReturnRows(pgxmock.NewRows([]string{"industry", "n"}).AddRow("IT", 3).AddRow("製造業", 2))
	mock.ExpectQuery(`SELECT location, COUNT\(\*\) AS n`).
		WillReturnRows(pgxmock.NewRows([]string{"location", "n"}).AddRow("東京都", 5))
	mock.ExpectQuery(`SELECT created_at FROM company_history ORDER BY`).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(last))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalCompanies)
	assert.Equal(t, []model.NamedCount{{Name: "IT", Count: 3}, {Name: "製造業", Count: 2}}, stats.TopIndustries)
	assert.Equal(t, []model.NamedCount{{Name: "東京都", Count: 5}}, stats.TopLocations)
	require.NotNil(t, stats.LastAdded)
	assert.Equal(t, last, *stats.LastAdded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT industry`).WillReturnRows(pgxmock.NewRows([]string{"industry", "n"}))
	mock.ExpectQuery(`SELECT location`).WillReturnRows(pgxmock.NewRows([]string{"location", "n"}))
	mock.ExpectQuery(`SELECT created_at`).WillReturnError(pgx.ErrNoRows)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.LastAdded)
	assert.Empty(t, stats.TopIndustries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := &PostgresStore{closeFn: func() { closed = true }}
	assert.NoError(t, s.Close())
	assert.True(t, closed)
}
