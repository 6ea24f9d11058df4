package widget

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/query"
	"github.com/leapstack-labs/remarkql/internal/testutil"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
	"github.com/leapstack-labs/remarkql/pkg/adapters/sqlite"
)

var testTable = Table{
	Name:     "surveys",
	Remark:   "remarks_qualitative",
	Country:  "country",
	Region:   "region",
	Activity: "forms_verbose_consolidated",
	Program:  "program",
	Date:     "observation_date",
}

var postgresDialect = adapter.NewDialect("postgres", adapter.PlaceholderDollar, nil)

// mockSource is a Source backed by sqlmock.
type mockSource struct {
	adapter.BaseSQLAdapter
	dialect *adapter.Dialect
}

func (m *mockSource) Dialect() *adapter.Dialect { return m.dialect }

func newMockSource(t *testing.T) (*mockSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &mockSource{BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db}, dialect: postgresDialect}, mock
}

type surveyRow struct {
	remark, country, region, activity, program, date any
}

// newSurveySource returns an in-memory sqlite source seeded with rows.
func newSurveySource(t *testing.T, rows ...surveyRow) *sqlite.Adapter {
	t.Helper()
	ctx := context.Background()
	adp := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE surveys (
		remarks_qualitative TEXT,
		country TEXT,
		region TEXT,
		forms_verbose_consolidated TEXT,
		program TEXT,
		observation_date TEXT
	)`))
	for _, r := range rows {
		require.NoError(t, adp.Exec(ctx, "INSERT INTO surveys VALUES (?, ?, ?, ?, ?, ?)",
			r.remark, r.country, r.region, r.activity, r.program, r.date))
	}
	return adp
}

// matching runs fragment against src and returns the matching remarks.
func matching(t *testing.T, src Source, b *query.Binder, fragment string) []string {
	t.Helper()
	rows, err := src.Query(context.Background(),
		"SELECT remarks_qualitative FROM surveys"+query.Where(fragment)+" ORDER BY remarks_qualitative", b.Args()...)
	require.NoError(t, err)

	var out []string
	for rec, err := range rows.Records() {
		require.NoError(t, err)
		out = append(out, rec[0])
	}
	return out
}

func collect(t *testing.T, w Widget) []string {
	t.Helper()
	var out []string
	for v, err := range w.Options(context.Background()) {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}
