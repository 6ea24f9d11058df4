package widget

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/query"
)

func TestFilters_EmptySelection(t *testing.T) {
	src, _ := newMockSource(t)
	filters := []Filter{
		NewLocation(src, testTable.Name, testTable.Country, testTable.Region),
		NewCategorical(src, "program", "Program", testTable.Name, testTable.Program),
		NewActivityForm(src, testTable.Name, testTable.Activity, nil),
		NewDateRange(src, testTable.Name, testTable.Date),
	}

	for _, f := range filters {
		t.Run(f.ID(), func(t *testing.T) {
			b := query.NewBinder(postgresDialect)
			for _, values := range [][]string{nil, {}} {
				got, err := f.Refine(b, values)
				require.NoError(t, err)
				assert.Empty(t, got)
			}
			assert.Empty(t, b.Args(), "empty selection binds nothing")
		})
	}
}

func TestLocation_Refine(t *testing.T) {
	w := NewLocation(nil, "surveys", "country", "region")
	b := query.NewBinder(postgresDialect)

	got, err := w.Refine(b, []string{"Kenya / Nakuru", "India / Pune"})
	require.NoError(t, err)
	assert.Equal(t, "((country = $1 AND region = $2) OR (country = $3 AND region = $4))", got)
	assert.Equal(t, []any{"Kenya", "Nakuru", "India", "Pune"}, b.Args())
}

func TestLocation_RoundTrip(t *testing.T) {
	pairs := [][2]string{{"Kenya", "Nakuru"}, {"Côte d'Ivoire", "Abidjan"}, {"India", "Tamil Nadu"}}
	w := NewLocation(nil, "surveys", "country", "region")

	var values []string
	for _, p := range pairs {
		values = append(values, p[0]+LocationDelimiter+p[1])
	}
	b := query.NewBinder(postgresDialect)
	_, err := w.Refine(b, values)
	require.NoError(t, err)

	args := b.Args()
	require.Len(t, args, 2*len(pairs))
	for i, p := range pairs {
		assert.Equal(t, p[0], args[2*i])
		assert.Equal(t, p[1], args[2*i+1])
	}
}

func TestLocation_Malformed(t *testing.T) {
	w := NewLocation(nil, "surveys", "country", "region")
	for _, v := range []string{"Kenya", "Kenya / Nakuru / Extra", "Kenya/Nakuru"} {
		_, err := w.Refine(query.NewBinder(postgresDialect), []string{v})
		var selErr *SelectionError
		require.ErrorAs(t, err, &selErr, v)
		assert.Equal(t, "location", selErr.Widget)
	}
}

func TestLocation_Options(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("SELECT DISTINCT country, region FROM surveys WHERE country IS NOT NULL AND region IS NOT NULL ORDER BY country, region").
		WillReturnRows(sqlmock.NewRows([]string{"country", "region"}).
			AddRow("India", "Pune").
			AddRow("Kenya", "Nakuru"))

	w := NewLocation(src, "surveys", "country", "region")
	assert.Equal(t, []string{"India / Pune", "Kenya / Nakuru"}, collect(t, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocation_Semantics(t *testing.T) {
	src := newSurveySource(t,
		surveyRow{remark: "a", country: "Kenya", region: "Nakuru"},
		surveyRow{remark: "b", country: "Kenya", region: "Kisumu"},
		surveyRow{remark: "c", country: "India", region: "Nakuru"},
		surveyRow{remark: "d", country: "India", region: "Pune"},
	)
	w := NewLocation(src, "surveys", "country", "region")
	b := query.NewBinder(src.Dialect())

	frag, err := w.Refine(b, []string{"Kenya / Nakuru", "India / Pune"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, matching(t, src, b, frag))
}

func TestCategorical(t *testing.T) {
	src, mock := newMockSource(t)
	w := NewCategorical(src, "program", "Program", "surveys", "program")

	b := query.NewBinder(postgresDialect)
	got, err := w.Refine(b, []string{"Literacy", "O'Brien Fellows"})
	require.NoError(t, err)
	assert.Equal(t, "program IN ($1, $2)", got)
	assert.Equal(t, []any{"Literacy", "O'Brien Fellows"}, b.Args())

	mock.ExpectQuery("SELECT DISTINCT program FROM surveys WHERE program IS NOT NULL ORDER BY program").
		WillReturnRows(sqlmock.NewRows([]string{"program"}).AddRow("Literacy").AddRow("Numeracy"))
	assert.Equal(t, []string{"Literacy", "Numeracy"}, collect(t, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptions_QueryError(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("SELECT DISTINCT program FROM surveys WHERE program IS NOT NULL ORDER BY program").
		WillReturnError(errors.New("connection refused"))

	w := NewCategorical(src, "program", "Program", "surveys", "program")
	var gotErr error
	for _, err := range w.Options(context.Background()) {
		gotErr = err
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "program options")
	assert.Contains(t, gotErr.Error(), "connection refused")
}

func TestActivityForm_Refine(t *testing.T) {
	w := NewActivityForm(nil, "surveys", "form", nil)

	tests := []struct {
		name     string
		values   []string
		want     string
		wantArgs []any
	}{
		{
			name:     "single known",
			values:   []string{"Coaching call"},
			want:     "(LOWER(form) LIKE $1)",
			wantArgs: []any{"coaching call%"},
		},
		{
			name:     "two known",
			values:   []string{"Coaching call", "Classroom observation"},
			want:     "(LOWER(form) LIKE $1 OR LOWER(form) LIKE $2)",
			wantArgs: []any{"coaching call%", "classroom observation%"},
		},
		{
			name:     "other only",
			values:   []string{OtherForm},
			want:     "((LOWER(form) NOT LIKE $1 AND LOWER(form) NOT LIKE $2))",
			wantArgs: []any{"coaching call%", "classroom observation%"},
		},
		{
			name:     "known and other",
			values:   []string{OtherForm, "Coaching call"},
			want:     "(LOWER(form) LIKE $1 OR (LOWER(form) NOT LIKE $2 AND LOWER(form) NOT LIKE $3))",
			wantArgs: []any{"coaching call%", "coaching call%", "classroom observation%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBinder(postgresDialect)
			got, err := w.Refine(b, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantArgs, b.Args())
		})
	}

	_, err := w.Refine(query.NewBinder(postgresDialect), []string{"Home visit"})
	var selErr *SelectionError
	assert.ErrorAs(t, err, &selErr)
}

func TestActivityForm_OtherBucket(t *testing.T) {
	src := newSurveySource(t,
		surveyRow{remark: "call-1", activity: "Coaching Call - Week 1"},
		surveyRow{remark: "call-2", activity: "coaching call"},
		surveyRow{remark: "obs-1", activity: "CLASSROOM OBSERVATION (full)"},
		surveyRow{remark: "other-1", activity: "Home visit"},
		surveyRow{remark: "other-2", activity: "Teacher meeting: coaching call follow-up"},
		surveyRow{remark: "null", activity: nil},
	)
	w := NewActivityForm(src, "surveys", "forms_verbose_consolidated", nil)

	t.Run("other matches only unknown prefixes", func(t *testing.T) {
		b := query.NewBinder(src.Dialect())
		frag, err := w.Refine(b, []string{OtherForm})
		require.NoError(t, err)
		assert.Equal(t, []string{"other-1", "other-2"}, matching(t, src, b, frag))
	})

	t.Run("known prefix is case-insensitive", func(t *testing.T) {
		b := query.NewBinder(src.Dialect())
		frag, err := w.Refine(b, []string{"Coaching call"})
		require.NoError(t, err)
		assert.Equal(t, []string{"call-1", "call-2"}, matching(t, src, b, frag))
	})

	t.Run("known plus other excludes null", func(t *testing.T) {
		b := query.NewBinder(src.Dialect())
		frag, err := w.Refine(b, []string{"Classroom observation", OtherForm})
		require.NoError(t, err)
		assert.Equal(t, []string{"obs-1", "other-1", "other-2"}, matching(t, src, b, frag))
	})

	t.Run("options in vocabulary order", func(t *testing.T) {
		assert.Equal(t, []string{"Coaching call", "Classroom observation", OtherForm}, collect(t, w))
	})
}

func TestActivityForm_OptionsWithoutOther(t *testing.T) {
	src := newSurveySource(t,
		surveyRow{remark: "obs", activity: "Classroom observation"},
	)
	w := NewActivityForm(src, "surveys", "forms_verbose_consolidated", nil)
	assert.Equal(t, []string{"Classroom observation"}, collect(t, w))
}

func TestDateRange_Refine(t *testing.T) {
	w := NewDateRange(nil, "surveys", "observation_date")
	b := query.NewBinder(postgresDialect)

	got, err := w.Refine(b, []string{"2024-03", "2023-12"})
	require.NoError(t, err)
	assert.Equal(t,
		"((observation_date >= $1 AND observation_date < $2) OR (observation_date >= $3 AND observation_date < $4))",
		got)
	assert.Equal(t, []any{"2024-03-01", "2024-04-01", "2023-12-01", "2024-01-01"}, b.Args())
}

func TestDateRange_BadToken(t *testing.T) {
	w := NewDateRange(nil, "surveys", "observation_date")
	for _, v := range []string{"2024-13", "March 2024", "2024-3-01", "2024"} {
		_, err := w.Refine(query.NewBinder(postgresDialect), []string{v})
		var selErr *SelectionError
		assert.ErrorAs(t, err, &selErr, v)
	}
}

func TestDateRange_HalfOpenInterval(t *testing.T) {
	src := newSurveySource(t,
		surveyRow{remark: "feb-29", date: "2024-02-29"},
		surveyRow{remark: "mar-01", date: "2024-03-01"},
		surveyRow{remark: "mar-31-late", date: "2024-03-31 23:59:59"},
		surveyRow{remark: "apr-01", date: "2024-04-01"},
	)
	w := NewDateRange(src, "surveys", "observation_date")
	b := query.NewBinder(src.Dialect())

	frag, err := w.Refine(b, []string{"2024-03"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mar-01", "mar-31-late"}, matching(t, src, b, frag))
}

func TestDateRange_Options(t *testing.T) {
	src := newSurveySource(t,
		surveyRow{remark: "a", date: "2024-01-15"},
		surveyRow{remark: "b", date: "2024-03-02"},
		surveyRow{remark: "c", date: "2024-03-20"},
		surveyRow{remark: "future", date: "2999-01-01"},
		surveyRow{remark: "undated", date: nil},
	)
	w := NewDateRange(src, "surveys", "observation_date")
	assert.Equal(t, []string{"2024-03", "2024-01"}, collect(t, w))
}

func TestDateRange_OptionsUseDialect(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("SELECT DISTINCT TO_CHAR(observation_date, 'YYYY-MM') AS month FROM surveys WHERE observation_date <= CURRENT_TIMESTAMP ORDER BY month DESC").
		WillReturnRows(sqlmock.NewRows([]string{"month"}).AddRow("2024-03"))

	w := NewDateRange(src, "surveys", "observation_date")
	assert.Equal(t, []string{"2024-03"}, collect(t, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}
