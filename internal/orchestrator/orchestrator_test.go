package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/llm"
	"github.com/leapstack-labs/remarkql/internal/llm/llmtest"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/testutil"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
)

const unfilteredSQL = "SELECT remark FROM (SELECT DISTINCT TRIM(remarks_qualitative) AS remark FROM surveys) AS remarks WHERE remark <> '' ORDER BY remark"

var table = widget.Table{
	Name:     "surveys",
	Remark:   "remarks_qualitative",
	Country:  "country",
	Region:   "region",
	Activity: "forms_verbose_consolidated",
	Program:  "program",
	Date:     "observation_date",
}

type mockSource struct {
	adapter.BaseSQLAdapter
}

func (m *mockSource) Dialect() *adapter.Dialect {
	return adapter.NewDialect("postgres", adapter.PlaceholderDollar, nil)
}

type recorder struct {
	mu   sync.Mutex
	invs []*audit.Invocation
	err  error
}

func (r *recorder) RecordInvocation(_ context.Context, inv *audit.Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invs = append(r.invs, inv)
	return r.err
}

func (r *recorder) last(t *testing.T) *audit.Invocation {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.invs)
	return r.invs[len(r.invs)-1]
}

type fixture struct {
	orch *Orchestrator
	mock sqlmock.Sqlmock
	llm  *llmtest.Fake
	rec  *recorder
}

func newFixture(t *testing.T, provider *llmtest.Fake) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	src := &mockSource{BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db}}
	catalog, err := widget.NewDefaultCatalog(src, table, widget.ActivitySelection)
	require.NoError(t, err)

	sum, err := summarize.New(summarize.Config{Provider: provider, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	rec := &recorder{}
	orch, err := New(Config{
		Catalog:      catalog,
		Source:       src,
		Summarizer:   sum,
		Table:        table.Name,
		RemarkColumn: table.Remark,
		Recorder:     rec,
		Logger:       testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return &fixture{orch: orch, mock: mock, llm: provider, rec: rec}
}

func remarkRows(remarks ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"remark"})
	for _, r := range remarks {
		rows.AddRow(r)
	}
	return rows
}

func TestInvoke_NoFiltersOmitsWhere(t *testing.T) {
	f := newFixture(t, llmtest.Reply("- Summary."))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("Great pacing.", "Needs more examples."))

	res, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)
	assert.Equal(t, "- Summary.", res.Summary)
	require.NotNil(t, res.Remarks)
	assert.Equal(t, []string{"ID", "Remark"}, res.Remarks.Headers)
	assert.Equal(t, []RemarkRow{{ID: 1, Remark: "Great pacing."}, {ID: 2, Remark: "Needs more examples."}}, res.Remarks.Rows)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	inv := f.rec.last(t)
	assert.Equal(t, audit.OutcomeSucceeded, inv.Outcome)
	assert.Equal(t, "invoke", inv.Mode)
	assert.Equal(t, 2, inv.RemarkCount)
	assert.NotEmpty(t, inv.PromptFingerprint)

	user := f.llm.Requests()[0].User
	assert.Contains(t, user, "Remark 1: Great pacing.")
	assert.Contains(t, user, "exactly 3 bullet points", "points default to 3")
	assert.Equal(t, user, inv.Prompt, "the record keeps the prompt that was sent")
	assert.Equal(t, "- Summary.", inv.Summary)
}

func TestInvoke_FiltersInCatalogOrder(t *testing.T) {
	f := newFixture(t, llmtest.Reply("ok"))
	want := "SELECT remark FROM (SELECT DISTINCT TRIM(remarks_qualitative) AS remark FROM surveys WHERE " +
		"((country = $1 AND region = $2)) AND " +
		"program IN ($3, $4) AND " +
		"((observation_date >= $5 AND observation_date < $6))" +
		") AS remarks WHERE remark <> '' ORDER BY remark"
	f.mock.ExpectQuery(want).
		WithArgs("Kenya", "Nakuru", "Literacy", "Numeracy", "2024-03-01", "2024-04-01").
		WillReturnRows(remarkRows("x"))

	sel := widget.Selection{
		"month":    {"2024-03"},
		"program":  {"Literacy", "Numeracy"},
		"location": {"Kenya / Nakuru"},
		"activity": {},
		"analysis": {"areas of improvement"},
		"points":   {"5"},
	}
	res, err := f.orch.Invoke(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Contains(t, f.llm.Requests()[0].User, "exactly 5 bullet points")
}

func TestInvoke_NoSummaryType(t *testing.T) {
	f := newFixture(t, llmtest.Reply("unused"))
	f.mock.ExpectQuery("SELECT remark FROM (SELECT DISTINCT TRIM(remarks_qualitative) AS remark FROM surveys WHERE program IN ($1)) AS remarks WHERE remark <> '' ORDER BY remark").
		WithArgs("Literacy").
		WillReturnRows(remarkRows("x"))

	res, err := f.orch.Invoke(context.Background(), widget.Selection{"program": {"Literacy"}})
	require.NoError(t, err)
	assert.Equal(t, "No summary type selected", res.Summary)
	assert.Nil(t, res.Remarks)
	assert.Empty(t, f.llm.Requests())
	assert.Equal(t, audit.OutcomeRecoverable, f.rec.last(t).Outcome)
}

func TestInvoke_NoRemarks(t *testing.T) {
	f := newFixture(t, llmtest.Reply("unused"))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows())

	res, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)
	assert.Equal(t, "No remarks to consider!", res.Summary)
	assert.Nil(t, res.Remarks)
	assert.Empty(t, f.llm.Requests())
}

func TestInvoke_Interrupted(t *testing.T) {
	f := newFixture(t, llmtest.Fail(&llm.BadRequestError{Type: "invalid_request_error", Code: "context_length_exceeded"}))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	res, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)
	assert.Equal(t, "invalid_request_error: context_length_exceeded", res.Summary)
	assert.Nil(t, res.Remarks)
}

func TestInvoke_FatalErrors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		f := newFixture(t, llmtest.Reply("unused"))
		f.mock.ExpectQuery(unfilteredSQL).WillReturnError(errors.New("connection refused"))

		_, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, audit.OutcomeFatal, f.rec.last(t).Outcome)
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("rate limited")
		f := newFixture(t, llmtest.Fail(boom))
		f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

		_, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown widget", func(t *testing.T) {
		f := newFixture(t, llmtest.Reply("unused"))
		_, err := f.orch.Invoke(context.Background(), widget.Selection{"school": {"x"}})
		var misaligned *widget.MisalignedSelectionError
		assert.ErrorAs(t, err, &misaligned)
		assert.NoError(t, f.mock.ExpectationsWereMet(), "no query for a misaligned selection")
	})

	t.Run("malformed location", func(t *testing.T) {
		f := newFixture(t, llmtest.Reply("unused"))
		_, err := f.orch.Invoke(context.Background(), widget.Selection{"location": {"Kenya"}, "analysis": {"best practices"}})
		var selErr *widget.SelectionError
		assert.ErrorAs(t, err, &selErr)
	})

	t.Run("points out of range", func(t *testing.T) {
		f := newFixture(t, llmtest.Reply("unused"))
		f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))
		_, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}, "points": {"11"}})
		var selErr *widget.SelectionError
		assert.ErrorAs(t, err, &selErr)
	})
}

func TestInvoke_RecorderFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, llmtest.Reply("ok"))
	f.rec.err = errors.New("disk full")
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	res, err := f.orch.Invoke(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
}

func TestInvokeStream(t *testing.T) {
	f := newFixture(t, llmtest.Reply("- One", "", " point."))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("a", "b"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)

	var snaps []Snapshot
	for s, err := range seq {
		require.NoError(t, err)
		snaps = append(snaps, s)
	}
	require.Len(t, snaps, 2)
	assert.Equal(t, "- One", snaps[0].Summary)
	assert.Equal(t, "- One point.", snaps[1].Summary)
	for i := 1; i < len(snaps); i++ {
		assert.True(t, strings.HasPrefix(snaps[i].Summary, snaps[i-1].Summary))
	}
	assert.Equal(t, []string{"a", "b"}, snaps[1].Remarks.Remarks())

	inv := f.rec.last(t)
	assert.Equal(t, "stream", inv.Mode)
	assert.Equal(t, audit.OutcomeSucceeded, inv.Outcome)
	assert.Equal(t, "- One point.", inv.Summary)
	assert.Equal(t, f.llm.Requests()[0].User, inv.Prompt)
}

func TestInvokeStream_RecoverableBeforeStreaming(t *testing.T) {
	f := newFixture(t, llmtest.Reply("unused"))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows())

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)

	var snaps []Snapshot
	for s, err := range seq {
		require.NoError(t, err)
		snaps = append(snaps, s)
	}
	assert.Equal(t, []Snapshot{{Summary: "No remarks to consider!"}}, snaps)
	assert.Equal(t, audit.OutcomeRecoverable, f.rec.last(t).Outcome)
	assert.Len(t, f.rec.invs, 1, "ranging does not record twice")
}

func TestInvokeStream_RecoverableRecordedWithoutRanging(t *testing.T) {
	f := newFixture(t, llmtest.Reply("unused"))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{})
	require.NoError(t, err)
	require.NotNil(t, seq)

	inv := f.rec.last(t)
	assert.Equal(t, audit.OutcomeRecoverable, inv.Outcome)
	assert.Equal(t, "No summary type selected", inv.Message)
	assert.Empty(t, inv.Prompt, "no provider call, no prompt")
}

func TestInvokeStream_RecoverableMidStream(t *testing.T) {
	fake := &llmtest.Fake{
		Chunks:         []string{"- partial", " more"},
		Err:            &llm.BadRequestError{Type: "invalid_request_error", Code: "content_filter"},
		StreamErrAfter: 1,
	}
	f := newFixture(t, fake)
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)

	var snaps []Snapshot
	for s, err := range seq {
		require.NoError(t, err)
		snaps = append(snaps, s)
	}
	require.Len(t, snaps, 2)
	assert.Equal(t, "- partial", snaps[0].Summary)
	assert.Equal(t, Snapshot{Summary: "invalid_request_error: content_filter"}, snaps[1])
}

func TestInvokeStream_FatalMidStream(t *testing.T) {
	boom := errors.New("connection reset")
	fake := &llmtest.Fake{Chunks: []string{"- partial"}, Err: boom, StreamErrAfter: 1}
	f := newFixture(t, fake)
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)

	var last error
	for _, err := range seq {
		last = err
	}
	assert.ErrorIs(t, last, boom)
	assert.Equal(t, audit.OutcomeFatal, f.rec.last(t).Outcome)
	assert.Equal(t, "- partial", f.rec.last(t).Summary, "the partial text is kept")
}

func TestInvokeStream_FatalBeforeStreaming(t *testing.T) {
	f := newFixture(t, llmtest.Reply("unused"))
	f.mock.ExpectQuery(unfilteredSQL).WillReturnError(errors.New("timeout"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.Error(t, err)
	assert.Nil(t, seq)
}

func TestInvokeStream_Cancel(t *testing.T) {
	fake := llmtest.Reply("a", "b", "c")
	f := newFixture(t, fake)
	f.mock.ExpectQuery(unfilteredSQL).WillReturnRows(remarkRows("x"))

	seq, err := f.orch.InvokeStream(context.Background(), widget.Selection{"analysis": {"best practices"}})
	require.NoError(t, err)
	for range seq {
		break
	}
	assert.Equal(t, 1, fake.Closed())
	assert.Equal(t, audit.OutcomeCanceled, f.rec.last(t).Outcome)
}

func TestNew_Validation(t *testing.T) {
	catalog, err := widget.NewCatalog(widget.PointCount{})
	require.NoError(t, err)

	_, err = New(Config{})
	assert.Error(t, err)

	_, err = New(Config{
		Catalog:      catalog,
		Source:       &mockSource{},
		Summarizer:   &summarize.Summarizer{},
		Table:        "t",
		RemarkColumn: "r",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "analysis" parameter`)
}

func TestRemarkTable(t *testing.T) {
	tbl := NewRemarkTable([]string{"a", "b"})
	assert.Equal(t, 1, tbl.Rows[0].ID)
	assert.Equal(t, 2, tbl.Rows[1].ID)
	assert.Equal(t, []string{"a", "b"}, tbl.Remarks())

	var empty *RemarkTable
	assert.Nil(t, empty.Remarks())
}
