// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/llm/llmtest"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/testutil"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
	"github.com/leapstack-labs/remarkql/pkg/adapters/sqlite"
)

// TestRemark is one survey row.
type TestRemark struct {
	Remark   string
	Country  string
	Region   string
	Activity string
	Program  string
	Date     string
}

// DefaultRemarks seeds a small Kenyan literacy survey.
var DefaultRemarks = []TestRemark{
	{"Great pacing.", "Kenya", "Nakuru", "Coaching call", "Literacy", "2024-03-04"},
	{"Needs more examples.", "Kenya", "Nakuru", "Classroom observation", "Literacy", "2024-03-30"},
	{"Strong routines.", "Kenya", "Kisumu", "Coaching call", "Numeracy", "2024-04-02"},
}

// TestTable is the survey table the fixture creates.
var TestTable = widget.Table{
	Name:     "surveys",
	Remark:   "remarks_qualitative",
	Country:  "country",
	Region:   "region",
	Activity: "forms_verbose_consolidated",
	Program:  "program",
	Date:     "observation_date",
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Source       *sqlite.Adapter
	Provider     *llmtest.Fake
	Summarizer   *summarize.Summarizer
	Orchestrator *orchestrator.Orchestrator
	Audit        *audit.SQLiteStore
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture builds an orchestrator over an in-memory SQLite survey
// answered by provider. A nil provider replies with a fixed summary, and no
// remarks seeds DefaultRemarks.
func SetupTestFixture(t *testing.T, provider *llmtest.Fake, remarks ...TestRemark) *TestFixture {
	t.Helper()

	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	if provider == nil {
		provider = llmtest.Reply("- Pacing ", "is a strength.")
	}
	if len(remarks) == 0 {
		remarks = DefaultRemarks
	}

	src := sqlite.New(logger)
	require.NoError(t, src.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = src.Close() })

	cols := []string{TestTable.Remark, TestTable.Country, TestTable.Region, TestTable.Activity, TestTable.Program, TestTable.Date}
	require.NoError(t, src.Exec(ctx, "CREATE TABLE "+TestTable.Name+" ("+strings.Join(cols, " TEXT, ")+" TEXT)"))
	for _, r := range remarks {
		require.NoError(t, src.Exec(ctx, "INSERT INTO "+TestTable.Name+" VALUES (?, ?, ?, ?, ?, ?)",
			r.Remark, r.Country, r.Region, r.Activity, r.Program, r.Date))
	}

	catalog, err := widget.NewDefaultCatalog(src, TestTable, widget.ActivitySelection)
	require.NoError(t, err)

	store := audit.NewSQLiteStore(logger)
	require.NoError(t, store.Open(ctx, ":memory:"))
	t.Cleanup(func() { _ = store.Close() })

	sum, err := summarize.New(summarize.Config{Provider: provider, Logger: logger})
	require.NoError(t, err)

	orch, err := orchestrator.New(orchestrator.Config{
		Catalog:      catalog,
		Source:       src,
		Summarizer:   sum,
		Table:        TestTable.Name,
		RemarkColumn: TestTable.Remark,
		Recorder:     store,
		Logger:       logger,
	})
	require.NoError(t, err)

	return &TestFixture{
		Source:       src,
		Provider:     provider,
		Summarizer:   sum,
		Orchestrator: orch,
		Audit:        store,
		Notifier:     NewTestNotifier(),
		SessionStore: NewTestSessionStore(),
	}
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	// Note: caller should handle cleanup, but for tests the timeout will trigger
	_ = cancel // suppress lint warning, context will be cancelled by timeout
	return r.WithContext(ctx)
}

// NewTestNotifier creates a notifier for testing.
func NewTestNotifier() *notifier.Notifier {
	return notifier.New()
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
