package review

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/testutil"
	"github.com/leapstack-labs/remarkql/internal/ui/features"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"github.com/leapstack-labs/remarkql/internal/widget"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

// summarizeOnce logs one successful invocation and returns it.
func summarizeOnce(t *testing.T, fixture *features.TestFixture) *audit.Invocation {
	t.Helper()
	ctx := context.Background()

	_, err := fixture.Orchestrator.Invoke(ctx, widget.Selection{
		"program":  {"Literacy"},
		"analysis": {"Best practices"},
	})
	require.NoError(t, err)

	inv, err := fixture.Audit.SampleInvocation(ctx)
	require.NoError(t, err)
	return inv
}

func postJudgement(h *Handlers, body string) string {
	req := httptest.NewRequest(http.MethodPost, "/api/judgement", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Judge(rec, req)
	return rec.Body.String()
}

type brokenStore struct {
	Store
}

func (brokenStore) SampleInvocation(context.Context) (*audit.Invocation, error) {
	return nil, errors.New("database is locked")
}

func (brokenStore) RecordJudgement(context.Context, *audit.Judgement) error {
	return errors.New("database is locked")
}

// =============================================================================
// ReviewPage Tests
// =============================================================================

func TestReviewPage_ShowsPromptAndResponse(t *testing.T) {
	fixture := features.SetupTestFixture(t, nil)
	inv := summarizeOnce(t, fixture)
	h := NewHandlers(fixture.Audit, testutil.NewTestLogger(t), false)

	rec := httptest.NewRecorder()
	h.ReviewPage(rec, httptest.NewRequest(http.MethodGet, "/review", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Review summaries - remarkql</title>",
		`&#34;invocationId&#34;:&#34;` + inv.ID + `&#34;`,
		"<dt>program</dt><dd>Literacy</dd>",
		"Remark 1: Great pacing.",
		"Remark 2: Needs more examples.",
		`<pre class="response">- Pacing is a strength.</pre>`,
		`<option value="incorrect">Incorrect</option>`,
		`<option value="decent">Decent</option>`,
		`<option value="correct">Correct</option>`,
		`<option value="unsure">Unsure</option>`,
		"@post('/api/judgement')",
		"<li>Correct: 0</li>",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
}

func TestReviewPage_NothingToReview(t *testing.T) {
	fixture := features.SetupTestFixture(t, nil)
	h := NewHandlers(fixture.Audit, nil, false)

	rec := httptest.NewRecorder()
	h.ReviewPage(rec, httptest.NewRequest(http.MethodGet, "/review", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing to review yet.")
	assert.Contains(t, rec.Body.String(), `&#34;invocationId&#34;:&#34;&#34;`)
}

func TestReviewPage_StoreFailure(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	h := NewHandlers(brokenStore{}, logger, false)

	rec := httptest.NewRecorder()
	h.ReviewPage(rec, httptest.NewRequest(http.MethodGet, "/review", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), common.GenericError)
	assert.NotContains(t, rec.Body.String(), "database is locked")
	assert.Contains(t, logs.String(), "level=ERROR")
}

// =============================================================================
// Judge Tests - SSE responses
// =============================================================================

func TestJudge_RecordsGradeAndMovesOn(t *testing.T) {
	fixture := features.SetupTestFixture(t, nil)
	inv := summarizeOnce(t, fixture)
	h := NewHandlers(fixture.Audit, testutil.NewTestLogger(t), false)

	body := postJudgement(h, `{"invocationId": "`+inv.ID+`", "grade": "correct"}`)

	assert.Contains(t, body, "event: datastar-patch-elements")
	assert.Contains(t, body, "Recorded as Correct.")
	assert.Contains(t, body, `id="review-panel"`, "the next summary replaces the graded one")
	assert.Contains(t, body, "event: datastar-patch-signals")
	assert.Contains(t, body, `"grade":""`, "the picker is cleared")
	assert.Contains(t, body, "<li>Correct: 1</li>")

	counts, err := fixture.Audit.JudgementCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[audit.Grade]int{audit.GradeCorrect: 1}, counts)
}

func TestJudge_NeedsGrade(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no grade", body: `{"invocationId": "abc", "grade": ""}`},
		{name: "unknown grade", body: `{"invocationId": "abc", "grade": "excellent"}`},
		{name: "no invocation", body: `{"invocationId": "", "grade": "correct"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := features.SetupTestFixture(t, nil)
			h := NewHandlers(fixture.Audit, nil, false)

			assert.Contains(t, postJudgement(h, tt.body), "Select an option.")

			counts, err := fixture.Audit.JudgementCounts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, counts)
		})
	}
}

func TestJudge_Errors(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		body  string
	}{
		{name: "malformed signals", store: brokenStore{}, body: `{`},
		{name: "store failure", store: brokenStore{}, body: `{"invocationId": "abc", "grade": "decent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewCaptureLogger()
			h := NewHandlers(tt.store, logger, false)

			body := postJudgement(h, tt.body)
			assert.Contains(t, body, common.GenericError)
			assert.NotContains(t, body, "database is locked")
			assert.Contains(t, logs.String(), "level=ERROR")
		})
	}
}

// =============================================================================
// Route Tests
// =============================================================================

func TestSetupRoutes_BasicAuth(t *testing.T) {
	fixture := features.SetupTestFixture(t, nil)

	r := chi.NewMux()
	require.NoError(t, SetupRoutes(r, fixture.Audit, map[string]string{"reviewer": "s3cret"}, nil, false))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/review", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/review", nil)
	req.SetBasicAuth("reviewer", "s3cret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_Open(t *testing.T) {
	fixture := features.SetupTestFixture(t, nil)

	r := chi.NewMux()
	require.NoError(t, SetupRoutes(r, fixture.Audit, nil, nil, false))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/review", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
