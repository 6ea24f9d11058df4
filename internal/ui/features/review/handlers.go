package review

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"github.com/starfederation/datastar-go/datastar"
)

// Store samples invocations and keeps grades; *audit.SQLiteStore
// implements it.
type Store interface {
	SampleInvocation(ctx context.Context) (*audit.Invocation, error)
	RecordJudgement(ctx context.Context, j *audit.Judgement) error
	JudgementCounts(ctx context.Context) (map[audit.Grade]int, error)
}

// JudgementSignals are the page signals the judgement action reads.
type JudgementSignals struct {
	InvocationID string `json:"invocationId"`
	Grade        string `json:"grade"`
}

// Handlers provides HTTP handlers for the review feature.
type Handlers struct {
	store  Store
	logger *slog.Logger
	isDev  bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store Store, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{store: store, logger: logger, isDev: isDev}
}

// ReviewPage renders a random logged summary with the grading controls.
func (h *Handlers) ReviewPage(w http.ResponseWriter, r *http.Request) {
	inv, err := h.sample(r.Context())
	if err != nil {
		h.logger.Error("failed to sample invocation", slog.String("error", err.Error()))
		http.Error(w, common.GenericError, http.StatusInternalServerError)
		return
	}
	counts, err := h.store.JudgementCounts(r.Context())
	if err != nil {
		h.logger.Error("failed to count judgements", slog.String("error", err.Error()))
		http.Error(w, common.GenericError, http.StatusInternalServerError)
		return
	}

	page := common.Page(common.PageData{
		Title: "Review summaries",
		IsDev: h.isDev,
	}, ReviewView(inv, counts))
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Judge records the grade for the summary on screen and moves on to the
// next one.
func (h *Handlers) Judge(w http.ResponseWriter, r *http.Request) {
	var signals JudgementSignals
	err := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.logger.Error("failed to read signals", slog.String("error", err.Error()))
		_ = sse.PatchElementTempl(JudgementStatus(common.GenericError))
		return
	}

	grade, err := audit.ParseGrade(signals.Grade)
	if err != nil || signals.InvocationID == "" {
		_ = sse.PatchElementTempl(JudgementStatus("Select an option."))
		return
	}

	ctx := context.WithoutCancel(r.Context())
	j := &audit.Judgement{InvocationID: signals.InvocationID, Grade: grade}
	if err := h.store.RecordJudgement(ctx, j); err != nil {
		h.logger.Error("failed to record judgement", slog.String("error", err.Error()))
		_ = sse.PatchElementTempl(JudgementStatus(common.GenericError))
		return
	}
	h.logger.Info("summary judged",
		slog.String("invocation", j.InvocationID),
		slog.String("grade", string(grade)))

	status := "Recorded as " + gradeLabel(grade) + "."
	next, err := h.sample(ctx)
	if err != nil {
		h.logger.Error("failed to sample invocation", slog.String("error", err.Error()))
		_ = sse.PatchElementTempl(JudgementStatus(status))
		return
	}
	counts, err := h.store.JudgementCounts(ctx)
	if err != nil {
		h.logger.Warn("failed to count judgements", slog.String("error", err.Error()))
	}

	_ = sse.PatchElementTempl(ReviewPanel(next))
	_ = sse.MarshalAndPatchSignals(JudgementSignals{InvocationID: invocationID(next)})
	if counts != nil {
		_ = sse.PatchElementTempl(JudgementCounts(counts))
	}
	_ = sse.PatchElementTempl(JudgementStatus(status))
}

// sample returns a random reviewable invocation, or nil when there is none.
func (h *Handlers) sample(ctx context.Context) (*audit.Invocation, error) {
	inv, err := h.store.SampleInvocation(ctx)
	if errors.Is(err, audit.ErrNothingToReview) {
		return nil, nil
	}
	return inv, err
}

func invocationID(inv *audit.Invocation) string {
	if inv == nil {
		return ""
	}
	return inv.ID
}
