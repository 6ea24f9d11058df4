package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the summary feature.
type Handlers struct {
	orch         *orchestrator.Orchestrator
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
	isDev        bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(orch *orchestrator.Orchestrator, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		orch:         orch,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
		isDev:        isDev,
	}
}

// SummaryPage renders the page with the widget options and the selection
// from the previous visit.
func (h *Handlers) SummaryPage(w http.ResponseWriter, r *http.Request) {
	data, err := h.buildFormData(r)
	if err != nil {
		h.logger.Error("failed to load widget options", slog.String("error", err.Error()))
		http.Error(w, common.GenericError, http.StatusInternalServerError)
		return
	}

	page := common.Page(common.PageData{
		Title:  "Summarize remarks",
		IsDev:  h.isDev,
		Notice: h.notifier.Latest(),
	}, SummaryView(data))
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// buildFormData lists every widget with its options.
func (h *Handlers) buildFormData(r *http.Request) (FormData, error) {
	data := FormData{Selected: loadSelection(h.sessionStore, r)}
	for _, wd := range h.orch.Catalog().Widgets() {
		f := Field{ID: wd.ID(), Name: wd.Name(), Control: wd.Control()}
		for opt, err := range wd.Options(r.Context()) {
			if err != nil {
				return data, err
			}
			f.Options = append(f.Options, opt)
		}
		data.Fields = append(data.Fields, f)
	}
	return data, nil
}

// Summarize streams a summary for the posted selection. The summary panel
// is patched once per snapshot, then the remarks table and the result
// signals the flag action reads.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	signals := common.DefaultSignals()
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Error("failed to read signals", slog.String("error", err.Error()))
		sse := datastar.NewSSE(w, r)
		h.fail(sse)
		return
	}

	// The session cookie has to go out with the headers.
	if err := saveSelection(h.sessionStore, w, r, signals); err != nil {
		h.logger.Warn("failed to save selection", slog.String("error", err.Error()))
	}

	sse := datastar.NewSSE(w, r)
	h.stream(r.Context(), sse, signals)
}

func (h *Handlers) stream(ctx context.Context, sse *datastar.ServerSentEventGenerator, signals common.Signals) {
	_ = sse.MarshalAndPatchSignals(map[string]any{"result": common.Result{Remarks: []string{}}})
	_ = sse.PatchElementTempl(FlagControls(""))
	_ = sse.PatchElementTempl(RemarksTable(nil))

	seq, err := h.orch.InvokeStream(ctx, signals.Selection())
	if err != nil {
		h.logger.Error("summarization failed", slog.String("error", err.Error()))
		h.fail(sse)
		return
	}

	var last orchestrator.Snapshot
	for snap, err := range seq {
		if err != nil {
			h.logger.Error("summarization failed", slog.String("error", err.Error()))
			h.fail(sse)
			return
		}
		last = snap
		state := stateStreaming
		if snap.Remarks == nil {
			state = stateMessage
		}
		if err := sse.PatchElementTempl(SummaryOutput(snap.Summary, state)); err != nil {
			// Client went away; stopping the range cancels the provider call.
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	if last.Remarks == nil {
		_ = sse.MarshalAndPatchSignals(map[string]any{"busy": false})
		return
	}

	_ = sse.PatchElementTempl(SummaryOutput(last.Summary, stateDone))
	_ = sse.PatchElementTempl(RemarksTable(last.Remarks))
	_ = sse.MarshalAndPatchSignals(map[string]any{
		"busy": false,
		"result": common.Result{
			Summary:   last.Summary,
			Remarks:   last.Remarks.Remarks(),
			Selection: signals.Selection(),
		},
	})
}

// fail replaces the output with the generic error. The cause is logged by
// the caller.
func (h *Handlers) fail(sse *datastar.ServerSentEventGenerator) {
	_ = sse.PatchElementTempl(SummaryOutput(common.GenericError, stateError))
	_ = sse.PatchElementTempl(RemarksTable(nil))
	_ = sse.MarshalAndPatchSignals(map[string]any{"busy": false})
}

// Updates is the long-lived SSE endpoint that pushes status notices, such
// as prompt reloads, to every open page.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(common.NoticeBanner(h.notifier.Latest())); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}
