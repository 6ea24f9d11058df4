package flags

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/starfederation/datastar-go/datastar"
)

// DefaultOption is recorded when the page sends no flag option.
const DefaultOption = "inaccurate"

// Recorder stores flags; *audit.SQLiteStore implements it.
type Recorder interface {
	RecordFlag(ctx context.Context, f *audit.Flag) error
}

// FlagSignals are the page signals the flag action reads. The form
// fields may have changed since the summary was made, so the selection
// stored with the result wins over them.
type FlagSignals struct {
	common.Signals
	FlagOption string        `json:"flagOption"`
	Result     common.Result `json:"result"`
}

// Selection returns the selection the shown result was made for.
func (s FlagSignals) Selection() widget.Selection {
	if s.Result.Selection != nil {
		return s.Result.Selection
	}
	return s.Signals.Selection()
}

// Handlers provides HTTP handlers for the flags feature.
type Handlers struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(recorder Recorder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{recorder: recorder, logger: logger}
}

// Flag records the result on screen and reports back in the status line.
func (h *Handlers) Flag(w http.ResponseWriter, r *http.Request) {
	signals := FlagSignals{Signals: common.DefaultSignals()}
	err := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.logger.Error("failed to read signals", slog.String("error", err.Error()))
		_ = sse.PatchElementTempl(FlagStatus(common.GenericError))
		return
	}

	if strings.TrimSpace(signals.Result.Summary) == "" {
		_ = sse.PatchElementTempl(FlagStatus("Nothing to flag yet."))
		return
	}

	option := strings.TrimSpace(signals.FlagOption)
	if option == "" {
		option = DefaultOption
	}
	remarks := signals.Result.Remarks
	if remarks == nil {
		remarks = []string{}
	}
	f := &audit.Flag{
		Option:    option,
		Selection: signals.Selection(),
		Summary:   signals.Result.Summary,
		Remarks:   remarks,
	}

	// A closed tab must not lose the flag.
	if err := h.recorder.RecordFlag(context.WithoutCancel(r.Context()), f); err != nil {
		h.logger.Error("failed to record flag", slog.String("error", err.Error()))
		_ = sse.PatchElementTempl(FlagStatus(common.GenericError))
		return
	}

	h.logger.Info("result flagged", slog.String("id", f.ID), slog.String("option", option))
	_ = sse.PatchElementTempl(FlagStatus("Flagged as " + option + ". Thank you!"))
}

// FlagStatus renders the status line next to the flag button.
func FlagStatus(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Rawf("<span id=\"flag-status\">%s</span>\n", message)
		return h.Err()
	})
}
