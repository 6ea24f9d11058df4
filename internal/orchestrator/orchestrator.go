// Package orchestrator runs one summarization request end to end: it turns
// a widget selection into a remark query, fetches the remarks, and hands
// them to the summarizer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/query"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/widget"
)

// Parameter widget IDs the summarizer arguments are read from.
const (
	AnalysisID = "analysis"
	PointsID   = "points"
)

// Summarizer writes summaries; *summarize.Summarizer implements it.
type Summarizer interface {
	Summarize(ctx context.Context, remarks []string, analysis, points string) (string, error)
	SummarizeStream(ctx context.Context, remarks []string, analysis, points string) (iter.Seq2[string, error], error)
}

// Recorder receives one record per invocation.
type Recorder interface {
	RecordInvocation(ctx context.Context, inv *audit.Invocation) error
}

// Config holds orchestrator dependencies.
type Config struct {
	Catalog    *widget.Catalog
	Source     widget.Source
	Summarizer Summarizer
	// Table and RemarkColumn name the remark source. Both must be validated
	// identifiers.
	Table        string
	RemarkColumn string
	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
}

// Orchestrator is immutable after New and safe for concurrent use.
type Orchestrator struct {
	catalog      *widget.Catalog
	source       widget.Source
	summarizer   Summarizer
	table        string
	remarkColumn string
	recorder     Recorder
	logger       *slog.Logger
}

// New validates cfg and creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, errors.New("orchestrator requires a widget catalog")
	case cfg.Source == nil:
		return nil, errors.New("orchestrator requires a data source")
	case cfg.Summarizer == nil:
		return nil, errors.New("orchestrator requires a summarizer")
	case cfg.Table == "" || cfg.RemarkColumn == "":
		return nil, errors.New("orchestrator requires a table and remark column")
	}
	for _, id := range []string{AnalysisID, PointsID} {
		w, ok := cfg.Catalog.Lookup(id)
		if !ok || w.Kind() != widget.KindLLM {
			return nil, fmt.Errorf("widget catalog has no %q parameter", id)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		catalog:      cfg.Catalog,
		source:       cfg.Source,
		summarizer:   cfg.Summarizer,
		table:        cfg.Table,
		remarkColumn: cfg.RemarkColumn,
		recorder:     cfg.Recorder,
		logger:       logger,
	}, nil
}

// Catalog returns the widget catalog.
func (o *Orchestrator) Catalog() *widget.Catalog {
	return o.catalog
}

// Invoke runs a blocking summarization. Only invalid input and interrupted
// provider calls come back as a Result with a message; every other failure
// is returned as an error.
func (o *Orchestrator) Invoke(ctx context.Context, sel widget.Selection) (*Result, error) {
	run := o.begin("invoke", sel)

	p, err := o.prepare(ctx, sel)
	if err != nil {
		run.finish(ctx, audit.OutcomeFatal, err)
		return nil, err
	}
	run.prepared(p)

	summary, err := o.summarizer.Summarize(ctx, p.remarks, p.analysis, p.points)
	if err != nil {
		if summarize.IsRecoverable(err) {
			run.finish(ctx, audit.OutcomeRecoverable, err)
			return &Result{Summary: err.Error()}, nil
		}
		run.finish(ctx, audit.OutcomeFatal, err)
		return nil, err
	}

	run.inv.Summary = summary
	run.finish(ctx, audit.OutcomeSucceeded, nil)
	return &Result{Summary: summary, Remarks: p.table}, nil
}

// InvokeStream runs the query eagerly and returns fatal errors directly. The
// returned sequence yields growing summary snapshots. A recoverable failure
// ends it with a single snapshot carrying the message and no remarks.
func (o *Orchestrator) InvokeStream(ctx context.Context, sel widget.Selection) (iter.Seq2[Snapshot, error], error) {
	run := o.begin("stream", sel)

	p, err := o.prepare(ctx, sel)
	if err != nil {
		run.finish(ctx, audit.OutcomeFatal, err)
		return nil, err
	}
	run.prepared(p)

	seq, err := o.summarizer.SummarizeStream(ctx, p.remarks, p.analysis, p.points)
	if err != nil {
		if !summarize.IsRecoverable(err) {
			run.finish(ctx, audit.OutcomeFatal, err)
			return nil, err
		}
		// Recorded now so a caller that never ranges is still counted.
		run.finish(ctx, audit.OutcomeRecoverable, err)
		return func(yield func(Snapshot, error) bool) {
			yield(Snapshot{Summary: err.Error()}, nil)
		}, nil
	}

	return func(yield func(Snapshot, error) bool) {
		outcome, cause := audit.OutcomeCanceled, error(nil)
		defer func() { run.finish(ctx, outcome, cause) }()

		yielded := false
		for summary, err := range seq {
			run.inv.Summary = summary
			if err != nil {
				cause = err
				if summarize.IsRecoverable(err) {
					outcome = audit.OutcomeRecoverable
					yield(Snapshot{Summary: err.Error()}, nil)
					return
				}
				outcome = audit.OutcomeFatal
				yield(Snapshot{Summary: summary, Remarks: p.table}, err)
				return
			}
			yielded = true
			if !yield(Snapshot{Summary: summary, Remarks: p.table}, nil) {
				return
			}
		}
		outcome = audit.OutcomeSucceeded
		if !yielded {
			yield(Snapshot{Remarks: p.table}, nil)
		}
	}, nil
}

type prepared struct {
	remarks  []string
	table    *RemarkTable
	analysis string
	points   string
}

// prepare builds the predicate, runs the remark query and refines the
// summary parameters.
func (o *Orchestrator) prepare(ctx context.Context, sel widget.Selection) (*prepared, error) {
	if err := o.catalog.Validate(sel); err != nil {
		return nil, err
	}

	b := query.NewBinder(o.source.Dialect())
	var fragments []string
	for f := range o.catalog.Filters() {
		values := sel.Values(f.ID())
		if len(values) == 0 {
			continue
		}
		frag, err := f.Refine(b, values)
		if err != nil {
			return nil, err
		}
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}

	sql := query.DistinctRemarks(o.table, o.remarkColumn, query.And(fragments...))
	o.logger.Debug("remark query", slog.String("sql", sql), slog.Any("args", b.Args()))

	remarks, err := o.fetch(ctx, sql, b.Args())
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, 2)
	for p := range o.catalog.Parameters() {
		v, err := p.Refine(sel.Values(p.ID()))
		if err != nil {
			return nil, err
		}
		params[p.ID()] = v
	}

	return &prepared{
		remarks:  remarks,
		table:    NewRemarkTable(remarks),
		analysis: params[AnalysisID],
		points:   params[PointsID],
	}, nil
}

func (o *Orchestrator) fetch(ctx context.Context, sql string, args []any) ([]string, error) {
	rows, err := o.source.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query remarks: %w", err)
	}
	var remarks []string
	for rec, err := range rows.Records() {
		if err != nil {
			return nil, fmt.Errorf("failed to read remarks: %w", err)
		}
		remarks = append(remarks, rec[0])
	}
	return remarks, nil
}

// invocation tracks one call for logging and the audit record.
type invocation struct {
	o     *Orchestrator
	inv   *audit.Invocation
	start time.Time
	done  bool
}

func (o *Orchestrator) begin(mode string, sel widget.Selection) *invocation {
	o.logger.Info("invocation", slog.String("mode", mode), slog.Any("selection", map[string][]string(sel)))

	inv := &audit.Invocation{Mode: mode, Selection: sel}
	if f, ok := o.summarizer.(interface{ Prompts() *summarize.Prompts }); ok {
		inv.PromptFingerprint = f.Prompts().Fingerprint()
	}
	return &invocation{o: o, inv: inv, start: time.Now()}
}

// prepared notes what the provider call will be sent.
func (r *invocation) prepared(p *prepared) {
	r.inv.RemarkCount = len(p.remarks)
	if u, ok := r.o.summarizer.(interface {
		UserPrompt(remarks []string, analysis, points string) (string, error)
	}); ok {
		// An error here is the recoverable input error the call reports itself.
		if prompt, err := u.UserPrompt(p.remarks, p.analysis, p.points); err == nil {
			r.inv.Prompt = prompt
		}
	}
}

func (r *invocation) finish(ctx context.Context, outcome audit.Outcome, err error) {
	if r.done {
		return
	}
	r.done = true
	r.inv.At = r.start
	r.inv.Duration = time.Since(r.start)
	r.inv.Outcome = outcome
	if err != nil {
		r.inv.Message = err.Error()
	}

	r.o.logger.Info("invocation finished",
		slog.String("mode", r.inv.Mode),
		slog.String("outcome", string(outcome)),
		slog.Int("remarks", r.inv.RemarkCount),
		slog.Duration("elapsed", r.inv.Duration))

	if r.o.recorder == nil {
		return
	}
	if err := r.o.recorder.RecordInvocation(context.WithoutCancel(ctx), r.inv); err != nil {
		r.o.logger.Warn("failed to record invocation", slog.String("error", err.Error()))
	}
}
