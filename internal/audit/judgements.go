package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SampleInvocation picks a random successful invocation that produced a
// summary. It returns ErrNothingToReview when there is none.
func (s *SQLiteStore) SampleInvocation(ctx context.Context) (*Invocation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		inv        Invocation
		at         string
		selection  string
		outcome    string
		durationMS int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, at, mode, selection, outcome, message, remark_count, duration_ms, prompt_fingerprint, prompt, summary
		FROM invocations
		WHERE outcome = ? AND summary <> ''
		ORDER BY random()
		LIMIT 1`,
		string(OutcomeSucceeded),
	).Scan(&inv.ID, &at, &inv.Mode, &selection, &outcome, &inv.Message, &inv.RemarkCount,
		&durationMS, &inv.PromptFingerprint, &inv.Prompt, &inv.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNothingToReview
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sample invocation: %w", err)
	}

	if inv.At, err = parseTime(at); err != nil {
		return nil, fmt.Errorf("invalid invocation time %q: %w", at, err)
	}
	if err := json.Unmarshal([]byte(selection), &inv.Selection); err != nil {
		return nil, fmt.Errorf("invalid invocation selection: %w", err)
	}
	inv.Outcome = Outcome(outcome)
	inv.Duration = time.Duration(durationMS) * time.Millisecond
	return &inv, nil
}

// RecordJudgement stores j, filling ID and At when unset. The invocation
// must exist.
func (s *SQLiteStore) RecordJudgement(ctx context.Context, j *Judgement) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if j.InvocationID == "" {
		return fmt.Errorf("judgement invocation is required")
	}
	if _, err := ParseGrade(string(j.Grade)); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = generateID()
	}
	if j.At.IsZero() {
		j.At = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judgements (id, at, invocation_id, grade) VALUES (?, ?, ?, ?)`,
		j.ID, formatTime(j.At), j.InvocationID, string(j.Grade),
	)
	if err != nil {
		return fmt.Errorf("failed to record judgement: %w", err)
	}
	return nil
}

// JudgementCounts tallies grades across all judgements.
func (s *SQLiteStore) JudgementCounts(ctx context.Context) (map[Grade]int, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT grade, COUNT(*) FROM judgements GROUP BY grade`)
	if err != nil {
		return nil, fmt.Errorf("failed to count judgements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Grade]int, len(Grades))
	for rows.Next() {
		var grade string
		var n int
		if err := rows.Scan(&grade, &n); err != nil {
			return nil, fmt.Errorf("failed to scan judgement count: %w", err)
		}
		counts[Grade(grade)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating judgement counts: %w", err)
	}
	return counts, nil
}
