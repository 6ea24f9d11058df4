package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RecordInvocation stores inv, filling ID and At when unset.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if inv.ID == "" {
		inv.ID = generateID()
	}
	if inv.At.IsZero() {
		inv.At = time.Now()
	}

	selection, err := json.Marshal(inv.Selection)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, at, mode, selection, outcome, message, remark_count, duration_ms, prompt_fingerprint, prompt, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, formatTime(inv.At), inv.Mode, string(selection), string(inv.Outcome),
		inv.Message, inv.RemarkCount, inv.Duration.Milliseconds(), inv.PromptFingerprint,
		inv.Prompt, inv.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// DailyUsage counts invocations per UTC day from since onward, oldest first.
// Days without invocations are omitted.
func (s *SQLiteStore) DailyUsage(ctx context.Context, since time.Time) ([]DailyUsage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			substr(at, 1, 10) AS day,
			COUNT(*),
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END)
		FROM invocations
		WHERE at >= ?
		GROUP BY day
		ORDER BY day`,
		string(OutcomeSucceeded), string(OutcomeRecoverable), string(OutcomeFatal), formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var usage []DailyUsage
	for rows.Next() {
		var day string
		var u DailyUsage
		if err := rows.Scan(&day, &u.Total, &u.Succeeded, &u.Recoverable, &u.Fatal); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		if u.Day, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("invalid usage day %q: %w", day, err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}
	return usage, nil
}
