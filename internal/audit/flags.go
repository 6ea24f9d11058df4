package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RecordFlag stores f, filling ID and At when unset.
func (s *SQLiteStore) RecordFlag(ctx context.Context, f *Flag) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if f.Option == "" {
		return fmt.Errorf("flag option is required")
	}
	if f.ID == "" {
		f.ID = generateID()
	}
	if f.At.IsZero() {
		f.At = time.Now()
	}

	selection, err := json.Marshal(f.Selection)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	remarks, err := json.Marshal(f.Remarks)
	if err != nil {
		return fmt.Errorf("failed to encode remarks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flags (id, at, option, selection, summary, remarks) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, formatTime(f.At), f.Option, string(selection), f.Summary, string(remarks),
	)
	if err != nil {
		return fmt.Errorf("failed to record flag: %w", err)
	}
	return nil
}

// ListFlags returns flags recorded at or after since, oldest first.
func (s *SQLiteStore) ListFlags(ctx context.Context, since time.Time) ([]*Flag, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, option, selection, summary, remarks FROM flags WHERE at >= ? ORDER BY at, id`,
		formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var flags []*Flag
	for rows.Next() {
		var at, selection, remarks string
		f := &Flag{}
		if err := rows.Scan(&f.ID, &at, &f.Option, &selection, &f.Summary, &remarks); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		if f.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("invalid flag time %q: %w", at, err)
		}
		if err := json.Unmarshal([]byte(selection), &f.Selection); err != nil {
			return nil, fmt.Errorf("invalid flag selection: %w", err)
		}
		if err := json.Unmarshal([]byte(remarks), &f.Remarks); err != nil {
			return nil, fmt.Errorf("invalid flag remarks: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flags: %w", err)
	}
	return flags, nil
}
