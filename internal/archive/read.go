package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ReadRun for unknown tokens.
var ErrRunNotFound = fmt.Errorf("run not found")

// RunSummary is one row of a run listing.
type RunSummary struct {
	Token     string
	Scenario  string
	StartedAt time.Time
	Halted    bool
	Passed    int
	Failed    int
	Skipped   int
}

// ReadRun returns one archived run with its result ledger and lineage
// rows, ordered by seq.
func (s *Store) ReadRun(ctx context.Context, token string) (*RunRecord, error) {
	rec := RunRecord{Token: token}

	var startedAt string
	var halted int
	var snapshot string
	err := s.db.QueryRowContext(ctx, `
		SELECT scenario, started_at, halted, passed, failed, skipped, snapshot
		FROM runs
		WHERE token = ?
	`, token).Scan(&rec.Scenario, &startedAt, &halted, &rec.Passed, &rec.Failed, &rec.Skipped, &snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rec.Halted = halted != 0
	rec.Snapshot = []byte(snapshot)
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	if rec.Steps, err = s.readSteps(ctx, token); err != nil {
		return nil, err
	}
	if rec.IO, err = s.readIO(ctx, token); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Store) readSteps(ctx context.Context, token string) ([]StepRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, title, status, error, elapsed_ns
		FROM step_results
		WHERE run_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	steps := []StepRow{}
	for rows.Next() {
		var step StepRow
		var errText sql.NullString
		var elapsedNS int64
		if err := rows.Scan(&step.Seq, &step.Kind, &step.Title, &step.Status, &errText, &elapsedNS); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		step.Error = errText.String
		step.Elapsed = time.Duration(elapsedNS)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step results: %w", err)
	}

	return steps, nil
}

func (s *Store) readIO(ctx context.Context, token string) ([]IORow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, title, input, output
		FROM step_io
		WHERE run_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query step io: %w", err)
	}
	defer rows.Close()

	entries := []IORow{}
	for rows.Next() {
		var entry IORow
		if err := rows.Scan(&entry.Seq, &entry.Kind, &entry.Title, &entry.Input, &entry.Output); err != nil {
			return nil, fmt.Errorf("scan step io: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step io: %w", err)
	}

	return entries, nil
}

// ListRuns returns summaries for every archived run, newest first.
// Run tokens are UUIDv7, so token order doubles as creation order; the
// explicit started_at ordering keeps listings stable even for runs
// archived with caller-pinned tokens.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, scenario, started_at, halted, passed, failed, skipped
		FROM runs
		ORDER BY started_at DESC, token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var sum RunSummary
		var startedAt string
		var halted int
		if err := rows.Scan(&sum.Token, &sum.Scenario, &startedAt, &halted, &sum.Passed, &sum.Failed, &sum.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.Halted = halted != 0
		if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return summaries, nil
}
