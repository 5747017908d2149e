package archive

import (
	"context"
	"fmt"
	"time"
)

// WriteRun archives a run atomically: the run row, its result ledger,
// and its lineage rows all land in one transaction.
//
// Uses ON CONFLICT(token) DO NOTHING for idempotency - re-archiving the
// same run token is a silent no-op, including its child rows.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(token, scenario, started_at, halted, passed, failed, skipped, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		rec.Token,
		rec.Scenario,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(rec.Halted),
		rec.Passed,
		rec.Failed,
		rec.Skipped,
		string(rec.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: rows affected: %w", err)
	}
	if inserted == 0 {
		// Run already archived; child rows were written with it.
		return nil
	}

	for _, step := range rec.Steps {
		var errText any
		if step.Error != "" {
			errText = step.Error
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO step_results
			(run_token, seq, kind, title, status, error, elapsed_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			rec.Token, step.Seq, step.Kind, step.Title, step.Status, errText, step.Elapsed.Nanoseconds(),
		)
		if err != nil {
			return fmt.Errorf("write step result seq %d: %w", step.Seq, err)
		}
	}

	for _, io := range rec.IO {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO step_io
			(run_token, seq, kind, title, input, output)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			rec.Token, io.Seq, io.Kind, io.Title, io.Input, io.Output,
		)
		if err != nil {
			return fmt.Errorf("write step io seq %d: %w", io.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
