package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/report"
	"github.com/JerrettDavis/TinyBDD-sub003/internal/scenario"
)

// RunRecord is one run prepared for archival.
type RunRecord struct {
	Token     string
	Scenario  string
	StartedAt time.Time
	Halted    bool
	Passed    int
	Failed    int
	Skipped   int

	// Snapshot is the run's canonical JSON snapshot.
	Snapshot []byte

	Steps []StepRow
	IO    []IORow
}

// StepRow is one result ledger entry as stored.
type StepRow struct {
	Seq     int64
	Kind    string
	Title   string
	Status  string
	Error   string
	Elapsed time.Duration
}

// IORow is one lineage ledger entry as stored. Input and Output hold
// JSON-serialized state snapshots.
type IORow struct {
	Seq    int64
	Kind   string
	Title  string
	Input  string
	Output string
}

// FromOutcome converts a finished run into its archival record.
// State snapshots are serialized with encoding/json, which sorts map
// keys, so lineage rows are stable for a given state.
func FromOutcome(outcome *scenario.Outcome, startedAt time.Time) (RunRecord, error) {
	snap := report.NewSnapshot(outcome.Scenario, outcome.Token, outcome.Result.Report)

	snapshot, err := report.MarshalSnapshot(snap)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	rec := RunRecord{
		Token:     outcome.Token,
		Scenario:  outcome.Scenario,
		StartedAt: startedAt.UTC(),
		Halted:    outcome.HaltErr != nil,
		Passed:    snap.Passed,
		Failed:    snap.Failed,
		Skipped:   snap.Skipped,
		Snapshot:  snapshot,
		Steps:     make([]StepRow, 0, len(snap.Steps)),
		IO:        make([]IORow, 0, len(outcome.Result.IO)),
	}

	for i, step := range snap.Steps {
		rec.Steps = append(rec.Steps, StepRow{
			Seq:     step.Seq,
			Kind:    step.Keyword,
			Title:   step.Title,
			Status:  step.Status,
			Error:   step.Error,
			Elapsed: outcome.Result.Report.Entries[i].Elapsed,
		})
	}

	for _, entry := range outcome.Result.IO {
		input, err := json.Marshal(entry.Input)
		if err != nil {
			return RunRecord{}, fmt.Errorf("marshal input for seq %d: %w", entry.Seq, err)
		}
		output, err := json.Marshal(entry.Output)
		if err != nil {
			return RunRecord{}, fmt.Errorf("marshal output for seq %d: %w", entry.Seq, err)
		}
		rec.IO = append(rec.IO, IORow{
			Seq:    entry.Seq,
			Kind:   entry.Kind,
			Title:  entry.Title,
			Input:  string(input),
			Output: string(output),
		})
	}

	return rec, nil
}
