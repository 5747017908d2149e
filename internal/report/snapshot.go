package report

import (
	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// Step execution statuses as they appear in snapshots.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Snapshot is the deterministic form of one run's result ledger.
// It carries no timings: two runs of the same scenario with the same
// outcome produce byte-identical canonical snapshots.
type Snapshot struct {
	Scenario string
	RunToken string
	Steps    []StepSnapshot
	Passed   int
	Failed   int
	Skipped  int
}

// StepSnapshot is one ledger entry without its elapsed time.
type StepSnapshot struct {
	Seq     int64
	Keyword string
	Title   string
	Status  string
	Error   string
}

// NewSnapshot derives a snapshot from a result ledger.
func NewSnapshot(scenarioName, runToken string, rep *pipeline.Report) Snapshot {
	snap := Snapshot{
		Scenario: scenarioName,
		RunToken: runToken,
		Steps:    make([]StepSnapshot, 0, len(rep.Entries)),
	}

	for _, entry := range rep.Entries {
		step := StepSnapshot{
			Seq:     entry.Seq,
			Keyword: entry.Kind,
			Title:   entry.Title,
			Status:  entryStatus(entry),
		}
		if step.Status == StatusFailed {
			step.Error = entry.Err.Error()
		}
		snap.Steps = append(snap.Steps, step)
	}

	snap.Passed, snap.Failed, snap.Skipped = rep.Counts()
	return snap
}

func entryStatus(entry pipeline.ResultEntry) string {
	switch {
	case entry.Skipped():
		return StatusSkipped
	case entry.Passed():
		return StatusPassed
	default:
		return StatusFailed
	}
}

// toCanonicalMap converts the snapshot to the map form MarshalCanonical
// accepts. Empty optional fields are omitted entirely rather than
// serialized as empty strings.
func (s Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, step := range s.Steps {
		m := map[string]any{
			"seq":     step.Seq,
			"keyword": step.Keyword,
			"title":   step.Title,
			"status":  step.Status,
		}
		if step.Error != "" {
			m["error"] = step.Error
		}
		steps[i] = m
	}

	doc := map[string]any{
		"scenario": s.Scenario,
		"steps":    steps,
		"summary": map[string]any{
			"passed":  s.Passed,
			"failed":  s.Failed,
			"skipped": s.Skipped,
		},
	}
	if s.RunToken != "" {
		doc["run_token"] = s.RunToken
	}
	return doc
}
