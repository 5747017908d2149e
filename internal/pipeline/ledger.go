package pipeline

import "time"

// ResultEntry records the outcome of one step: resolved display keyword,
// title, elapsed wall-clock time, and the fault (nil for passed steps).
//
// Exactly one ResultEntry is appended per step the executor attempts, and
// one per step drained as skipped after a halting failure.
type ResultEntry struct {
	// Seq is the logical clock stamp; entries appear in strictly
	// increasing seq order matching enqueue order.
	Seq int64 `json:"seq"`

	// Kind is the resolved display keyword ("Given", "When", "Then",
	// "And", "But").
	Kind string `json:"kind"`

	// Title is the step's display title.
	Title string `json:"title"`

	// Elapsed is the step's wall-clock execution time.
	// Zero for skip-drained steps, which never ran.
	Elapsed time.Duration `json:"elapsed"`

	// Err is the step's fault, nil when the step passed.
	Err error `json:"-"`
}

// Passed reports whether the step completed without a fault.
func (e ResultEntry) Passed() bool {
	return e.Err == nil
}

// Skipped reports whether the entry is a synthetic skip-drain record.
func (e ResultEntry) Skipped() bool {
	return IsSkipped(e.Err)
}

// IOEntry records per-step input/output lineage, independent of the
// result ledger.
//
// Input is the state snapshot captured immediately before the step's
// function ran; Output is the state after. On failure, Output equals
// Input: a failed step never commits a new value. Skip-drained steps get
// no IOEntry.
type IOEntry[S any] struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Input  S      `json:"input"`
	Output S      `json:"output"`
}

// Report is the append-only result ledger for one run.
//
// Exclusively owned by one executor for the duration of a run; external
// consumers read it after Run returns (or from a thrown StepError). No
// locking: concurrency safety comes from isolation, not synchronization.
type Report struct {
	// Entries holds one ResultEntry per attempted or skip-drained step,
	// in enqueue order.
	Entries []ResultEntry `json:"entries"`
}

// NewReport creates an empty result ledger.
func NewReport() *Report {
	return &Report{Entries: []ResultEntry{}}
}

// Append adds an entry to the ledger.
func (r *Report) Append(e ResultEntry) {
	r.Entries = append(r.Entries, e)
}

// Passed reports whether every recorded step passed.
func (r *Report) Passed() bool {
	for _, e := range r.Entries {
		if !e.Passed() {
			return false
		}
	}
	return true
}

// Counts returns the number of passed, failed, and skipped entries.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, e := range r.Entries {
		switch {
		case e.Passed():
			passed++
		case e.Skipped():
			skipped++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}

// RunResult exposes everything a run produced: the result ledger, the
// input/output lineage ledger, and the last successfully held state.
type RunResult[S any] struct {
	// Report is the result ledger.
	Report *Report

	// IO is the lineage ledger; len(IO) <= len(Report.Entries) because
	// skip-drained steps never get lineage.
	IO []IOEntry[S]

	// LastState is the output of the most recent successful step, or the
	// seed if no step succeeded.
	LastState S
}
