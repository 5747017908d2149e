// Package report turns a run's result ledger into human and machine
// readable forms.
//
// Two output paths with different determinism guarantees:
//
//   - Render writes a human-readable text report. It includes per-step
//     elapsed times, so its output varies run to run.
//   - Snapshot + MarshalCanonical produce a byte-deterministic JSON
//     form (sorted keys, NFC strings, no timings) suitable for golden
//     file comparison and archival.
package report
