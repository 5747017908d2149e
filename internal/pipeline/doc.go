// Package pipeline implements the sequential step execution engine.
//
// The engine turns an ordered queue of declared steps (setup, action,
// assertion, and And/But continuations) into a reproducible execution
// trace with well-defined failure semantics.
//
// ARCHITECTURE:
//
// Single-Run Sequential Loop:
// Each run owns its queue, ledger, and state cell exclusively. Steps
// execute strictly one at a time on the calling goroutine. This ensures:
//   - Deterministic result and lineage ordering (FIFO, matching enqueue order)
//   - No locking on the ledger or state cell (isolation, not synchronization)
//   - Simple reasoning about which state each step observed
//
// Step Processing Flow:
//  1. Steps enqueued to a FIFO queue by a chain builder or scenario loader
//  2. Executor.Run dequeues steps one at a time
//  3. Each step's function transforms the current state value
//  4. Exactly one ResultEntry (and, for attempted steps, one IOEntry)
//     is recorded per step, regardless of exit path
//  5. Failure classification decides continue / halt / skip-drain per policy
//
// Cross-run parallelism is the caller's responsibility: give each run its
// own Executor, queue, and seed. The package has no process-wide state.
//
// FAILURE TAXONOMY:
//
// Three disjoint categories, each handled differently:
//   - Cancellation (caller's context or per-step timeout): always propagates
//   - AssertionError (expected condition not met): halt gated by policy
//   - StepError (any other failure): halt and skip-drain gated by policy
//
// Skip-drained steps get a synthetic SkippedError so consumers can tell
// "never ran" apart from "ran and failed".
package pipeline
