// Package scenario supplies step records to the pipeline engine.
//
// Two front ends produce the same thing, a pipeline.Queue of steps:
//
//   - Chain, a fluent Given/When/Then/And/But builder for Go callers,
//     which applies the connective phase-inheritance rule (And/But carry
//     the phase of the step declared immediately before them).
//   - Declarative YAML scenario files, strictly decoded and validated
//     (struct checks plus a CUE schema), whose step declarations are
//     bound to executable functions through an op registry.
//
// The Runner ties a scenario document to one engine run: it builds the
// queue, seeds the state, applies the declared policy, and stamps the run
// with a correlation token.
package scenario
