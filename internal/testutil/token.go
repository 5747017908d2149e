// Package testutil provides deterministic helpers for tests.
package testutil

import "sync"

// FixedTokenGenerator returns predetermined run tokens for testing.
//
// This enables deterministic test execution and golden report
// comparison: tests provide a known sequence of tokens and verify exact
// output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator that returns tokens in
// order.
//
// Example:
//
//	gen := NewFixedTokenGenerator("run-1", "run-2")
//	gen.Generate() // "run-1"
//	gen.Generate() // "run-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. Fail-fast to catch test
// misconfiguration (the test started more runs than it expected).
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedTokenGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Remaining returns how many tokens have not been handed out yet.
func (g *FixedTokenGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tokens) - g.idx
}
