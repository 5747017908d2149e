package pipeline

import "sync/atomic"

// Clock is a monotonic logical clock for ledger entry ordering.
//
// Every ledger entry is stamped with a strictly increasing seq number from
// this clock, so ordering is explicit rather than inferred from wall-clock
// timestamps. Wall-clock time is recorded separately (elapsed per step) and
// never used for ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although a single run stamps entries from one goroutine only.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
