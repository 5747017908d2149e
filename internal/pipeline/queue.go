package pipeline

import "sync"

// Queue is a thread-safe FIFO queue of steps awaiting execution.
//
// The queue is unbounded so a chain builder can enqueue arbitrarily long
// scenarios without blocking. Thread-safety covers the enqueue side
// (builders may run on any goroutine); the executor's Run loop is the
// single dequeuer. In practice most usage is single-threaded.
type Queue[S any] struct {
	mu    sync.Mutex
	steps []Step[S]
}

// NewQueue creates an empty step queue.
func NewQueue[S any]() *Queue[S] {
	return &Queue[S]{
		steps: make([]Step[S], 0, 16), // Pre-allocate for typical scenario sizes
	}
}

// Enqueue appends a step to the back of the queue.
// Thread-safe: may be called from any goroutine.
func (q *Queue[S]) Enqueue(s Step[S]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steps = append(q.steps, s)
}

// Dequeue removes and returns the front step.
// Returns (zero, false) if the queue is empty.
func (q *Queue[S]) Dequeue() (Step[S], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.steps) == 0 {
		var zero Step[S]
		return zero, false
	}

	s := q.steps[0]

	// Nil out the slot so the step's Func (and anything it closes over)
	// is collectable even while the backing array is retained.
	q.steps[0] = Step[S]{}

	if len(q.steps) == 1 {
		q.steps = q.steps[:0]
	} else {
		q.steps = q.steps[1:]
	}

	return s, true
}

// Len returns the current number of queued steps.
func (q *Queue[S]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steps)
}
