package scenario

import (
	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// Chain is a fluent builder that enqueues steps in declaration order.
//
// And/But are phase-transparent: they always carry the phase of the step
// declared immediately before them, so callers can write
// Given -> And -> When -> And/But -> Then -> And chains. A chain that
// opens with And/But (no preceding step) defaults to the Given phase.
//
// Chain is not safe for concurrent use; build the chain on one goroutine,
// then hand the queue to an executor.
type Chain[S any] struct {
	queue     *pipeline.Queue[S]
	lastPhase pipeline.Phase
}

// NewChain creates an empty chain.
func NewChain[S any]() *Chain[S] {
	return &Chain[S]{
		queue:     pipeline.NewQueue[S](),
		lastPhase: pipeline.PhaseGiven,
	}
}

// Given declares a setup step.
func (c *Chain[S]) Given(title string, fn pipeline.Func[S]) *Chain[S] {
	return c.primary(pipeline.PhaseGiven, title, fn)
}

// When declares an action step.
func (c *Chain[S]) When(title string, fn pipeline.Func[S]) *Chain[S] {
	return c.primary(pipeline.PhaseWhen, title, fn)
}

// Then declares an assertion step.
func (c *Chain[S]) Then(title string, fn pipeline.Func[S]) *Chain[S] {
	return c.primary(pipeline.PhaseThen, title, fn)
}

// And continues the previous step's phase.
func (c *Chain[S]) And(title string, fn pipeline.Func[S]) *Chain[S] {
	return c.connective(pipeline.ConnAnd, title, fn)
}

// But continues the previous step's phase with a contrast reading.
func (c *Chain[S]) But(title string, fn pipeline.Func[S]) *Chain[S] {
	return c.connective(pipeline.ConnBut, title, fn)
}

// Queue returns the built step queue, ready for an executor.
func (c *Chain[S]) Queue() *pipeline.Queue[S] {
	return c.queue
}

// Len returns the number of steps declared so far.
func (c *Chain[S]) Len() int {
	return c.queue.Len()
}

func (c *Chain[S]) primary(phase pipeline.Phase, title string, fn pipeline.Func[S]) *Chain[S] {
	c.lastPhase = phase
	c.queue.Enqueue(pipeline.Step[S]{
		Phase:      phase,
		Connective: pipeline.ConnPrimary,
		Title:      title,
		Func:       fn,
	})
	return c
}

func (c *Chain[S]) connective(conn pipeline.Connective, title string, fn pipeline.Func[S]) *Chain[S] {
	c.queue.Enqueue(pipeline.Step[S]{
		Phase:      c.lastPhase,
		Connective: conn,
		Title:      title,
		Func:       fn,
	})
	return c
}
