package scenario

// State is the key-value run state that declarative scenarios transform.
//
// Ops never mutate a State in place: every transforming op clones the map
// and returns the copy. This keeps the lineage ledger's input/output
// snapshots independent - an IOEntry's input must not alias a map a later
// step writes to.
type State map[string]any

// Clone returns a shallow copy of the state.
// Values are treated as immutable by convention (ops replace, not mutate).
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
