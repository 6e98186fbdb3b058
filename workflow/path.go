// Package workflow implements a durable, interruptible execution engine
// built around a typed directed acyclic graph of compute nodes.
//
// Each node computes a value from its dependencies using imperative code
// that may suspend on four kinds of effects: awaiting external input,
// sleeping until a wall-clock deadline, capturing a side-effect result, or
// yielding inside a long-running saga. Suspension is resumed by
// re-executing the node against a persisted event log; a deterministic
// replay protocol makes the node body idempotent across resumptions.
package workflow

import "strings"

// Path is the owning node's key followed by the in-body step identifier.
// It is the unit of identity for a StepEvent: two events with equal paths
// address the same suspension point in the same node.
type Path []string

// Equal reports whether p and o address the same step.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the path as a dotted string, for error messages and logs.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// appendKey returns a new Path with key appended, never aliasing p's backing array.
func appendKey(p []string, key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}
