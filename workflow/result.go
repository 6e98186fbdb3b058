package workflow

// Status discriminates the tagged Result union returned by the DAG
// scheduler for every node on every dryRun/run.
type Status string

const (
	// StatusPending means one or more dependencies have not resolved.
	StatusPending Status = "pending"

	// StatusDone means the node computed a final value.
	StatusDone Status = "done"

	// StatusErr means the node body raised an error that is not an
	// internal interrupt.
	StatusErr Status = "err"

	// StatusIntr means the node suspended: it is waiting on external
	// input, a wall-clock deadline, or is mid-saga with a checkpoint.
	StatusIntr Status = "intr"
)

// Result is the tagged outcome of executing a single node for one
// dryRun/run. Exactly one of the status-specific fields is meaningful for
// any given Status; see the Status constants for which.
type Result struct {
	Status Status

	// Value holds the node's output for StatusDone, and the saga's
	// latest published value for StatusIntr when suspended mid-saga.
	// Nil otherwise.
	Value any

	// Err holds the node body's error for StatusErr.
	Err error

	// Nodes lists the unresolved dependency keys for StatusPending.
	Nodes []string

	// Step describes the suspension point for StatusIntr.
	Step *FullStepContext

	// EventIdx is the event count consumed before the saga iteration
	// that suspended was entered. Set only for StatusIntr reached from
	// inside a saga loop (an explicit checkpoint), per the design's invariant
	// that snapshots are written only on saga interruption.
	EventIdx *int

	// WaitUntil is the epoch-millisecond deadline for StatusIntr results
	// reached via WaitUntil/Sleep. Nil for input-based interrupts.
	WaitUntil *int64
}

// satisfiesDependency reports whether r lets a downstream node proceed.
// A dependency is satisfied if it is done, or interrupted with a defined
// value — sagas publish a partial value while suspended so downstream
// nodes may progress against the latest checkpoint.
func (r Result) satisfiesDependency() bool {
	if r.Status == StatusDone {
		return true
	}
	if r.Status == StatusIntr && r.Value != nil {
		return true
	}
	return false
}
