package workflow

import "context"

// ComputeFunc is a node's body. It receives the ambient context.Context
// (for cancellation) and a Context facade bound to the node's active
// execution, and returns either a final value or an error.
//
// A ComputeFunc is re-invoked from the top on every promise-loop
// iteration, so it must be safe to re-execute: any prior
// Step/Capture calls whose events already exist in the log replay
// instantly from the dispatcher rather than re-running side effects.
//
// When a call into the Context facade suspends (Step, WaitUntil, or an
// unresolved Capture), the returned error wraps an *InputInterrupt or the
// internal restart signal; the body's job is simply to propagate it
// immediately, exactly like any other Go error:
//
//	v, err := wc.Step(workflow.StepContext{Key: "need_number"})
//	if err != nil {
//	    return nil, err
//	}
type ComputeFunc func(ctx context.Context, wc *Context) (any, error)

// SagaAction is the saga loop's control signal.
type SagaAction string

const (
	// SagaCont continues the saga: the saga function runs again with the
	// new value on the next iteration.
	SagaCont SagaAction = "cont"

	// SagaHalt ends the saga: the node's Result becomes StatusDone with
	// the final value.
	SagaHalt SagaAction = "halt"
)

// SagaFunc is an iterative post-compute loop. It receives the node's
// current value and returns the next action and value. A SagaFunc may
// itself suspend (by calling Step/WaitUntil/Capture through the Context),
// in which case the node's Result becomes StatusIntr with a checkpoint
// (EventIdx, Value) that is restored on the next resumption instead of
// re-running Compute.
type SagaFunc func(ctx context.Context, wc *Context, value any) (SagaAction, any, error)

// NodeSpec is an immutable node descriptor. It is never mutated after
// Build(); a Workflow's node map is built once and shared freely between
// a parent workflow and any Spawn/Fork.
type NodeSpec struct {
	// Key uniquely identifies the node within the workflow.
	Key string

	// Dependencies lists node keys this node's Compute may Get(). Every
	// entry must already have been added to the builder before this node.
	Dependencies []string

	// Group is an optional classification tag, surfaced via Topology.
	Group string

	Title       string
	Description string

	// Schema is an opaque JSON-Schema-shaped description of this node's
	// output value. The engine never validates against it.
	Schema any

	Compute ComputeFunc

	// Saga is optional. When set, Compute's return value seeds the saga
	// loop; when nil, Compute's return value is the node's final value.
	Saga SagaFunc
}

// IsSaga reports whether this node runs a post-compute saga loop.
func (n NodeSpec) IsSaga() bool {
	return n.Saga != nil
}
