package workflow

import (
	"errors"
	"fmt"
)

// ErrConcurrentRun is returned when DryRun/Run is invoked while another
// run is already active on the same Workflow instance. At most one
// dryRun/run may be active per instance. Transient state is left untouched; the caller may retry
// once the in-flight run completes.
var ErrConcurrentRun = errors.New("workflow: a run is already in progress on this instance")

// ErrTimeout is returned by Run (never DryRun, which instead sets
// DryRunResult.Timeout) when a run's configured RunOptions.Timeout
// elapses before the schedule completes. No state is committed.
var ErrTimeout = errors.New("workflow: run exceeded its timeout")

// ErrTooManyPromises is the node-level error produced when a single node
// execution exceeds MaxPromises captured-promise iterations without
// reaching done, err, or intr. It almost always indicates a capture
// whose replayed event never satisfies the body's expectations.
var ErrTooManyPromises = errors.New("workflow: too many promises in a single step")

// BuildError reports every problem found while constructing a Workflow:
// duplicate node keys and references to dependencies that were never
// added. Builder.Build aggregates all problems it finds rather than
// failing on the first AddNode call (see DESIGN.md for the rationale).
type BuildError struct {
	Problems []string
}

func (e *BuildError) Error() string {
	if len(e.Problems) == 1 {
		return "workflow: build error: " + e.Problems[0]
	}
	msg := fmt.Sprintf("workflow: %d build errors:", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// ReplayDivergenceError indicates the node body diverged from its
// recorded history: the dispatcher found an event at the current cursor
// position whose path does not match the step the body is currently
// issuing. It is surfaced as a StatusErr Result on the offending node
// only; it never aborts the schedule.
type ReplayDivergenceError struct {
	Node     string
	Expected Path
	Got      Path
}

func (e *ReplayDivergenceError) Error() string {
	return fmt.Sprintf("workflow: node %s: expected event %s but got %s instead", e.Node, e.Expected, e.Got)
}

// InputInterrupt is the control-flow signal a Context facade call raises
// when a suspension point has no matching event yet: the dispatcher's
// cursor has reached the end of the available event log, or a WaitUntil
// deadline has not yet passed. It is always propagated as an ordinary Go
// error by the node body; the executor converts it into a StatusIntr
// Result.
type InputInterrupt struct {
	Step      FullStepContext
	WaitUntil *int64
}

func (e *InputInterrupt) Error() string {
	if e.WaitUntil != nil {
		return fmt.Sprintf("workflow: node suspended at %s until %d", e.Step.Path, *e.WaitUntil)
	}
	return fmt.Sprintf("workflow: node suspended at %s awaiting input", e.Step.Path)
}

// restartSignal is raised internally by Capture once it has synchronously
// invoked its side-effecting function and appended the resulting event.
// It tells the node executor to restart the promise loop so the body re-executes from the top and now finds
// the freshly appended event during replay. It never escapes the
// executor; callers never see it.
type restartSignal struct{}

func (e *restartSignal) Error() string { return "workflow: restart (internal)" }

func asInputInterrupt(err error) (*InputInterrupt, bool) {
	var ii *InputInterrupt
	if errors.As(err, &ii) {
		return ii, true
	}
	return nil, false
}

func isRestartSignal(err error) bool {
	var rs *restartSignal
	return errors.As(err, &rs)
}
