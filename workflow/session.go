package workflow

import (
	"fmt"
	"time"
)

// RunOptions configures a single DryRun/Run call.
type RunOptions struct {
	// Timeout bounds the whole schedule. Zero means no timeout.
	Timeout time.Duration

	// Now overrides the wall clock used by Context.Now, Context.Sleep,
	// and Context.WaitUntil's deadline comparison. Nil uses the system
	// clock. Supplying a deterministic Now is essential for tests and
	// for a scheduler simulator that wants to compress virtual time.
	Now func() int64
}

func (o RunOptions) now() int64 {
	if o.Now != nil {
		return o.Now()
	}
	return epochMillis()
}

// runSession is the explicit, never-nil owner of all state transient to
// one active DryRun call: it only exists for the lifetime of one run, so
// its fields are never nil checks away from a real value.
type runSession struct {
	opts RunOptions

	// deadline is the absolute wall-clock instant this run must stop by,
	// computed once from opts.Timeout when the session is created. The
	// zero Time means no deadline. Every place that needs to honor
	// RunOptions.Timeout — the scheduler's between-node check and the
	// saga loop's between-iteration check alike — reads this single
	// value rather than each racing its own timer.
	deadline time.Time

	// runID identifies this DryRun/Run call for correlating emitted
	// events and logs. It has no durability meaning of its own: the
	// Workflow's event log is keyed by node, not by run.
	runID string

	// incomingEvents is the caller-supplied event slice, bucketed by
	// owning node key. Events addressed to an unknown node are bucketed
	// like any other but never read, since no dispatcher exists for that
	// key; events with an empty path are dropped.
	incomingEvents map[string][]StepEvent

	// tempResults accumulates each node's Result as the scheduler visits
	// it in topological order; later nodes read it to decide dependency
	// satisfaction.
	tempResults map[string]Result

	// tempNewEvents holds events synthesized during this run (from
	// Capture) before they are committed to the workflow's durable event
	// log by Run.
	tempNewEvents map[string][]StepEvent

	// consumedEvents is every event a dispatcher positively matched
	// during this run, enriched with its live StepContext. This is the
	// value DryRunResult.NewEvents is built from.
	consumedEvents []StepEventWithC

	warnings []string

	// currentKeys is the path-prefix stack. It is always exactly
	// [nodeKey] in this engine; it is kept as a slice (rather than a bare
	// string) to allow future nested-workflow support without a type
	// change.
	currentKeys []string
}

func newRunSession(runID string, incoming []StepEvent, opts RunOptions) *runSession {
	s := &runSession{
		opts:           opts,
		runID:          runID,
		incomingEvents: make(map[string][]StepEvent),
		tempResults:    make(map[string]Result),
		tempNewEvents:  make(map[string][]StepEvent),
	}
	if opts.Timeout > 0 {
		s.deadline = time.Now().Add(opts.Timeout)
	}
	for _, ev := range incoming {
		if len(ev.K) == 0 {
			continue
		}
		node := ev.K[0]
		s.incomingEvents[node] = append(s.incomingEvents[node], ev)
	}
	return s
}

// timedOut reports whether this run's deadline, if any, has passed.
func (s *runSession) timedOut() bool {
	return !s.deadline.IsZero() && !time.Now().Before(s.deadline)
}

func (s *runSession) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}
