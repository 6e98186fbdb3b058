package workflow

import "time"

// StepEvent is a persisted (path, value, timestamp) triple that a node
// body's Step call observes on replay. It is the unit the event log is
// built from and the unit of the external wire format.
type StepEvent struct {
	// K is the path: K[0] is the owning node, K[1:] is the in-body step path.
	K Path `json:"k"`

	// V is the opaque value the effect call will observe on replay. The
	// engine neither inspects nor validates V; that is the node body's
	// responsibility via the declared schema.
	V any `json:"v"`

	// TS is wall time when the event was recorded, epoch milliseconds.
	TS int64 `json:"ts"`

	// inputs snapshots the declaring StepContext.Inputs at the moment
	// this event was generated by Capture within a run. It never crosses
	// the wire (callers construct plain StepEvent values without it) and
	// exists only so the dispatcher can detect a context_updated drift
	// when the same capture point replays within one run's promise loop.
	inputs []string
}

// StepEventWithC augments a StepEvent with the live StepContext that
// produced or consumed it, plus an optional snapshot of declared inputs.
// This is the shape the run orchestrator returns for newly consumed
// events, intended for external persistence and auditing.
type StepEventWithC struct {
	StepEvent
	C StepContext `json:"c"`
	I []Path      `json:"i,omitempty"`
}

// StepContext is declared by a step effect call inside a node body.
type StepContext struct {
	// Key identifies the step within the node. Combined with the node's
	// key and any nesting prefix, it forms the event's Path.
	Key string

	Title       string
	Description string

	// Deadline is an optional epoch-millisecond hint carried through to
	// FullStepContext for UI rendering; it does not itself gate anything
	// (WaitUntil is the gating primitive).
	Deadline *int64

	Extra map[string]any

	// Inputs lists identifiers the step call declares as its live inputs.
	// On replay, a mismatch between a persisted event's recorded inputs
	// and these live inputs produces a context_updated warning rather
	// than a replay divergence error — declared inputs are metadata, not
	// part of the replay identity.
	Inputs []string

	// Schema is an opaque JSON-Schema-shaped value. The engine never
	// parses or validates it; a node body that wants enforcement must
	// call out to its own schema.Parse(schema, value) (T, error) and
	// surface a validation failure as an ordinary body error.
	Schema any
}

// FullStepContext is a StepContext as surfaced outside the node body: Key
// is replaced by the fully qualified Path that identifies the suspension
// point across the whole workflow.
type FullStepContext struct {
	Path        Path
	Title       string
	Description string
	Deadline    *int64
	Extra       map[string]any
	Inputs      []string
	Schema      any
}

func fullStepContext(path Path, sc StepContext) FullStepContext {
	return FullStepContext{
		Path:        path,
		Title:       sc.Title,
		Description: sc.Description,
		Deadline:    sc.Deadline,
		Extra:       sc.Extra,
		Inputs:      sc.Inputs,
		Schema:      sc.Schema,
	}
}

// epochMillis is the default wall clock source, overridable per run via
// RunOptions.Now for deterministic testing and virtual-time simulation.
func epochMillis() int64 {
	return time.Now().UnixMilli()
}
