package workflow

import "math/rand"

// Context is the facade presented to node bodies: the effect operations
// Get, Step, Capture, Now, Sleep, WaitUntil, and Random. A Context is
// bound to exactly one node execution iteration and must not be retained
// past the ComputeFunc/SagaFunc call that received it.
//
// Each execution iteration constructs its own Context with its own
// stepDispatcher rather than temporarily swapping a shared field on the
// Workflow, so there is no hidden temporal coupling to reason about.
type Context struct {
	nodeKey    string
	session    *runSession
	dispatcher *stepDispatcher
	wf         *Workflow
}

// Get returns the current value published by dependency k: its final
// value if k is done, or its latest partial value if k is mid-saga and
// interrupted. It returns nil if k has not published a value yet. Get
// never suspends; a node that needs a guarantee its dependency is fully
// done, not partially published, must check via the caller's own
// bookkeeping — the engine's contract is only the satisfiesDependency
// rule applied when the scheduler checks a node's dependencies.
func (c *Context) Get(key string) any {
	r, ok := c.session.tempResults[key]
	if !ok {
		return nil
	}
	if r.Status == StatusDone || r.Status == StatusIntr {
		return r.Value
	}
	return nil
}

// Step is the pure suspension primitive. It returns the value recorded
// for this step on replay, or an error wrapping *InputInterrupt when no
// such event exists yet. Callers must propagate a non-nil error
// immediately.
func (c *Context) Step(sc StepContext) (any, error) {
	return c.dispatcher.step(sc)
}

// Capture is an idempotent side effect: fn runs at most once per distinct
// (node, capture path) across the lifetime of a workflow instance
// (excluding Spawn, which starts a fresh log). The step key is prefixed
// with "capture:" to keep the capture namespace visually distinct from
// plain Step calls in recorded paths.
//
// fn is invoked synchronously — a goroutine can simply block rather than
// needing an awaitable/plain-value split. What is preserved is the
// restart-based promise loop itself: once fn's result is
// appended to the event log, Capture returns the internal restart signal
// so the executor re-invokes the node body from the top, and this same
// call now replays its freshly-recorded value instead of invoking fn
// again.
func (c *Context) Capture(sc StepContext, fn func() (any, error)) (any, error) {
	sc.Key = "capture:" + sc.Key

	v, err := c.dispatcher.step(sc)
	if err == nil {
		return v, nil
	}

	ii, ok := asInputInterrupt(err)
	if !ok {
		return nil, err
	}

	result, ferr := fn()
	if ferr != nil {
		return nil, ferr
	}
	c.wf.metrics.observeCapture()

	fullKey := ii.Step.Path
	ev := StepEvent{K: fullKey, V: result, TS: c.wf.nowFor(c.session), inputs: sc.Inputs}
	c.session.tempNewEvents[c.nodeKey] = append(c.session.tempNewEvents[c.nodeKey], ev)
	c.session.consumedEvents = append(c.session.consumedEvents, StepEventWithC{StepEvent: ev, C: sc})

	return nil, &restartSignal{}
}

// nowSchema and randomSchema document the shape Now/Random capture under,
// for embedders that introspect FullStepContext.Schema on an interrupt
// (unreachable in practice since both are captures, not raw Steps).
var (
	nowSchema    = map[string]any{"type": "integer", "description": "epoch milliseconds"}
	randomSchema = map[string]any{"type": "number", "minimum": 0, "maximum": 1}
	waitSchema   = map[string]any{"type": "null", "description": "resumes once the deadline passes"}
)

// Now returns a deterministically replayable wall-clock reading, captured
// the first time it is reached and replayed verbatim thereafter.
func (c *Context) Now() (int64, error) {
	v, err := c.Capture(StepContext{Key: "now", Schema: nowSchema}, func() (any, error) {
		return c.wf.nowFor(c.session), nil
	})
	if err != nil {
		return 0, err
	}
	n, _ := v.(int64)
	return n, nil
}

// Random returns a deterministically replayable uniform value in [0, 1).
func (c *Context) Random() (float64, error) {
	v, err := c.Capture(StepContext{Key: "random", Schema: randomSchema}, func() (any, error) {
		return rand.Float64(), nil // #nosec G404 -- replay determinism, not security
	})
	if err != nil {
		return 0, err
	}
	f, _ := v.(float64)
	return f, nil
}

// Sleep suspends until deltaMillis after the current captured time.
// extra, if non-nil, seeds Title/Description/Deadline/Extra/Inputs for
// the resulting interrupt's step context. Sleep delegates to WaitUntil,
// so the suspension path always ends in "waitUntil" and its Schema is
// always the wait schema, whatever extra carries.
func (c *Context) Sleep(deltaMillis int64, extra *StepContext) error {
	now, err := c.Now()
	if err != nil {
		return err
	}
	return c.WaitUntil(now+deltaMillis, withKey(extra, "sleep"))
}

// WaitUntil suspends until the wall clock reaches deadline (epoch
// milliseconds). Unlike Step/Capture, WaitUntil never consults or
// advances the event-log cursor: it is a pure clock gate, re-evaluated
// fresh on every resumption, per the design.
func (c *Context) WaitUntil(deadline int64, extra *StepContext) error {
	if c.wf.nowFor(c.session) < deadline {
		sc := withKey(extra, "waitUntil")
		fullKey := appendKey(c.session.currentKeys, sc.Key)
		full := fullStepContext(fullKey, *sc)
		full.Schema = waitSchema
		return &InputInterrupt{Step: full, WaitUntil: &deadline}
	}
	return nil
}

func withKey(sc *StepContext, key string) *StepContext {
	out := StepContext{Key: key, Schema: waitSchema}
	if sc != nil {
		out = *sc
		out.Key = key
	}
	return &out
}

// nowFor is unexported scaffolding shared by Workflow and Context so both
// honor RunOptions.Now without importing context.Context semantics into
// the session type.
func (w *Workflow) nowFor(s *runSession) int64 {
	return s.opts.now()
}
