package workflow

import "context"

// MaxPromises bounds the promise loop: the number of times a single node
// execution may run its body (the first run plus every restart after a
// captured side effect) before the executor gives up and reports
// ErrTooManyPromises.
const MaxPromises = 1000

// executeNode drives one node to completion, interruption, or error.
// It is called by the scheduler once per node per dryRun, after
// all of the node's dependencies have already been visited.
func executeNode(ctx context.Context, wf *Workflow, session *runSession, node *NodeSpec) Result {
	if pending := unsatisfiedDependencies(session, node); len(pending) > 0 {
		return Result{Status: StatusPending, Nodes: pending}
	}

	for attempt := 0; ; attempt++ {
		if attempt >= MaxPromises {
			return Result{Status: StatusErr, Err: ErrTooManyPromises}
		}

		res, restart := runNodeIteration(ctx, wf, session, node)
		if restart {
			continue
		}
		return res
	}
}

// unsatisfiedDependencies reports which of node's declared dependencies
// have not yet published a usable value.
func unsatisfiedDependencies(session *runSession, node *NodeSpec) []string {
	var pending []string
	for _, dep := range node.Dependencies {
		r := session.tempResults[dep]
		if !r.satisfiesDependency() {
			pending = append(pending, dep)
		}
	}
	return pending
}

// runNodeIteration runs one promise-loop iteration: install a fresh
// dispatcher, run Compute (or restore a saga snapshot), then run the saga
// loop to completion or suspension. The second return value reports
// whether the node body requested a promise-loop restart.
func runNodeIteration(ctx context.Context, wf *Workflow, session *runSession, node *NodeSpec) (Result, bool) {
	session.currentKeys = []string{node.Key}
	disp := newStepDispatcher(wf, session, node.Key)
	wc := &Context{nodeKey: node.Key, session: session, dispatcher: disp, wf: wf}

	var value any

	if node.IsSaga() {
		if snap, ok := wf.snapshots[node.Key]; ok {
			disp.idx = snap.EventIdx
			value = snap.Value
		} else {
			v, err := node.Compute(ctx, wc)
			if res, restart, handled := classifyBodyError(err); handled {
				return res, restart
			}
			value = v
		}
		return runSaga(ctx, wf, session, node, wc, disp, value)
	}

	v, err := node.Compute(ctx, wc)
	if res, restart, handled := classifyBodyError(err); handled {
		return res, restart
	}
	return Result{Status: StatusDone, Value: v}, false
}

// runSaga repeatedly calls Saga until it halts or suspends. Between
// iterations it checks session.deadline directly, so a saga that keeps
// returning SagaCont without ever calling Step/Capture/WaitUntil still
// aborts once RunOptions.Timeout elapses, instead of spinning forever on
// this single synchronous call stack.
func runSaga(ctx context.Context, wf *Workflow, session *runSession, node *NodeSpec, wc *Context, disp *stepDispatcher, value any) (Result, bool) {
	for {
		if session.timedOut() {
			return Result{Status: StatusErr, Err: ErrTimeout}, false
		}

		eventIdx := disp.idx
		wf.metrics.observeSagaIteration(node.Key)
		action, next, err := node.Saga(ctx, wc, value)
		if err != nil {
			if ii, ok := asInputInterrupt(err); ok {
				idx := eventIdx
				return Result{Status: StatusIntr, Step: &ii.Step, Value: value, EventIdx: &idx, WaitUntil: ii.WaitUntil}, false
			}
			if isRestartSignal(err) {
				return Result{}, true
			}
			return Result{Status: StatusErr, Err: err}, false
		}

		value = next

		if action == SagaHalt {
			return Result{Status: StatusDone, Value: value}, false
		}
	}
}

// classifyBodyError turns a ComputeFunc/SagaFunc error into either a
// terminal Result (handled=true) or a signal to restart the promise loop.
func classifyBodyError(err error) (res Result, restart bool, handled bool) {
	if err == nil {
		return Result{}, false, false
	}
	if ii, ok := asInputInterrupt(err); ok {
		return Result{Status: StatusIntr, Step: &ii.Step, WaitUntil: ii.WaitUntil}, false, true
	}
	if isRestartSignal(err) {
		return Result{}, true, true
	}
	return Result{Status: StatusErr, Err: err}, false, true
}
