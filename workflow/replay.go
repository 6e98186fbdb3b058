package workflow

// stepDispatcher intercepts in-body effect calls for exactly one node
// execution iteration, per the replay protocol. It is installed fresh — cursor reset to
// zero — at the start of every promise-loop iteration, and
// walks the concatenation of persisted, incoming, and this-run-generated
// events positionally.
type stepDispatcher struct {
	wf      *Workflow
	session *runSession
	nodeKey string
	idx     int
}

func newStepDispatcher(wf *Workflow, session *runSession, nodeKey string) *stepDispatcher {
	return &stepDispatcher{wf: wf, session: session, nodeKey: nodeKey}
}

// allEvents is recomputed on every call rather than cached, because
// tempNewEvents for this node grows as Capture appends to it mid-
// execution; the concatenation is cheap (bounded by one node's history).
func (d *stepDispatcher) allEvents() []StepEvent {
	persisted := d.wf.events[d.nodeKey]
	incoming := d.session.incomingEvents[d.nodeKey]
	fresh := d.session.tempNewEvents[d.nodeKey]

	all := make([]StepEvent, 0, len(persisted)+len(incoming)+len(fresh))
	all = append(all, persisted...)
	all = append(all, incoming...)
	all = append(all, fresh...)
	return all
}

// step is the replacement for the Context facade's Step operation. It is
// the sole place event-log replay happens.
func (d *stepDispatcher) step(sc StepContext) (any, error) {
	fullKey := appendKey(d.session.currentKeys, sc.Key)
	all := d.allEvents()

	if d.idx >= len(all) {
		return nil, &InputInterrupt{Step: fullStepContext(fullKey, sc)}
	}

	ev := all[d.idx]
	d.idx++

	if !ev.K.Equal(fullKey) {
		d.wf.metrics.observeReplayDivergence()
		return nil, &ReplayDivergenceError{Node: d.nodeKey, Expected: fullKey, Got: ev.K}
	}

	d.session.consumedEvents = append(d.session.consumedEvents, StepEventWithC{StepEvent: ev, C: sc})
	if ev.inputs != nil && !stringSliceEqual(ev.inputs, sc.Inputs) {
		d.session.warnf("context_updated: step %s declared inputs changed since it was recorded", fullKey)
	}
	return ev.V, nil
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
