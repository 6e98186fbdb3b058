package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sagaflow/workflow/emit"
	"github.com/dshills/sagaflow/workflow/store"
)

// Workflow is a built, immutable DAG of nodes paired with the mutable
// durable state a run orchestrator advances: a per-node event log and a
// per-node saga snapshot table.
//
// A Workflow instance enforces at most one active DryRun/Run at a time
// (isRunning, guarded by mu); concurrent callers receive ErrConcurrentRun
// rather than blocking, matching the design's "at-most-one-active-run" scenario.
type Workflow struct {
	nodes   map[string]*NodeSpec
	order   []string // insertion order, for deterministic topological tie-breaking
	groups  map[string]struct{}

	mu        sync.Mutex
	isRunning bool

	events    map[string][]StepEvent
	snapshots snapshotStore

	emitter emit.Emitter
	metrics *Metrics
}

// Builder accumulates groups and nodes before Build validates and freezes
// them into a Workflow.
type Builder struct {
	nodes    map[string]*NodeSpec
	order    []string
	groups   map[string]struct{}
	problems []string

	emitter emit.Emitter
	metrics *Metrics
}

// NewBuilder returns an empty Builder. opts configure ambient concerns
// (observability, metrics) applied to every Workflow the builder produces.
func NewBuilder(opts ...Option) *Builder {
	cfg := &engineConfig{emitter: emit.NullEmitter{}}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Builder{
		nodes:   make(map[string]*NodeSpec),
		groups:  make(map[string]struct{}),
		emitter: cfg.emitter,
		metrics: cfg.metrics,
	}
}

// AddGroup registers a classification tag nodes may reference via
// NodeSpec.Group. Groups need not be pre-declared for Build to succeed:
// Build does not check NodeSpec.Group against the registered names, and
// the registered set is carried on the Workflow but not reported by
// Topology.
func (b *Builder) AddGroup(name string) *Builder {
	b.groups[name] = struct{}{}
	return b
}

// AddNode registers one node descriptor. Problems (duplicate key, self
// dependency, reference to a not-yet-added dependency) are recorded, not
// returned, so a caller can add every node before learning about every
// problem at once (see BuildError, and DESIGN.md on this choice).
func (b *Builder) AddNode(spec NodeSpec) *Builder {
	if spec.Key == "" {
		b.problems = append(b.problems, "node with empty key")
		return b
	}
	if _, dup := b.nodes[spec.Key]; dup {
		b.problems = append(b.problems, fmt.Sprintf("duplicate node key %q", spec.Key))
		return b
	}
	for _, dep := range spec.Dependencies {
		if dep == spec.Key {
			b.problems = append(b.problems, fmt.Sprintf("node %q depends on itself", spec.Key))
			continue
		}
		if _, ok := b.nodes[dep]; !ok {
			b.problems = append(b.problems, fmt.Sprintf("node %q depends on unknown node %q", spec.Key, dep))
		}
	}
	if spec.Compute == nil {
		b.problems = append(b.problems, fmt.Sprintf("node %q has no Compute function", spec.Key))
	}

	ns := spec
	b.nodes[spec.Key] = &ns
	b.order = append(b.order, spec.Key)
	return b
}

// Build validates the accumulated nodes and, if there are no problems,
// returns a frozen Workflow ready for DryRun/Run.
func (b *Builder) Build() (*Workflow, error) {
	if len(b.problems) > 0 {
		return nil, &BuildError{Problems: append([]string(nil), b.problems...)}
	}

	metrics := b.metrics
	if metrics == nil {
		metrics = newNoopMetrics()
	}
	emitter := b.emitter
	if emitter == nil {
		emitter = emit.NullEmitter{}
	}

	return &Workflow{
		nodes:     b.nodes,
		order:     append([]string(nil), b.order...),
		groups:    b.groups,
		events:    make(map[string][]StepEvent),
		snapshots: make(snapshotStore),
		emitter:   emitter,
		metrics:   metrics,
	}, nil
}

// DryRunResult is the outcome of a schedule that does not commit any
// state: it reports what would happen without mutating the Workflow's
// event log or snapshots.
type DryRunResult struct {
	// RunID correlates this call's emitted events and log lines. It has
	// no bearing on replay: the Workflow's durable state is keyed by
	// node, never by run.
	RunID     string
	Results   map[string]Result
	NewEvents []StepEventWithC
	Warnings  []string

	// Timeout reports whether RunOptions.Timeout elapsed before the
	// schedule finished all reachable nodes. Unlike Run, DryRun never
	// returns ErrTimeout — it simply reports a partial schedule.
	Timeout bool
}

// DryRun executes the full topological schedule against incoming plus
// already-persisted events without committing anything: the Workflow's
// event log and snapshot table are left untouched.
func (w *Workflow) DryRun(ctx context.Context, incoming []StepEvent, opts RunOptions) (DryRunResult, error) {
	if err := w.beginRun(); err != nil {
		return DryRunResult{}, err
	}
	defer w.endRun()

	runID := uuid.NewString()
	session := newRunSession(runID, incoming, opts)
	w.emitter.Emit(emit.Event{Name: "run_start", Fields: map[string]any{"run_id": runID, "dry_run": true}})

	timedOut := w.schedule(ctx, session)

	w.emitter.Emit(emit.Event{Name: "run_dry_complete", Fields: map[string]any{"run_id": runID, "timeout": timedOut}})

	return DryRunResult{
		RunID:     runID,
		Results:   session.tempResults,
		NewEvents: session.consumedEvents,
		Warnings:  session.warnings,
		Timeout:   timedOut,
	}, nil
}

// Run executes the full topological schedule and, unless it times out,
// commits every newly synthesized event and saga snapshot to the
// Workflow's durable state. On timeout nothing is committed and
// ErrTimeout is returned.
func (w *Workflow) Run(ctx context.Context, incoming []StepEvent, opts RunOptions) (map[string]Result, error) {
	if err := w.beginRun(); err != nil {
		return nil, err
	}
	defer w.endRun()

	runID := uuid.NewString()
	session := newRunSession(runID, incoming, opts)
	w.emitter.Emit(emit.Event{Name: "run_start", Fields: map[string]any{"run_id": runID}})

	timedOut := w.schedule(ctx, session)
	if timedOut {
		w.emitter.Emit(emit.Event{Name: "run_timeout", Fields: map[string]any{"run_id": runID}})
		return nil, ErrTimeout
	}

	w.commit(session)
	w.emitter.Emit(emit.Event{Name: "run_commit", Fields: map[string]any{"run_id": runID, "nodes": len(session.tempResults)}})

	return session.tempResults, nil
}

func (w *Workflow) beginRun() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return ErrConcurrentRun
	}
	w.isRunning = true
	w.metrics.runStarted()
	return nil
}

func (w *Workflow) endRun() {
	w.mu.Lock()
	w.isRunning = false
	w.mu.Unlock()
	w.metrics.runEnded()
}

// commit merges a completed run's new events and saga checkpoints into
// the Workflow's durable state. Per the design, a snapshot is written only for a
// node whose Result is StatusIntr with a non-nil EventIdx (saga
// suspension); a node that reached StatusDone or a non-saga StatusIntr
// clears any stale snapshot from a prior partial run.
func (w *Workflow) commit(session *runSession) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for node, evs := range session.tempNewEvents {
		w.events[node] = append(w.events[node], evs...)
	}

	for key, res := range session.tempResults {
		if res.Status == StatusIntr && res.EventIdx != nil {
			w.snapshots[key] = Snapshot{EventIdx: *res.EventIdx, Value: res.Value}
		} else {
			delete(w.snapshots, key)
		}
	}
}

// Spawn returns a brand-new Workflow sharing this one's node definitions
// but starting with an empty event log and snapshot table — a fresh
// instance of the same graph.
func (w *Workflow) Spawn() *Workflow {
	return &Workflow{
		nodes:     w.nodes,
		order:     w.order,
		groups:    w.groups,
		events:    make(map[string][]StepEvent),
		snapshots: make(snapshotStore),
		emitter:   w.emitter,
		metrics:   w.metrics,
	}
}

// Fork returns a new Workflow sharing this one's node definitions and a
// deep copy of its current event log and snapshot table: mutating a
// fork's event values, directly or through further runs, never reaches
// back into this instance, and vice versa.
func (w *Workflow) Fork() *Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	events := make(map[string][]StepEvent, len(w.events))
	for k, v := range w.events {
		cp := make([]StepEvent, len(v))
		for i, ev := range v {
			ev.V = deepCopyValue(ev.V)
			cp[i] = ev
		}
		events[k] = cp
	}

	return &Workflow{
		nodes:     w.nodes,
		order:     w.order,
		groups:    w.groups,
		events:    events,
		snapshots: w.snapshots.clone(),
		emitter:   w.emitter,
		metrics:   w.metrics,
	}
}

// TopologyNode is one entry in Workflow.Topology's rendering.
type TopologyNode struct {
	Key          string
	Group        string
	Title        string
	Dependencies []string
}

// Topology returns every node in insertion order, annotated with its
// declared dependencies — a read-only snapshot safe to range over
// concurrently with a run.
func (w *Workflow) Topology() []TopologyNode {
	out := make([]TopologyNode, 0, len(w.order))
	for _, key := range w.order {
		n := w.nodes[key]
		out = append(out, TopologyNode{
			Key:          n.Key,
			Group:        n.Group,
			Title:        n.Title,
			Dependencies: append([]string(nil), n.Dependencies...),
		})
	}
	return out
}

// GetDependencies returns the declared dependency keys of node key, or
// nil if key is not a node in this workflow.
func (w *Workflow) GetDependencies(key string) []string {
	n, ok := w.nodes[key]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Dependencies...)
}

// TopologicalSort returns every node key ordered so that each node
// follows all of its dependencies, breaking ties by insertion order.
func (w *Workflow) TopologicalSort() []string {
	visited := make(map[string]bool, len(w.nodes))
	order := make([]string, 0, len(w.nodes))

	var visit func(key string)
	visit = func(key string) {
		if visited[key] {
			return
		}
		visited[key] = true
		n := w.nodes[key]
		for _, dep := range n.Dependencies {
			visit(dep)
		}
		order = append(order, key)
	}

	for _, key := range w.order {
		visit(key)
	}
	return order
}

// schedule runs one post-order DFS pass over every node in insertion
// order, invoking the executor once per node after its dependencies have
// already been visited. It returns true if session.deadline elapsed
// before every reachable node finished being visited — whether caught
// between nodes here or inside a single node's own saga loop (see
// runSaga), both read the same session.deadline so there is exactly one
// source of truth for "has this run's timeout elapsed".
func (w *Workflow) schedule(ctx context.Context, session *runSession) bool {
	visited := make(map[string]bool, len(w.nodes))

	var visit func(key string) bool // returns true if timed out
	visit = func(key string) bool {
		if visited[key] {
			return false
		}
		visited[key] = true

		n := w.nodes[key]
		for _, dep := range n.Dependencies {
			if timedOut := visit(dep); timedOut {
				return true
			}
		}

		if session.timedOut() {
			return true
		}
		if ctx.Err() != nil {
			return true
		}

		start := time.Now()
		res := executeNode(ctx, w, session, n)
		w.metrics.observeNode(key, res.Status, time.Since(start))
		if errors.Is(res.Err, ErrTimeout) {
			return true
		}
		w.emitNodeResult(session.runID, key, res)
		session.tempResults[key] = res
		return false
	}

	for _, key := range w.order {
		if timedOut := visit(key); timedOut {
			return true
		}
	}
	return false
}

// Export converts the Workflow's current durable state into a
// store.Snapshot suitable for handing to a Store. The engine core never
// calls a Store itself; persistence is always an explicit, embedder-
// initiated action around Export/Import.
func (w *Workflow) Export() store.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	events := make(map[string][]store.RawEvent, len(w.events))
	for node, evs := range w.events {
		raw := make([]store.RawEvent, len(evs))
		for i, ev := range evs {
			raw[i] = store.RawEvent{K: []string(ev.K), V: ev.V, TS: ev.TS}
		}
		events[node] = raw
	}

	snaps := make(map[string]store.RawSnapshot, len(w.snapshots))
	for node, s := range w.snapshots {
		snaps[node] = store.RawSnapshot{EventIdx: s.EventIdx, Value: s.Value}
	}

	return store.Snapshot{Events: events, Snapshots: snaps}
}

// Import replaces the Workflow's durable state with snap. It must be
// called before any DryRun/Run on this instance; it does not merge with
// existing state.
func (w *Workflow) Import(snap store.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	events := make(map[string][]StepEvent, len(snap.Events))
	for node, raw := range snap.Events {
		evs := make([]StepEvent, len(raw))
		for i, r := range raw {
			evs[i] = StepEvent{K: Path(r.K), V: r.V, TS: r.TS}
		}
		events[node] = evs
	}
	snaps := make(snapshotStore, len(snap.Snapshots))
	for node, r := range snap.Snapshots {
		snaps[node] = Snapshot{EventIdx: r.EventIdx, Value: r.Value}
	}

	w.events = events
	w.snapshots = snaps
}

func (w *Workflow) emitNodeResult(runID, key string, res Result) {
	fields := map[string]any{"run_id": runID, "node": key, "status": string(res.Status)}
	switch res.Status {
	case StatusErr:
		fields["error"] = res.Err.Error()
		w.emitter.Emit(emit.Event{Name: "node_err", Fields: fields})
	case StatusIntr:
		if res.Step != nil {
			fields["path"] = res.Step.Path.String()
		}
		w.emitter.Emit(emit.Event{Name: "node_intr", Fields: fields})
	case StatusPending:
		fields["waiting_on"] = res.Nodes
		w.emitter.Emit(emit.Event{Name: "node_pending", Fields: fields})
	case StatusDone:
		w.emitter.Emit(emit.Event{Name: "node_done", Fields: fields})
	}
}
