// Package emit provides pluggable observability for workflow execution.
package emit

// Event is an observability event emitted around the lifecycle of a run
// or a single node's result (run_start, run_commit, run_timeout,
// run_dry_complete, node_pending, node_done, node_err, node_intr).
type Event struct {
	// Name identifies the kind of event, e.g. "node_done".
	Name string

	// Fields carries event-specific structured data, such as "node",
	// "status", "path", or "error". Never includes a StepEvent's raw V
	// payload — emitters are an observability surface, not a replacement
	// for the durable event log.
	Fields map[string]any
}
