package workflow

import "github.com/dshills/sagaflow/workflow/emit"

// Option configures a Builder's ambient concerns before Build freezes a
// Workflow. The functional-options pattern keeps NewBuilder's signature
// stable as observability knobs are added.
type Option func(*engineConfig)

type engineConfig struct {
	emitter emit.Emitter
	metrics *Metrics
}

// WithEmitter routes every run's lifecycle events to e instead of
// discarding them.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) {
		cfg.emitter = e
	}
}

// WithMetrics attaches a Prometheus metrics collector. Use NewMetrics to
// build one against a specific registry (prometheus.DefaultRegisterer for
// the global registry).
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) {
		cfg.metrics = m
	}
}
