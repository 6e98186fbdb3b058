package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for node executions across every
// run on a Workflow. All metrics are namespaced "sagaflow_".
type Metrics struct {
	nodeLatency       *prometheus.HistogramVec
	nodeTotal         *prometheus.CounterVec
	interruptsTotal   *prometheus.CounterVec
	replayDivergences prometheus.Counter
	capturesTotal     prometheus.Counter
	sagaIterations    *prometheus.CounterVec
	activeRuns        prometheus.Gauge
}

// NewMetrics registers every collector with reg and returns a Metrics
// ready to pass to WithMetrics. Use prometheus.DefaultRegisterer for the
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sagaflow",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds, per node and terminal status.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node", "status"}),
		nodeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sagaflow",
			Name:      "node_results_total",
			Help:      "Count of node executions, per node and terminal status.",
		}, []string{"node", "status"}),
		interruptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sagaflow",
			Name:      "node_interrupts_total",
			Help:      "Count of node suspensions, per node.",
		}, []string{"node"}),
		replayDivergences: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sagaflow",
			Name:      "replay_divergences_total",
			Help:      "Count of ReplayDivergenceError results across all nodes.",
		}),
		capturesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sagaflow",
			Name:      "captures_total",
			Help:      "Count of Capture side effects actually invoked (not replayed).",
		}),
		sagaIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sagaflow",
			Name:      "saga_iterations_total",
			Help:      "Count of saga loop iterations, per node.",
		}, []string{"node"}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sagaflow",
			Name:      "active_runs",
			Help:      "Number of DryRun/Run calls currently in flight across all workflows sharing this collector.",
		}),
	}
}

// newNoopMetrics returns a Metrics backed by an unregistered, private
// registry, so a Workflow built without WithMetrics still has a non-nil
// collector to call into.
func newNoopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) observeNode(node string, status Status, d time.Duration) {
	if status == StatusPending {
		return
	}
	m.nodeLatency.WithLabelValues(node, string(status)).Observe(float64(d.Milliseconds()))
	m.nodeTotal.WithLabelValues(node, string(status)).Inc()
	if status == StatusIntr {
		m.interruptsTotal.WithLabelValues(node).Inc()
	}
}

func (m *Metrics) observeReplayDivergence() {
	m.replayDivergences.Inc()
}

func (m *Metrics) observeCapture() {
	m.capturesTotal.Inc()
}

func (m *Metrics) observeSagaIteration(node string) {
	m.sagaIterations.WithLabelValues(node).Inc()
}

func (m *Metrics) runStarted() { m.activeRuns.Inc() }
func (m *Metrics) runEnded()   { m.activeRuns.Dec() }
