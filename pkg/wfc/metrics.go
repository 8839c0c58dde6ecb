package wfc

import (
	"github.com/chazu/bild/pkg/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// Package-level tracer for solver operations.
var tracer = otel.Tracer("bild.wfc")

// =============================================================================
// Prometheus Metrics for the Solver
// =============================================================================

var (
	// collapsesTotal counts committed nodes.
	collapsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bild",
		Subsystem: "wfc",
		Name:      "collapses_total",
		Help:      "Total nodes collapsed by the solver",
	})

	// propagationsTotal counts nodes named by invariant propagation.
	propagationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bild",
		Subsystem: "wfc",
		Name:      "propagations_total",
		Help:      "Total nodes named by invariant propagation",
	})

	// backtracksTotal counts undone commits.
	backtracksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bild",
		Subsystem: "wfc",
		Name:      "backtracks_total",
		Help:      "Total single-step backtracks",
	})

	// solveDuration measures whole solves.
	// Labels: status (solved, failed, canceled)
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bild",
		Subsystem: "wfc",
		Name:      "solve_duration_seconds",
		Help:      "Wall time of a single solve",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"status"})
)

// MetricsObserver feeds solver events into the package's Prometheus
// counters.
type MetricsObserver struct{}

var (
	_ Observer          = MetricsObserver{}
	_ BacktrackObserver = MetricsObserver{}
)

func (MetricsObserver) OnCollapse(graph.NodeID, *graph.NodeState) {
	collapsesTotal.Inc()
}

func (MetricsObserver) OnPropagate(affected []graph.NodeID) {
	propagationsTotal.Add(float64(len(affected)))
}

func (MetricsObserver) OnBacktrack(graph.NodeID) {
	backtracksTotal.Inc()
}
