package alu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Candidate outcomes recorded by Metrics.
const (
	OutcomeKept     = "kept"
	OutcomePruned   = "pruned"
	OutcomeConflict = "conflict"
	OutcomeExcluded = "excluded"
)

// Metrics holds the Prometheus collectors updated by a Solver.
type Metrics struct {
	Nodes      prometheus.Counter
	Candidates *prometheus.CounterVec
	SetSize    prometheus.Histogram
	SolveTime  prometheus.Histogram
}

// NewMetrics returns a new instance of Metrics registered with reg.
// Collectors are created but not registered if reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Nodes: factory.NewCounter(prometheus.CounterOpts{
			Name: "alu_solver_nodes_total",
			Help: "Total DAG nodes solved",
		}),
		Candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alu_solver_candidates_total",
			Help: "Total candidates produced by outcome",
		}, []string{"outcome"}),
		SetSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alu_solver_set_size",
			Help:    "Surviving candidates per solved node",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
		SolveTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alu_solver_duration_seconds",
			Help:    "Time to compute the solution set of a root",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}
