package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlannerCollector bundles the planner's Prometheus metrics. The Executive
// records particles simulated, the live belief graph's size, the current
// belief uncertainty, and the outcome of each executed edge or node
// stabilization. Iterations, IterationDuration, and GraphPrunedTotal are
// registered but nothing in this module updates them.
type PlannerCollector struct {
	gatherer prometheus.Gatherer

	Iterations        *prometheus.CounterVec
	IterationDuration  *prometheus.HistogramVec
	ParticlesSimulated prometheus.Counter

	GraphLiveVertices  prometheus.Gauge
	GraphPrunedTotal    prometheus.Counter

	ExecOutcomes *prometheus.CounterVec

	BeliefUncertainty prometheus.Gauge
}

// NewPlannerCollector registers the planner's Prometheus metrics against
// the provided registerer, defaulting to the global registry when nil.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	iterations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executive_iterations_total",
		Help: "Total number of executive choose/execute/commit iterations, labeled by outcome.",
	}, []string{"outcome"})
	iterations, err := registerCounterVec(reg, iterations, "executive_iterations_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "executive_iteration_duration_seconds",
		Help:    "Wall-clock time spent in one executive iteration (ChooseAction plus edge execution).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"phase"})
	duration, err = registerHistogramVec(reg, duration, "executive_iteration_duration_seconds")
	if err != nil {
		return nil, err
	}

	particles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_particles_simulated_total",
		Help: "Total number of POMCP particle simulations run across all ChooseAction calls.",
	}), "planner_particles_simulated_total")
	if err != nil {
		return nil, err
	}

	liveVertices, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "belief_graph_live_vertices",
		Help: "Current number of non-pruned vertices in the belief graph.",
	}), "belief_graph_live_vertices")
	if err != nil {
		return nil, err
	}

	prunedTotal, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "belief_graph_pruned_vertices_total",
		Help: "Total number of vertices pruned across all tree-reuse commits.",
	}), "belief_graph_pruned_vertices_total")
	if err != nil {
		return nil, err
	}

	execOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edge_execution_outcomes_total",
		Help: "Total number of edge/node controller executions, labeled by outcome (reached, collision_or_deviation, horizon_exhausted, action_infeasible).",
	}, []string{"outcome"})
	execOutcomes, err = registerCounterVec(reg, execOutcomes, "edge_execution_outcomes_total")
	if err != nil {
		return nil, err
	}

	uncertainty, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "belief_uncertainty_trace",
		Help: "trace(Sigma) of the executive's current belief.",
	}), "belief_uncertainty_trace")
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{
		gatherer:           gatherer,
		Iterations:         iterations,
		IterationDuration:  duration,
		ParticlesSimulated: particles,
		GraphLiveVertices:  liveVertices,
		GraphPrunedTotal:   prunedTotal,
		ExecOutcomes:       execOutcomes,
		BeliefUncertainty:  uncertainty,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PlannerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveGraph records the belief graph's current live-vertex count.
func (c *PlannerCollector) ObserveGraph(liveVertices int) {
	if c == nil || c.GraphLiveVertices == nil {
		return
	}
	c.GraphLiveVertices.Set(float64(liveVertices))
}

// ObserveBelief records the executive's current uncertainty measure.
func (c *PlannerCollector) ObserveBelief(traceCov float64) {
	if c == nil || c.BeliefUncertainty == nil {
		return
	}
	c.BeliefUncertainty.Set(traceCov)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
