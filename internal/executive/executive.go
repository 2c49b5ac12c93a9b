// Package executive runs the outer loop described in §4.7: repeatedly ask
// the planner for an action, execute it against the real (shared) true
// state for an incremental horizon, accumulate cost, and commit the
// traversed branch back into the search tree via tree reuse — logging,
// tracing, and emitting metrics around every iteration.
package executive

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/controller"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/logging"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/observability"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/planner"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// edgeExecutor is the capability the Executive needs from an edge's
// controller beyond the graph's own IsTerminated contract: resuming a
// partially-executed edge from a given nominal step, per §4.7 step 2. Every
// edge the Planner installs carries a *controller.EdgeController, which
// satisfies this structurally.
type edgeExecutor interface {
	IsTerminated(b *model.Belief, t int) bool
	ExecuteFromUpto(ts *truestate.State, kStart, n int, b0 *model.Belief) (*model.Belief, float64, int, bool, bool)
}

// Executive drives a Planner to the roadmap's goal vertex, one incremental
// action at a time.
type Executive struct {
	Planner *planner.Planner
	Log     logging.Logger
	Metrics *observability.PlannerCollector
	Tracer  oteltrace.Tracer

	// RunID correlates every log line and span emitted by a single Run
	// call, the google/uuid-backed scenario/run identifier the teacher's
	// own request-scoped logging used.
	RunID string

	// ncByVertex caches the on-the-fly NodeController built for each FIRM
	// target vertex reached via node-stabilization dispatch, so repeated
	// StabilizeUpto calls against the same target share one tries counter
	// instead of resetting it every iteration.
	ncByVertex map[graph.VertexID]*controller.NodeController
}

// New constructs an Executive with a fresh RunID, falling back to a no-op
// logger, a nil (disabled) metrics collector, and the global tracer when
// the corresponding argument is omitted.
func New(p *planner.Planner, log logging.Logger, metrics *observability.PlannerCollector) *Executive {
	if log == nil {
		log = logging.Noop()
	}
	return &Executive{
		Planner:    p,
		Log:        log,
		Metrics:    metrics,
		Tracer:     otel.Tracer("firm-pomcp-planner/executive"),
		RunID:      uuid.NewString(),
		ncByVertex: make(map[graph.VertexID]*controller.NodeController),
	}
}

// nodeControllerFor returns the cached NodeController stabilizing at
// target's belief, building it on first use with the same collaborators
// the Planner wires into every EdgeController.
func (e *Executive) nodeControllerFor(target graph.VertexID) *controller.NodeController {
	if nc, ok := e.ncByVertex[target]; ok {
		return nc
	}

	goalBelief := e.Planner.Graph.Vertex(target).Belief
	ls := model.NewLinearSystem(goalBelief.Mean, e.Planner.Motion.GetZeroControl(), e.Planner.Motion, e.Planner.Obs)

	nc := &controller.NodeController{
		LS:               ls,
		Ctrl:             core.NewPursuitController([]*model.LinearSystem{ls}, 0, 0),
		Filter:           e.Planner.Filter,
		Motion:           e.Planner.Motion,
		Obs:              e.Planner.Obs,
		Validity:         e.Planner.Validity,
		Goal:             goalBelief,
		Cfg:              e.Planner.Cfg,
		ConstructionMode: true,
	}
	e.ncByVertex[target] = nc
	return nc
}

// Result summarizes one completed Run.
type Result struct {
	Reached       bool
	TotalCost     float64
	Iterations    int
	FinalVertex   graph.VertexID
	TerminalError error
}

// Run repeats ChooseAction/execute/commit until the current belief reaches
// the goal vertex's belief, a controller reports an unrecoverable error, or
// maxIterations is exhausted.
func (e *Executive) Run(ctx context.Context, maxIterations int) Result {
	ctx, span := e.Tracer.Start(ctx, "executive.Run", oteltrace.WithAttributes(attribute.String("run_id", e.RunID)))
	defer span.End()

	log := e.Log.With(logging.String("run_id", e.RunID))

	root, ok := e.Planner.RootVertex()
	if !ok {
		return Result{TerminalError: fmt.Errorf("executive: roadmap start vertex %q not found", e.Planner.RM.Start)}
	}

	goalName := e.Planner.RM.Goal
	goalVertex, ok := e.Planner.VertexForName(goalName)
	if !ok {
		return Result{TerminalError: fmt.Errorf("executive: roadmap goal vertex %q not found", goalName)}
	}
	goalBelief := e.Planner.Graph.Vertex(goalVertex).Belief

	cur := root
	var totalCost float64

	// kStep and prevEdge implement §4.7 step 2's edge-reuse bookkeeping
	// (kStepOfEdgeController/e_prev in the original): resuming the same
	// edge across consecutive iterations advances kStep so
	// ExecuteFromUpto continues the open-loop trajectory instead of
	// restarting it; selecting a different edge resets kStep to 0.
	kStep := 0
	prevEdge := graph.InvalidEdge

	for iter := 0; iter < maxIterations; iter++ {
		iterCtx, iterSpan := e.Tracer.Start(ctx, "executive.iteration", oteltrace.WithAttributes(attribute.Int("iteration", iter)))

		curBelief := e.Planner.Graph.Vertex(cur).Belief
		if model.IsReached(curBelief, goalBelief, e.Planner.Cfg.Tolerances) {
			iterSpan.End()
			log.Info(iterCtx, "executive: goal reached", logging.Int("iterations", iter))
			e.recordOutcome("reached")
			return Result{Reached: true, TotalCost: totalCost, Iterations: iter, FinalVertex: cur}
		}

		edgeID, childV, err := e.Planner.ChooseAction(cur)
		e.observeParticles()
		if err != nil {
			iterSpan.End()
			log.Error(iterCtx, "executive: choose action failed", logging.Any("error", err))
			e.recordOutcome("action_infeasible")
			return Result{TotalCost: totalCost, Iterations: iter, FinalVertex: cur, TerminalError: err}
		}

		edge := e.Planner.Graph.Edge(edgeID)
		ec, ok := edge.Controller.(edgeExecutor)
		if !ok {
			iterSpan.End()
			err := fmt.Errorf("executive: edge controller %T does not support ExecuteFromUpto", edge.Controller)
			log.Error(iterCtx, "executive: unusable edge controller", logging.Any("error", err))
			return Result{TotalCost: totalCost, Iterations: iter, FinalVertex: cur, TerminalError: err}
		}

		if edgeID == prevEdge {
			kStep++
		} else {
			kStep = 0
		}
		prevEdge = edgeID

		var (
			bNext    *model.Belief
			cost     float64
			steps    int
			timedOut bool
			ok2      bool
			dispatch string
		)
		if !ec.IsTerminated(curBelief, 0) {
			dispatch = "edge"
			bNext, cost, steps, timedOut, ok2 = ec.ExecuteFromUpto(e.Planner.True, kStep, e.Planner.Cfg.RolloutSteps, curBelief)
		} else {
			dispatch = "node"
			nc := e.nodeControllerFor(edge.To)
			var reached bool
			bNext, cost, steps, reached = nc.StabilizeUpto(e.Planner.True, e.Planner.Cfg.RolloutSteps, curBelief)
			timedOut = !reached
			ok2 = true
		}
		ok = ok2
		// The controllers add CostBias on every step; it is removed again
		// here before weighting: total = WInfo*covCost + WTime*steps.
		covCost := cost - float64(steps)*e.Planner.Cfg.CostBias
		totalCost += e.Planner.Cfg.WInfo*covCost + e.Planner.Cfg.WTime*float64(steps)
		e.observeBelief(bNext)

		outcome := "reached"
		switch {
		case !ok:
			outcome = "collision_or_deviation"
		case timedOut:
			outcome = "horizon_exhausted"
		}
		e.recordOutcome(outcome)
		log.Debug(iterCtx, "executive: dispatch", logging.Any("controller", dispatch), logging.Int("kStep", kStep))

		log.Info(iterCtx, "executive: executed action",
			logging.Int("iteration", iter),
			logging.Int("steps", steps),
			logging.Any("outcome", outcome),
			logging.Any("cost", cost))

		if !ok {
			iterSpan.End()
			return Result{TotalCost: totalCost, Iterations: iter, FinalVertex: cur, TerminalError: model.ErrCollision}
		}

		cur = e.Planner.CommitAction(cur, childV, bNext)
		e.observeGraph()
		iterSpan.End()
	}

	return Result{TotalCost: totalCost, Iterations: maxIterations, FinalVertex: cur, TerminalError: model.ErrHorizonExhausted}
}

func (e *Executive) recordOutcome(outcome string) {
	if e.Metrics == nil || e.Metrics.ExecOutcomes == nil {
		return
	}
	e.Metrics.ExecOutcomes.WithLabelValues(outcome).Inc()
}

func (e *Executive) observeParticles() {
	if e.Metrics == nil || e.Metrics.ParticlesSimulated == nil {
		return
	}
	e.Metrics.ParticlesSimulated.Add(float64(e.Planner.Cfg.NumParticles))
}

func (e *Executive) observeGraph() {
	if e.Metrics == nil {
		return
	}
	e.Metrics.ObserveGraph(e.Planner.Graph.LiveVertexCount())
}

func (e *Executive) observeBelief(b *model.Belief) {
	if e.Metrics == nil || b == nil {
		return
	}
	e.Metrics.ObserveBelief(b.TraceCov())
}
