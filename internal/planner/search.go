package planner

import (
	"math"

	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// horizonOutcome is the three-way result of checkHorizon: the caller
// either picks an action itself (notAtHorizon), must reuse the action that
// got it to this depth without a fresh selection (forcedAction), or
// receives an already-backed-up value with nothing left to do
// (terminalBackedUp).
type horizonOutcome int

const (
	notAtHorizon horizonOutcome = iota
	forcedAction
	terminalBackedUp
)

// simulate is the UCB half of the search: for an already-expanded vertex it
// selects an action by UCB and descends through step; for a still-unexpanded
// vertex (the common case — every vertex arrives here unexpanded) it
// delegates entirely to rollout.
func (p *Planner) simulate(v graph.VertexID, d int, lastAction graph.VertexID) float64 {
	vert := p.Graph.Vertex(v)
	if !vert.Stats.ChildQExpanded {
		return p.rollout(v, d, lastAction)
	}

	outcome, val, forcedQ := p.checkHorizon(v, d, lastAction)
	switch outcome {
	case terminalBackedUp:
		return val
	case forcedAction:
		return p.step(v, d, forcedQ)
	default:
		return p.step(v, d, p.ucbSelect(v))
	}
}

// rollout expands v if needed, then either follows the rollout policy
// (importance-sampled or baseline, per Cfg.RolloutPolicy) or is forced to
// reuse lastAction at a horizon boundary.
func (p *Planner) rollout(v graph.VertexID, d int, lastAction graph.VertexID) float64 {
	vert := p.Graph.Vertex(v)
	if !vert.Stats.ChildQExpanded {
		if err := p.expandActions(v); err != nil {
			return p.backupUnavailable(v)
		}
	}

	outcome, val, forcedQ := p.checkHorizon(v, d, lastAction)
	switch outcome {
	case terminalBackedUp:
		return val
	case forcedAction:
		return p.step(v, d, forcedQ)
	default:
		return p.step(v, d, p.rolloutSelect(v))
	}
}

// checkHorizon implements the depth-cap and horizon-boundary logic shared
// by simulate and rollout. At d >= MaxReachDepth the horizon is exhausted:
// it performs the JObs-penalty backup itself and reports terminalBackedUp.
// At d >= MaxDepth but within reach depth, a legal lastAction is forced
// rather than freshly selected; with no legal lastAction (e.g. a bare
// rollout root) the caller's own selection policy is used as normal.
func (p *Planner) checkHorizon(v graph.VertexID, d int, lastAction graph.VertexID) (horizonOutcome, float64, graph.VertexID) {
	if d >= p.Cfg.MaxReachDepth {
		return terminalBackedUp, p.backupExhausted(v, lastAction), graph.InvalidVertex
	}
	if d >= p.Cfg.MaxDepth && lastAction != graph.InvalidVertex && p.isLegalAction(v, lastAction) {
		return forcedAction, 0, lastAction
	}
	return notAtHorizon, 0, graph.InvalidVertex
}

func (p *Planner) isLegalAction(v, q graph.VertexID) bool {
	vert := p.Graph.Vertex(v)
	_, ok := vert.Stats.Actions[q]
	return ok
}

// backupExhausted backs up the JObs penalty into lastAction if it is a
// legal action at v, or reports the no-legal-action penalty directly.
func (p *Planner) backupExhausted(v, lastAction graph.VertexID) float64 {
	if lastAction != graph.InvalidVertex && p.isLegalAction(v, lastAction) {
		return p.backup(v, lastAction, p.Cfg.JObs, true)
	}
	return p.backupUnavailable(v)
}

// backupUnavailable handles a vertex with no legal action at all (a dead
// end expandActions could not expand): there is no per-action table to
// back a value into, so it sets J(h) directly.
func (p *Planner) backupUnavailable(v graph.VertexID) float64 {
	vert := p.Graph.Vertex(v)
	vert.Stats.J = p.Cfg.JObs
	return p.Cfg.JObs
}

// step executes action q at v for up to RolloutSteps nominal iterations,
// allocates or overwrites its observation child, recurses through simulate
// unless the child has already reached q's goal, and backs up the result.
// An existing observation child's belief is overwritten in place rather
// than branched — the module's resolved choice among FIRMCP's observation-
// branching strategies, matching its one active code path.
func (p *Planner) step(v graph.VertexID, d int, q graph.VertexID) float64 {
	vert := p.Graph.Vertex(v)
	edgeID, ok := p.Graph.EdgeBetween(v, q)
	if !ok {
		return p.backup(v, q, p.Cfg.JObs, false)
	}
	edge := p.Graph.Edge(edgeID)
	ec := p.ecByEdge[edgeID]
	if ec == nil {
		return p.backup(v, q, p.Cfg.JObs, false)
	}

	bNext, filterCost, steps, _, ok := ec.ExecuteUpto(p.True, p.Cfg.RolloutSteps, vert.Belief)
	if !ok {
		return p.backup(v, q, p.Cfg.JObs, false)
	}

	a := vert.Stats.Actions[q]
	childV := a.ChildQVnode
	if childV == graph.InvalidVertex {
		childV = p.Graph.AddVertex(bNext, graph.KindPOMCP)
		a.ChildQVnode = childV
	} else {
		p.Graph.Vertex(childV).Belief = bNext
	}

	// The edge's FIRMWeight.EdgeCost is charged in proportion to the
	// fraction of the edge's nominal trajectory traversed this call
	// (steps / len(LSs)), so an ExecuteUpto call that stops partway along a
	// long edge does not pay the edge's full cost.
	edgeCost := 0.0
	if edge != nil && len(ec.LSs) > 0 {
		edgeCost = edge.Weight.EdgeCost * float64(steps) / float64(len(ec.LSs))
	}

	future := 0.0
	if !model.IsReached(bNext, ec.Goal, p.Cfg.Tolerances) {
		future = p.simulate(childV, d+1, q)
	}

	return p.backup(v, q, filterCost+edgeCost+future, true)
}

// backup applies the incremental-mean Q update at v for action q, resetting
// Q to 0 first if this is the action's first-ever backup (N==0) so the
// heuristic seed never biases an action's first real sample — the
// invariant-preserving reading of "reset Q to 0 if newly expanded" this
// module settled on. It then restores J(h) = min_q Q(h,q) and returns it.
// execOK mirrors the original's executionStatus: M(h,q), the miss counter,
// only increments when the action's execution actually failed (no edge, no
// controller, or a collision/deviation during ExecuteUpto) — not on every
// backup, and not on a depth-cap penalty that never attempted execution.
func (p *Planner) backup(v, q graph.VertexID, qValue float64, execOK bool) float64 {
	vert := p.Graph.Vertex(v)
	a := vert.Stats.Actions[q]

	if a.N == 0 {
		a.Q = 0
	}
	a.N++
	if !execOK {
		a.M++
	}
	vert.Stats.N++
	a.Q += (qValue - a.Q) / float64(a.N)

	vert.Stats.J = p.minQ(v)
	return vert.Stats.J
}

func (p *Planner) minQ(v graph.VertexID) float64 {
	vert := p.Graph.Vertex(v)
	best := math.Inf(1)
	for _, q := range vert.Stats.SortedActions() {
		if a := vert.Stats.Actions[q]; a.Q < best {
			best = a.Q
		}
	}
	return best
}

// ucbSelect picks the action minimizing Q(h,q) - cExploreSim * sqrt(log(N(h)+1) / (N(h,q)+eps)),
// a cost-to-go framing of UCB where lower is better. Actions never yet
// visited are selected unconditionally, mirroring standard UCB's
// infinite-bonus treatment of an unvisited arm.
func (p *Planner) ucbSelect(v graph.VertexID) graph.VertexID {
	vert := p.Graph.Vertex(v)
	actions := vert.Stats.SortedActions()

	var best graph.VertexID
	bestScore := math.Inf(1)
	for _, q := range actions {
		a := vert.Stats.Actions[q]
		if a.N == 0 {
			return q
		}
		score := a.Q - p.Cfg.CExploreSim*math.Sqrt(math.Log(float64(vert.Stats.N)+1)/(float64(a.N)+1e-9))
		if score < bestScore {
			bestScore = score
			best = q
		}
	}
	return best
}

// rolloutSelect dispatches to the configured rollout policy.
func (p *Planner) rolloutSelect(v graph.VertexID) graph.VertexID {
	if p.Cfg.RolloutPolicy == "baseline" {
		return p.baselineSelect(v)
	}
	return p.importanceSelect(v)
}

// baselineSelect follows the roadmap's precomputed baseline feedback
// pointer when v names a FIRM vertex and that pointer is a legal action
// here; otherwise it falls back to the heuristic argmin over Q, the same
// fallback importanceSelect uses when weights degenerate.
func (p *Planner) baselineSelect(v graph.VertexID) graph.VertexID {
	vert := p.Graph.Vertex(v)
	actions := vert.Stats.SortedActions()
	if len(actions) == 0 {
		return graph.InvalidVertex
	}

	if name, ok := p.vertexToName[v]; ok {
		if next, ok2 := p.RM.BaselineFeedback[name]; ok2 {
			if target, ok3 := p.nameToVertex[next]; ok3 {
				if _, legal := vert.Stats.Actions[target]; legal {
					return target
				}
			}
		}
	}

	return p.argminQ(actions, vert)
}

func (p *Planner) argminQ(actions []graph.VertexID, vert *graph.Vertex) graph.VertexID {
	best := actions[0]
	bestQ := math.Inf(1)
	for _, q := range actions {
		if a := vert.Stats.Actions[q]; a.Q < bestQ {
			bestQ = a.Q
			best = q
		}
	}
	return best
}

// importanceSelect draws an action proportional to an importance weight
// derived from its Q value: actions whose target is already within
// NEpsForIsReached multiples of the equivalence tolerances of v's belief
// use the within-reach exponent/regulator pair; all others use the
// out-of-reach pair. Lower Q (cheaper cost-to-go) always yields a larger
// weight.
func (p *Planner) importanceSelect(v graph.VertexID) graph.VertexID {
	vert := p.Graph.Vertex(v)
	actions := vert.Stats.SortedActions()
	if len(actions) == 0 {
		return graph.InvalidVertex
	}

	weights := make([]float64, len(actions))
	total := 0.0
	for i, q := range actions {
		a := vert.Stats.Actions[q]
		target := p.Graph.Vertex(q).Belief

		exponent, regulator := p.Cfg.CExploitOutOfReach, p.Cfg.CostToGoRegulatorOutOfReach
		if model.IsReachedWithinNEps(vert.Belief, target, p.Cfg.Tolerances, p.Cfg.NEpsForIsReached) {
			exponent, regulator = p.Cfg.CExploitWithinReach, p.Cfg.CostToGoRegulatorWithinReach
		}

		w := 1.0 / math.Pow(regulator+math.Max(a.Q, 0), exponent)
		weights[i] = w
		total += w
	}

	if total <= 0 || math.IsInf(total, 1) || math.IsNaN(total) {
		return p.argminQ(actions, vert)
	}

	r := p.rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r <= cum {
			return actions[i]
		}
	}
	return actions[len(actions)-1]
}
