package planner

import (
	"math"

	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// estimateSteps returns the nominal step count a straight-line transition
// from b to target would take, the max of the position-limited and
// orientation-limited step counts implied by HeurPosStep/HeurOriStep.
func (p *Planner) estimateSteps(b, target *model.Belief) int {
	bx, by, bt := b.Pose()
	tx, ty, tt := target.Pose()

	posSteps := math.Hypot(tx-bx, ty-by) / math.Max(p.Cfg.HeurPosStep, 1e-9)
	oriSteps := math.Abs(angleDiff(tt, bt)) / math.Max(p.Cfg.HeurOriStep, 1e-9)

	steps := int(math.Ceil(math.Max(posSteps, oriSteps)))
	if steps < 1 {
		steps = 1
	}
	return steps
}

func angleDiff(a, b float64) float64 {
	d := a - b
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// accumulateFilteringCost projects trace(Σ) forward for steps nominal
// iterations, geometrically shrinking it by CovConvergenceRate each step —
// the approximate filtering-cost term both approxTransCost and
// approxStabCost share.
func (p *Planner) accumulateFilteringCost(startCov float64, steps int) float64 {
	cov := startCov
	total := 0.0
	for i := 0; i < steps; i++ {
		cov *= p.Cfg.CovConvergenceRate
		total += cov
	}
	return total
}

// approxTransCost estimates the cost of a straight-line transition from b
// toward target: the weighted sum of the projected filtering cost and the
// step count, per the Total = WInfo*filteringCost + WTime*K heuristic.
func (p *Planner) approxTransCost(b, target *model.Belief) float64 {
	steps := p.estimateSteps(b, target)
	filteringCost := p.accumulateFilteringCost(b.TraceCov(), steps)
	return p.Cfg.WInfo*filteringCost + p.Cfg.WTime*float64(steps)
}

// approxStabCost estimates the cost of stabilizing from's covariance down
// to to's: the number of nominal filtering steps K needed to shrink
// trace(Σ_from) to trace(Σ_to) at CovConvergenceRate per step, derived from
// the covariance ratio (clamped to <= 1 so an already-tighter target never
// yields a negative step count), then the closed-form geometric sum of the
// projected covariance over those K steps.
func (p *Planner) approxStabCost(from, to *model.Belief) float64 {
	startTraceCov := from.TraceCov()
	targetTraceCov := to.TraceCov()

	covRatio := targetTraceCov / startTraceCov
	if covRatio > 1.0 {
		covRatio = 1.0
	}

	rho := p.Cfg.CovConvergenceRate
	stepsToStop := math.Log(covRatio) / math.Log(rho)

	filteringCost := startTraceCov * rho * (1 - math.Pow(rho, stepsToStop)) / (1 - rho)
	return p.Cfg.WInfo*filteringCost + p.Cfg.WTime*stepsToStop
}

// approxEdgeCost estimates the full cost of an edge: the transition cost
// plus the cost of stabilizing once the target is reached.
func (p *Planner) approxEdgeCost(from, to *model.Belief) float64 {
	return p.approxTransCost(from, to) + p.approxStabCost(from, to)
}

// costToGoWithApproxStab returns the heuristic cost-to-go used to seed a
// freshly expanded action. For a named FIRM vertex it follows the
// roadmap's BaselineFeedback chain toward the goal: at the goal itself, or
// at a vertex whose very next feedback hop is the goal, the baseline
// cost-to-go is returned directly with no stabilization term added; at any
// other vertex it recurses one hop down the chain and folds in the
// stabilization-inflated difference between the next vertex's approx-stab
// cost-to-go and its own baseline value, per
// updateCostToGoWithApproxStabCost. For a POMCP-transient vertex with no
// roadmap name it falls back to nearestFIRMCostToGo. Memoized with a cycle
// guard returning +Inf, since a vertex can in principle be reached while
// its own cost-to-go is still being computed.
func (p *Planner) costToGoWithApproxStab(v graph.VertexID) float64 {
	if cost, ok := p.costToGoMemo[v]; ok {
		return cost
	}
	if p.costToGoComputing[v] {
		return math.Inf(1)
	}
	p.costToGoComputing[v] = true
	defer delete(p.costToGoComputing, v)

	vert := p.Graph.Vertex(v)
	if vert == nil {
		return math.Inf(1)
	}

	name, ok := p.vertexToName[v]
	if !ok {
		cost := p.nearestFIRMCostToGo(v, vert)
		p.costToGoMemo[v] = cost
		return cost
	}

	base, ok := p.RM.BaselineCostToGo[name]
	if !ok {
		p.costToGoMemo[v] = math.Inf(1)
		return math.Inf(1)
	}

	var cost float64
	switch {
	case name == p.RM.Goal:
		cost = base
	default:
		next, ok := p.RM.BaselineFeedback[name]
		switch {
		case !ok:
			cost = math.Inf(1)
		case next == p.RM.Goal:
			cost = base
		default:
			nextV, ok := p.nameToVertex[next]
			baseNext, ok2 := p.RM.BaselineCostToGo[next]
			if !ok || !ok2 {
				cost = math.Inf(1)
			} else {
				costNext := p.costToGoWithApproxStab(nextV)
				stabCost := p.approxStabCost(vert.Belief, p.Graph.Vertex(nextV).Belief)
				cost = base + (costNext - baseNext) + p.Cfg.InflationForApproxStabCost*stabCost
			}
		}
	}

	p.costToGoMemo[v] = cost
	return cost
}

// nearestFIRMCostToGo estimates a transient vertex's cost-to-go via its
// FIRM neighbors' baseline cost-to-go tables, each folded through the same
// approx-stab recursion as a named vertex.
func (p *Planner) nearestFIRMCostToGo(v graph.VertexID, vert *graph.Vertex) float64 {
	best := math.Inf(1)
	for _, n := range p.Graph.NeighborsWithinRadius(v, p.Cfg.NeighborRadius) {
		if _, ok := p.vertexToName[n]; !ok {
			continue
		}
		nb := p.Graph.Vertex(n).Belief
		c := p.approxTransCost(vert.Belief, nb) + p.costToGoWithApproxStab(n)
		if c < best {
			best = c
		}
	}
	return best
}
