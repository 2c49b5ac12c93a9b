package planner

import (
	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/controller"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/roadmap"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// expandActions materializes v's action set the first time rollout visits
// it: every FIRM vertex within NeighborRadius becomes an available action,
// each seeded with the approximate cost-to-go heuristic so a fresh action
// never starts at an arbitrary zero value that would bias early UCB
// selection toward it.
func (p *Planner) expandActions(v graph.VertexID) error {
	vert := p.Graph.Vertex(v)
	if vert.Stats.ChildQExpanded {
		return nil
	}

	neighbors := p.Graph.NeighborsWithinRadius(v, p.Cfg.NeighborRadius)
	if len(neighbors) == 0 {
		return model.ErrActionInfeasible
	}

	for _, q := range neighbors {
		a := p.Graph.EnsureAction(v, q)

		edgeID, ok := p.Graph.EdgeBetween(v, q)
		if !ok {
			edgeID = p.buildOnTheFlyEdge(v, q)
		}
		a.EdgeID = edgeID
		a.Q = p.approxEdgeCost(vert.Belief, p.Graph.Vertex(q).Belief) + p.costToGoWithApproxStab(q)
	}

	vert.Stats.ChildQExpanded = true
	return nil
}

// buildOnTheFlyEdge connects v to q with a fresh straight-line nominal
// trajectory and pursuit controller, for the common case where v is a
// POMCP-transient vertex with no precomputed roadmap edge to any neighbor.
func (p *Planner) buildOnTheFlyEdge(v, q graph.VertexID) graph.EdgeID {
	vBelief := p.Graph.Vertex(v).Belief
	qBelief := p.Graph.Vertex(q).Belief

	lss := roadmap.BuildNominalTrajectory(vBelief, qBelief, p.Cfg.NominalStepsPerEdge, p.Motion, p.Obs)
	ctrl := core.NewPursuitController(lss, 0, 0)
	ec := &controller.EdgeController{
		LSs:              lss,
		Ctrl:             ctrl,
		Filter:           p.Filter,
		Motion:           p.Motion,
		Obs:              p.Obs,
		Validity:         p.Validity,
		Goal:             qBelief,
		Cfg:              p.Cfg,
		ConstructionMode: true,
	}

	weight := graph.FIRMWeight{
		EdgeCost:           p.approxEdgeCost(vBelief, qBelief),
		SuccessProbability: 1.0,
	}

	id := p.Graph.AddEdge(v, q, weight, ec)
	p.ecByEdge[id] = ec
	return id
}
