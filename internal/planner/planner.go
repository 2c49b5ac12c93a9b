// Package planner implements the online belief-space search: POMCP over
// the FIRM roadmap's neighborhood structure, sampling hidden true-state
// particles through the shared truestate.State and backing up through the
// belief graph's per-vertex statistics.
package planner

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/controller"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/roadmap"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// Planner owns the belief graph, the loaded roadmap, the model
// collaborators, and the shared hidden true state the particle loop in
// ChooseAction samples and restores.
type Planner struct {
	Graph *graph.BeliefGraph
	RM    *roadmap.Roadmap
	Cfg   model.Config

	Motion   model.MotionModel
	Obs      model.ObservationModel
	Validity model.ValidityOracle
	Filter   core.Filter

	True *truestate.State
	rng  *rand.Rand

	nameToVertex map[roadmap.Name]graph.VertexID
	vertexToName map[graph.VertexID]roadmap.Name

	ecByEdge map[graph.EdgeID]*controller.EdgeController

	costToGoMemo      map[graph.VertexID]float64
	costToGoComputing map[graph.VertexID]bool
}

// NewPlanner loads rm's FIRM vertex and edge set into a fresh BeliefGraph
// and returns a Planner ready to answer ChooseAction queries against it.
func NewPlanner(rm *roadmap.Roadmap, cfg model.Config, motion model.MotionModel, obs model.ObservationModel, validity model.ValidityOracle, filter core.Filter, trueState *truestate.State, rng *rand.Rand) *Planner {
	p := &Planner{
		Graph:             graph.NewBeliefGraph(),
		RM:                rm,
		Cfg:               cfg,
		Motion:            motion,
		Obs:               obs,
		Validity:          validity,
		Filter:            filter,
		True:              trueState,
		rng:               rng,
		nameToVertex:      make(map[roadmap.Name]graph.VertexID),
		vertexToName:      make(map[graph.VertexID]roadmap.Name),
		ecByEdge:          make(map[graph.EdgeID]*controller.EdgeController),
		costToGoMemo:      make(map[graph.VertexID]float64),
		costToGoComputing: make(map[graph.VertexID]bool),
	}
	p.loadRoadmap()
	return p
}

// RootVertex returns the graph vertex id for the roadmap's named start
// vertex, the usual first root passed to ChooseAction.
func (p *Planner) RootVertex() (graph.VertexID, bool) {
	id, ok := p.nameToVertex[p.RM.Start]
	return id, ok
}

// VertexForName and NameForVertex expose the roadmap-name <-> arena-id
// correspondence the Executive needs to report progress in terms a
// roadmap-literate caller recognizes.
func (p *Planner) VertexForName(n roadmap.Name) (graph.VertexID, bool) {
	id, ok := p.nameToVertex[n]
	return id, ok
}

func (p *Planner) NameForVertex(v graph.VertexID) (roadmap.Name, bool) {
	n, ok := p.vertexToName[v]
	return n, ok
}

func (p *Planner) loadRoadmap() {
	for name, belief := range p.RM.Beliefs {
		id := p.Graph.AddVertex(belief.Clone(), graph.KindFIRM)
		p.nameToVertex[name] = id
		p.vertexToName[id] = name
	}
	for from, nbrs := range p.RM.Edges {
		fromID := p.nameToVertex[from]
		for to, w := range nbrs {
			toID := p.nameToVertex[to]
			p.installEdge(fromID, toID, w)
		}
	}
}

// installEdge constructs an on-the-fly nominal trajectory and pursuit
// controller for a precomputed roadmap edge. The roadmap contract (§4.2)
// ships only costs and success probabilities, not precomputed gain
// sequences, so every edge — roadmap-defined or search-constructed — is
// realized the same way: BuildNominalTrajectory plus a PursuitController.
func (p *Planner) installEdge(from, to graph.VertexID, w graph.FIRMWeight) graph.EdgeID {
	fromBelief := p.Graph.Vertex(from).Belief
	toBelief := p.Graph.Vertex(to).Belief

	lss := roadmap.BuildNominalTrajectory(fromBelief, toBelief, p.Cfg.NominalStepsPerEdge, p.Motion, p.Obs)
	ctrl := core.NewPursuitController(lss, 0, 0)
	ec := &controller.EdgeController{
		LSs:              lss,
		Ctrl:             ctrl,
		Filter:           p.Filter,
		Motion:           p.Motion,
		Obs:              p.Obs,
		Validity:         p.Validity,
		Goal:             toBelief,
		Cfg:              p.Cfg,
		ConstructionMode: true,
	}

	id := p.Graph.AddEdge(from, to, w, ec)
	p.ecByEdge[id] = ec
	return id
}

// ChooseAction runs NumParticles POMCP simulations from root, sampling a
// 3σ-inflated hidden true state per particle, and returns the minimizing
// action's edge and observation-child vertex. The hidden true state is
// snapshotted on entry and restored on every exit path, normal or
// exceptional, since every simulation mutates it through Evolve.
func (p *Planner) ChooseAction(root graph.VertexID) (graph.EdgeID, graph.VertexID, error) {
	snapshot := p.True.Snapshot()
	defer p.True.Restore(snapshot)

	rootVert := p.Graph.Vertex(root)
	if rootVert == nil {
		return 0, graph.InvalidVertex, model.ErrActionInfeasible
	}

	for i := 0; i < p.Cfg.NumParticles; i++ {
		sample := p.sampleTrueState(rootVert.Belief)
		p.True.Set(sample)
		p.simulate(root, 0, graph.InvalidVertex)
	}

	return p.bestAction(root)
}

// bestAction returns the argmin-Q action at v, breaking ties uniformly at
// random so repeated queries over an already-converged tree do not always
// favor the first-installed action.
func (p *Planner) bestAction(v graph.VertexID) (graph.EdgeID, graph.VertexID, error) {
	vert := p.Graph.Vertex(v)
	actions := vert.Stats.SortedActions()
	if len(actions) == 0 {
		return 0, graph.InvalidVertex, model.ErrActionInfeasible
	}

	best := math.Inf(1)
	var bestQs []graph.VertexID
	for _, q := range actions {
		a := vert.Stats.Actions[q]
		switch {
		case a.Q < best:
			best = a.Q
			bestQs = []graph.VertexID{q}
		case a.Q == best:
			bestQs = append(bestQs, q)
		}
	}

	chosen := bestQs[p.rng.Intn(len(bestQs))]
	a := vert.Stats.Actions[chosen]
	return a.EdgeID, chosen, nil
}

// sampleTrueState draws a particle from b's Gaussian, scaling its standard
// deviation by ParticleSigmaInflation (3σ by default) so particles exercise
// tail behavior a naive single-sigma sample would rarely reach, grounded on
// the reference planner's particle-sampling step.
func (p *Planner) sampleTrueState(b *model.Belief) *mat.VecDense {
	n := b.Mean.Len()
	infl := p.Cfg.ParticleSigmaInflation

	scaled := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			scaled.SetSym(i, j, b.Cov.At(i, j)*infl*infl)
		}
	}

	var chol mat.Cholesky
	sample := mat.NewVecDense(n, nil)
	if !chol.Factorize(scaled) {
		sample.CloneFromVec(b.Mean)
		return sample
	}

	var l mat.TriDense
	chol.LTo(&l)

	z := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		z.SetVec(i, p.rng.NormFloat64())
	}

	var lz mat.VecDense
	lz.MulVec(&l, z)
	sample.AddVec(b.Mean, &lz)
	return sample
}
