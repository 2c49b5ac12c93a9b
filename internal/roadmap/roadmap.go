// Package roadmap provides the external-collaborator contract the
// specification treats as out of scope (roadmap construction) along with a
// small, hand-specified fixture implementation sufficient to drive this
// module's own tests and demo executive. It is not a sampling-based
// roadmap builder.
package roadmap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// Name identifies a FIRM vertex in the roadmap's own naming, independent
// of the arena ids the BeliefGraph later assigns when the roadmap is
// loaded into it.
type Name string

// Roadmap is the external-collaborator contract: a FIRM vertex set, a
// baseline feedback map (vertex → next vertex along the baseline policy),
// a baseline cost-to-go map, and the edge weights used to derive them.
type Roadmap struct {
	Beliefs          map[Name]*model.Belief
	Edges            map[Name]map[Name]graph.FIRMWeight
	BaselineFeedback map[Name]Name
	BaselineCostToGo map[Name]float64
	Start            Name
	Goal             Name
}

// Neighbors returns the names reachable by a direct edge from v, sorted
// for deterministic iteration.
func (r *Roadmap) Neighbors(v Name) []Name {
	out := make([]Name, 0, len(r.Edges[v]))
	for n := range r.Edges[v] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Weight returns the FIRMWeight of the edge v→n, if one exists.
func (r *Roadmap) Weight(v, n Name) (graph.FIRMWeight, bool) {
	w, ok := r.Edges[v][n]
	return w, ok
}

// NewRoadmap constructs a Roadmap from a belief set and a directed edge
// cost map, then computes the baseline feedback policy and cost-to-go
// table by Dijkstra from every vertex to goal — the DP the specification
// names as the roadmap builder's job, shipped here only so this module's
// own fixtures and tests are self-contained.
func NewRoadmap(beliefs map[Name]*model.Belief, edges map[Name]map[Name]graph.FIRMWeight, start, goal Name) (*Roadmap, error) {
	if _, ok := beliefs[goal]; !ok {
		return nil, fmt.Errorf("roadmap: goal %q not in vertex set", goal)
	}
	r := &Roadmap{
		Beliefs: beliefs,
		Edges:   edges,
		Start:   start,
		Goal:    goal,
	}
	r.BaselineCostToGo, r.BaselineFeedback = dijkstraToGoal(beliefs, edges, goal)
	return r, nil
}

// dijkstraToGoal runs Dijkstra on the reverse graph from goal, producing
// cost-to-go (not cost-from-start) and, for every reachable vertex, the
// forward neighbor that begins the shortest path to goal.
func dijkstraToGoal(beliefs map[Name]*model.Belief, edges map[Name]map[Name]graph.FIRMWeight, goal Name) (map[Name]float64, map[Name]Name) {
	costToGo := make(map[Name]float64, len(beliefs))
	feedback := make(map[Name]Name, len(beliefs))
	for v := range beliefs {
		costToGo[v] = math.Inf(1)
	}
	costToGo[goal] = 0

	reverse := make(map[Name]map[Name]float64)
	for from, nbrs := range edges {
		for to, w := range nbrs {
			if reverse[to] == nil {
				reverse[to] = make(map[Name]float64)
			}
			reverse[to][from] = w.EdgeCost
		}
	}

	visited := make(map[Name]bool)
	for {
		// Pick the unvisited vertex with the smallest known cost-to-go.
		var cur Name
		found := false
		best := math.Inf(1)
		for v, c := range costToGo {
			if visited[v] {
				continue
			}
			if c < best {
				best = c
				cur = v
				found = true
			}
		}
		if !found || math.IsInf(best, 1) {
			break
		}
		visited[cur] = true

		for pred, edgeCost := range reverse[cur] {
			candidate := costToGo[cur] + edgeCost
			if candidate < costToGo[pred] {
				costToGo[pred] = candidate
				feedback[pred] = cur
			}
		}
	}

	return costToGo, feedback
}

// NewFixtureRoadmap builds the tiny 4-vertex S/A/B/G roadmap on a unit
// square used throughout §8's end-to-end scenarios: edge(S,A)=1,
// edge(S,B)=1, edge(A,G)=1, edge(B,G)=10, baselineCostToGo(G)=0.
func NewFixtureRoadmap() (*Roadmap, error) {
	mk := func(x, y float64) *model.Belief {
		cov := mat.NewSymDense(3, []float64{
			0.01, 0, 0,
			0, 0.01, 0,
			0, 0, 0.01,
		})
		return model.NewBelief([]float64{x, y, 0}, cov)
	}

	beliefs := map[Name]*model.Belief{
		"S": mk(0, 0),
		"A": mk(1, 0),
		"B": mk(0, 1),
		"G": mk(1, 1),
	}

	edges := map[Name]map[Name]graph.FIRMWeight{
		"S": {"A": {EdgeCost: 1, SuccessProbability: 0.95}, "B": {EdgeCost: 1, SuccessProbability: 0.95}},
		"A": {"G": {EdgeCost: 1, SuccessProbability: 0.95}},
		"B": {"G": {EdgeCost: 10, SuccessProbability: 0.95}},
	}

	return NewRoadmap(beliefs, edges, "S", "G")
}

// BuildNominalTrajectory constructs a sequence of LinearSystem entries
// along a straight-line interpolation in the mean between from and to,
// evaluating the motion and observation models' Jacobians at each nominal
// point. This is the on-the-fly equivalent of a roadmap builder's
// precomputed per-edge trajectory, used by expandActions to connect an
// arbitrary belief vertex to a FIRM neighbor it has no precomputed edge
// for.
func BuildNominalTrajectory(from, to *model.Belief, steps int, motion model.MotionModel, obs model.ObservationModel) []*model.LinearSystem {
	if steps < 1 {
		steps = 1
	}
	n := from.Mean.Len()
	lss := make([]*model.LinearSystem, 0, steps)
	for i := 0; i < steps; i++ {
		frac := float64(i+1) / float64(steps)
		xStar := mat.NewVecDense(n, nil)
		for d := 0; d < n; d++ {
			a, b := from.Mean.AtVec(d), to.Mean.AtVec(d)
			xStar.SetVec(d, a+(b-a)*frac)
		}
		uStar := motion.GetZeroControl()
		lss = append(lss, model.NewLinearSystem(xStar, uStar, motion, obs))
	}
	return lss
}
