package planner

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/roadmap"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// buildPlanner constructs a Planner over the S/A/B/G unit-square fixture
// with a deterministic rng, a unicycle motion model, and a direct-pose
// observation model — the configuration spec.md's §8 end-to-end scenarios
// are described against.
func buildPlanner(t *testing.T, mutate func(*model.Config)) *Planner {
	t.Helper()

	rm, err := roadmap.NewFixtureRoadmap()
	if err != nil {
		t.Fatalf("NewFixtureRoadmap: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.NumParticles = 50
	cfg.MaxDepth = 4
	cfg.MaxReachDepth = 8
	cfg.RolloutSteps = 3
	cfg.NominalStepsPerEdge = 4
	cfg.NeighborRadius = 5
	cfg.NodeReachedDistance = 0.15
	if mutate != nil {
		mutate(&cfg)
	}

	motion := core.NewPlanarMotionModel(0.2, mat.NewSymDense(3, []float64{
		0.0005, 0, 0,
		0, 0.0005, 0,
		0, 0, 0.0002,
	}))
	obs := core.NewPlanarObservationModel(mat.NewSymDense(3, []float64{
		0.001, 0, 0,
		0, 0.001, 0,
		0, 0, 0.0005,
	}), rand.New(rand.NewSource(7)))
	validity := core.NewPlanarValidityOracle(nil)
	filter := core.NewEKFFilter(motion)

	startBelief := rm.Beliefs[rm.Start]
	initTrue := mat.NewVecDense(startBelief.Mean.Len(), nil)
	initTrue.CloneFromVec(startBelief.Mean)
	ts := truestate.New(initTrue)

	rng := rand.New(rand.NewSource(42))
	return NewPlanner(rm, cfg, motion, obs, validity, filter, ts, rng)
}

func TestChooseActionFromStartPrefersCheaperRoute(t *testing.T) {
	p := buildPlanner(t, nil)
	root, ok := p.RootVertex()
	if !ok {
		t.Fatal("root vertex not found")
	}

	_, childV, err := p.ChooseAction(root)
	if err != nil {
		t.Fatalf("ChooseAction: %v", err)
	}

	// Both S->A (cost 1, then A->G cost 1) and S->B (cost 1, then B->G cost
	// 10) are directly reachable from S; the cheaper route through A should
	// dominate the backed-up Q values enough that the chosen action's
	// observation child sits near A, not near B.
	childBelief := p.Graph.Vertex(childV).Belief
	aBelief := p.Graph.Vertex(p.nameToVertex["A"]).Belief
	bBelief := p.Graph.Vertex(p.nameToVertex["B"]).Belief

	distToA := math.Hypot(childBelief.Mean.AtVec(0)-aBelief.Mean.AtVec(0), childBelief.Mean.AtVec(1)-aBelief.Mean.AtVec(1))
	distToB := math.Hypot(childBelief.Mean.AtVec(0)-bBelief.Mean.AtVec(0), childBelief.Mean.AtVec(1)-bBelief.Mean.AtVec(1))

	if distToA >= distToB {
		t.Errorf("expected ChooseAction to favor the cheaper A-side route: distToA=%v distToB=%v", distToA, distToB)
	}
}

func TestChooseActionRestoresTrueStateOnExit(t *testing.T) {
	p := buildPlanner(t, nil)
	root, _ := p.RootVertex()

	before := p.True.Get()
	beforeClone := mat.NewVecDense(before.Len(), nil)
	beforeClone.CloneFromVec(before)

	if _, _, err := p.ChooseAction(root); err != nil {
		t.Fatalf("ChooseAction: %v", err)
	}

	after := p.True.Get()
	for i := 0; i < after.Len(); i++ {
		if math.Abs(after.AtVec(i)-beforeClone.AtVec(i)) > 1e-12 {
			t.Fatalf("true state not restored: before=%v after=%v", mat.Formatted(beforeClone), mat.Formatted(after))
		}
	}
}

func TestExpandActionsSeedsHeuristic(t *testing.T) {
	p := buildPlanner(t, nil)
	root, _ := p.RootVertex()

	if err := p.expandActions(root); err != nil {
		t.Fatalf("expandActions: %v", err)
	}

	vert := p.Graph.Vertex(root)
	actions := vert.Stats.SortedActions()
	if len(actions) == 0 {
		t.Fatal("expected at least one action after expansion")
	}
	for _, q := range actions {
		a := vert.Stats.Actions[q]
		if a.N != 0 {
			t.Errorf("freshly expanded action has N=%d, want 0 before any backup", a.N)
		}
		if math.IsInf(a.Q, 1) {
			t.Errorf("freshly expanded action has an infinite heuristic seed")
		}
	}
}

func TestBackupResetsQOnFirstVisit(t *testing.T) {
	p := buildPlanner(t, nil)
	root, _ := p.RootVertex()
	if err := p.expandActions(root); err != nil {
		t.Fatalf("expandActions: %v", err)
	}

	vert := p.Graph.Vertex(root)
	q := vert.Stats.SortedActions()[0]
	a := vert.Stats.Actions[q]
	a.Q = 12345 // simulate a heuristic seed far from any real backup value

	p.backup(root, q, 5, true)
	if a.N != 1 {
		t.Fatalf("a.N = %d, want 1 after first backup", a.N)
	}
	if math.Abs(a.Q-5) > 1e-9 {
		t.Errorf("a.Q = %v, want 5 (the seed must be discarded on first backup)", a.Q)
	}

	p.backup(root, q, 15, true)
	if math.Abs(a.Q-10) > 1e-9 {
		t.Errorf("a.Q after second backup = %v, want 10 (mean of 5 and 15)", a.Q)
	}
}

func TestBackupIncrementsMissOnlyOnFailure(t *testing.T) {
	p := buildPlanner(t, nil)
	root, _ := p.RootVertex()
	if err := p.expandActions(root); err != nil {
		t.Fatalf("expandActions: %v", err)
	}

	vert := p.Graph.Vertex(root)
	q := vert.Stats.SortedActions()[0]
	a := vert.Stats.Actions[q]

	p.backup(root, q, 5, true)
	if a.M != 0 {
		t.Errorf("a.M = %d after a successful backup, want 0", a.M)
	}

	p.backup(root, q, 5, false)
	if a.M != 1 {
		t.Errorf("a.M = %d after a failed backup, want 1", a.M)
	}

	p.backup(root, q, 5, true)
	if a.M != 1 {
		t.Errorf("a.M = %d after a further successful backup, want unchanged at 1", a.M)
	}
}

func TestCommitActionPrunesSiblings(t *testing.T) {
	p := buildPlanner(t, nil)
	root, _ := p.RootVertex()

	if err := p.expandActions(root); err != nil {
		t.Fatalf("expandActions: %v", err)
	}
	vert := p.Graph.Vertex(root)
	actions := vert.Stats.SortedActions()
	if len(actions) < 2 {
		t.Skip("fixture did not expose at least two actions from S")
	}

	kept, dropped := actions[0], actions[1]
	vert.Stats.Actions[kept].ChildQVnode = p.Graph.AddVertex(p.Graph.Vertex(kept).Belief.Clone(), graph.KindPOMCP)
	vert.Stats.Actions[dropped].ChildQVnode = p.Graph.AddVertex(p.Graph.Vertex(dropped).Belief.Clone(), graph.KindPOMCP)

	before := p.Graph.LiveVertexCount()
	newRoot := p.CommitAction(root, kept, p.Graph.Vertex(vert.Stats.Actions[kept].ChildQVnode).Belief)
	after := p.Graph.LiveVertexCount()

	if after >= before {
		t.Errorf("expected LiveVertexCount to drop after pruning a sibling: before=%d after=%d", before, after)
	}
	if newRoot != vert.Stats.Actions[kept].ChildQVnode {
		t.Errorf("CommitAction returned %d, want the kept action's child %d", newRoot, vert.Stats.Actions[kept].ChildQVnode)
	}
}

func TestCostToGoWithApproxStabMatchesGoalZero(t *testing.T) {
	p := buildPlanner(t, nil)
	goalV, ok := p.nameToVertex["G"]
	if !ok {
		t.Fatal("goal vertex not found")
	}

	cost := p.costToGoWithApproxStab(goalV)
	if math.Abs(cost-p.RM.BaselineCostToGo[p.RM.Goal]) > 1e-9 {
		t.Errorf("cost-to-go at the goal should equal its baseline cost-to-go exactly (no stabilization term added at the goal itself), got %v want %v", cost, p.RM.BaselineCostToGo[p.RM.Goal])
	}
	// It must at least be small relative to a vertex far from the goal.
	startV := p.nameToVertex["S"]
	startCost := p.costToGoWithApproxStab(startV)
	if startCost <= cost {
		t.Errorf("expected S's cost-to-go (%v) to exceed G's (%v)", startCost, cost)
	}
}
