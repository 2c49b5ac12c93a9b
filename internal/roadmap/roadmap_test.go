package roadmap

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

type stubMotion struct{}

func (stubMotion) ApplyControl(state, u *mat.VecDense) *mat.VecDense { return state }
func (stubMotion) GetZeroControl() *mat.VecDense                     { return mat.NewVecDense(2, nil) }
func (stubMotion) Jacobians(xStar, uStar *mat.VecDense) (*mat.Dense, *mat.Dense, *mat.SymDense) {
	n := xStar.Len()
	return mat.NewDense(n, n, nil), mat.NewDense(n, 2, nil), mat.NewSymDense(n, nil)
}

type stubObs struct{}

func (stubObs) GetObservation(state *mat.VecDense) *mat.VecDense { return state }
func (stubObs) Jacobian(xStar *mat.VecDense) (*mat.Dense, *mat.SymDense) {
	n := xStar.Len()
	return mat.NewDense(n, n, nil), mat.NewSymDense(n, nil)
}

var (
	_ model.MotionModel      = stubMotion{}
	_ model.ObservationModel = stubObs{}
)

func TestFixtureRoadmapBaselineCostToGo(t *testing.T) {
	rm, err := NewFixtureRoadmap()
	if err != nil {
		t.Fatalf("NewFixtureRoadmap: %v", err)
	}

	if got := rm.BaselineCostToGo["G"]; got != 0 {
		t.Errorf("BaselineCostToGo[G] = %v, want 0", got)
	}
	// S->A->G costs 2, S->B->G costs 11; the cheaper path must win.
	if got := rm.BaselineCostToGo["S"]; math.Abs(got-2) > 1e-9 {
		t.Errorf("BaselineCostToGo[S] = %v, want 2 (via A, not B)", got)
	}
	if got := rm.BaselineFeedback["S"]; got != "A" {
		t.Errorf("BaselineFeedback[S] = %q, want %q", got, "A")
	}
}

func TestFixtureRoadmapNeighbors(t *testing.T) {
	rm, err := NewFixtureRoadmap()
	if err != nil {
		t.Fatalf("NewFixtureRoadmap: %v", err)
	}

	neighbors := rm.Neighbors("S")
	if len(neighbors) != 2 || neighbors[0] != "A" || neighbors[1] != "B" {
		t.Errorf("Neighbors(S) = %v, want sorted [A B]", neighbors)
	}
}

func TestNewRoadmapRejectsMissingGoal(t *testing.T) {
	rm, err := NewFixtureRoadmap()
	if err != nil {
		t.Fatalf("NewFixtureRoadmap: %v", err)
	}
	if _, err := NewRoadmap(rm.Beliefs, rm.Edges, rm.Start, "NOPE"); err == nil {
		t.Error("expected an error for a goal not present in the vertex set")
	}
}

func TestBuildNominalTrajectoryLength(t *testing.T) {
	rm, err := NewFixtureRoadmap()
	if err != nil {
		t.Fatalf("NewFixtureRoadmap: %v", err)
	}

	motion := stubMotion{}
	obs := stubObs{}
	lss := BuildNominalTrajectory(rm.Beliefs["S"], rm.Beliefs["A"], 5, motion, obs)
	if len(lss) != 5 {
		t.Fatalf("len(lss) = %d, want 5", len(lss))
	}
	last := lss[len(lss)-1]
	if math.Abs(last.XStar.AtVec(0)-1) > 1e-9 {
		t.Errorf("final nominal x = %v, want 1 (interpolated to A)", last.XStar.AtVec(0))
	}
}
