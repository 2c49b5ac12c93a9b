package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

func TestPursuitControllerDrivesTowardWaypoint(t *testing.T) {
	waypoint := mat.NewVecDense(3, []float64{1, 0, 0})
	nominal := []*model.LinearSystem{{XStar: waypoint, UStar: mat.NewVecDense(2, nil)}}
	c := NewPursuitController(nominal, 0, 0)

	b := model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01}))
	u := c.GenerateFeedbackControl(b, 0)

	if u.AtVec(0) <= 0 {
		t.Errorf("expected positive forward velocity toward a waypoint ahead, got %v", u.AtVec(0))
	}
	if math.Abs(u.AtVec(1)) > 1e-9 {
		t.Errorf("expected zero turn rate when already facing the waypoint, got %v", u.AtVec(1))
	}
}

func TestPursuitControllerClampsIndexBeyondTrajectory(t *testing.T) {
	nominal := []*model.LinearSystem{
		{XStar: mat.NewVecDense(3, []float64{1, 0, 0}), UStar: mat.NewVecDense(2, nil)},
	}
	c := NewPursuitController(nominal, 0, 0)
	b := model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, nil))

	atEnd := c.GenerateFeedbackControl(b, 5)
	atStart := c.GenerateFeedbackControl(b, 0)
	if atEnd.AtVec(0) != atStart.AtVec(0) {
		t.Errorf("expected clamped index to reuse the last waypoint: atEnd=%v atStart=%v", atEnd.AtVec(0), atStart.AtVec(0))
	}
}

func TestPursuitControllerTurnsTowardLateralWaypoint(t *testing.T) {
	waypoint := mat.NewVecDense(3, []float64{0, 1, 0})
	nominal := []*model.LinearSystem{{XStar: waypoint, UStar: mat.NewVecDense(2, nil)}}
	c := NewPursuitController(nominal, 0, 0)

	b := model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, nil))
	u := c.GenerateFeedbackControl(b, 0)
	if u.AtVec(1) <= 0 {
		t.Errorf("expected a positive turn rate toward a waypoint to the left, got %v", u.AtVec(1))
	}
}
