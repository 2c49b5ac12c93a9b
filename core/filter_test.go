package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

func TestEKFFilterEvolvePredictOnly(t *testing.T) {
	motion := NewPlanarMotionModel(1.0, mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01}))
	filter := NewEKFFilter(motion)

	xStar := mat.NewVecDense(3, []float64{0, 0, 0})
	uStar := mat.NewVecDense(2, []float64{1, 0})
	obs := NewPlanarObservationModel(mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01}), nil)
	ls := model.NewLinearSystem(xStar, uStar, motion, obs)

	b := model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01}))
	u := mat.NewVecDense(2, []float64{1, 0})

	next, err := filter.Evolve(b, u, nil, ls, ls)
	if err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if math.Abs(next.Mean.AtVec(0)-1) > 1e-9 {
		t.Errorf("predicted x = %v, want 1", next.Mean.AtVec(0))
	}
	if next.TraceCov() <= b.TraceCov() {
		t.Error("predict-only step should grow uncertainty by adding process noise")
	}
}

func TestEKFFilterEvolveCorrectShrinksCovariance(t *testing.T) {
	motion := NewPlanarMotionModel(1.0, mat.NewSymDense(3, []float64{0.001, 0, 0, 0, 0.001, 0, 0, 0, 0.001}))
	filter := NewEKFFilter(motion)
	obs := NewPlanarObservationModel(mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01}), nil)

	xStar := mat.NewVecDense(3, []float64{0, 0, 0})
	uStar := mat.NewVecDense(2, []float64{0, 0})
	ls := model.NewLinearSystem(xStar, uStar, motion, obs)

	b := model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	u := mat.NewVecDense(2, []float64{0, 0})
	z := mat.NewVecDense(3, []float64{0, 0, 0})

	next, err := filter.Evolve(b, u, z, ls, ls)
	if err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if next.TraceCov() >= b.TraceCov() {
		t.Errorf("correct step with a confident observation should shrink covariance: before=%v after=%v", b.TraceCov(), next.TraceCov())
	}
}
