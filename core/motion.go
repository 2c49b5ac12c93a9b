package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PlanarMotionModel is the module's reference model.MotionModel: a
// unicycle over state (x, y, theta) with control (v, omega). Grounded in
// spirit on the teacher's MotionModel interface shape (core/motion.go),
// replacing its satellite-orbit variants with the planar ground-robot
// dynamics this specification's domain actually needs.
type PlanarMotionModel struct {
	Dt       float64
	ProcessQ *mat.SymDense // per-step additive process noise covariance
}

// NewPlanarMotionModel constructs a PlanarMotionModel advancing state by dt
// seconds per nominal step with the given process noise covariance.
func NewPlanarMotionModel(dt float64, processQ *mat.SymDense) *PlanarMotionModel {
	return &PlanarMotionModel{Dt: dt, ProcessQ: processQ}
}

func (m *PlanarMotionModel) ApplyControl(state *mat.VecDense, u *mat.VecDense) *mat.VecDense {
	x, y, theta := state.AtVec(0), state.AtVec(1), state.AtVec(2)
	v, omega := u.AtVec(0), u.AtVec(1)

	nextTheta := NormalizeAngle(theta + omega*m.Dt)
	nextX := x + v*math.Cos(theta)*m.Dt
	nextY := y + v*math.Sin(theta)*m.Dt

	out := mat.NewVecDense(state.Len(), nil)
	out.SetVec(0, nextX)
	out.SetVec(1, nextY)
	out.SetVec(2, nextTheta)
	for i := 3; i < state.Len(); i++ {
		out.SetVec(i, state.AtVec(i))
	}
	return out
}

func (m *PlanarMotionModel) GetZeroControl() *mat.VecDense {
	return mat.NewVecDense(2, nil)
}

// Jacobians linearizes the unicycle model at (xStar, uStar): A = ∂f/∂x,
// B = ∂f/∂u, evaluated analytically.
func (m *PlanarMotionModel) Jacobians(xStar, uStar *mat.VecDense) (A, B *mat.Dense, Q *mat.SymDense) {
	theta := xStar.AtVec(2)
	v := uStar.AtVec(0)
	dt := m.Dt

	n := xStar.Len()
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
	}
	a.Set(0, 2, -v*math.Sin(theta)*dt)
	a.Set(1, 2, v*math.Cos(theta)*dt)

	b := mat.NewDense(n, 2, nil)
	b.Set(0, 0, math.Cos(theta)*dt)
	b.Set(1, 0, math.Sin(theta)*dt)
	b.Set(2, 1, dt)

	q := m.ProcessQ
	if q == nil {
		q = mat.NewSymDense(n, nil)
	}
	return a, b, q
}
