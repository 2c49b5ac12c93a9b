package model

import "gonum.org/v1/gonum/mat"

// LinearSystem is a per-nominal-step linearization record: the nominal state
// and control at that point of the trajectory, the Jacobians of the process
// and observation models evaluated there, and the corresponding noise
// covariances. It is a pure value with no mutable state after construction,
// consumed by both Filter.Evolve and SeparatedController.GenerateFeedbackControl.
type LinearSystem struct {
	XStar *mat.VecDense
	UStar *mat.VecDense

	A *mat.Dense // process Jacobian w.r.t. state
	B *mat.Dense // process Jacobian w.r.t. control
	H *mat.Dense // observation Jacobian

	Q *mat.SymDense // process noise covariance
	R *mat.SymDense // observation noise covariance
}

// NewLinearSystem builds a LinearSystem at nominal point (xStar, uStar) by
// querying the motion and observation models for their Jacobians and noise
// covariances at that point.
func NewLinearSystem(xStar, uStar *mat.VecDense, motion MotionModel, obs ObservationModel) *LinearSystem {
	a, b, q := motion.Jacobians(xStar, uStar)
	h, r := obs.Jacobian(xStar)
	return &LinearSystem{
		XStar: xStar,
		UStar: uStar,
		A:     a,
		B:     b,
		H:     h,
		Q:     q,
		R:     r,
	}
}

// GetX returns the nominal state accessor.
func (ls *LinearSystem) GetX() *mat.VecDense {
	return ls.XStar
}
