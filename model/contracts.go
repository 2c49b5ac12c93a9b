package model

import "gonum.org/v1/gonum/mat"

// MotionModel is the external collaborator that advances the simulator's
// hidden true state under an applied control, and supplies the process
// Jacobians a LinearSystem needs at a given nominal point. The core package
// ships a planar unicycle implementation; the search depends only on this
// contract.
type MotionModel interface {
	// ApplyControl advances state under control u for one nominal step and
	// returns the new hidden true state. It does not mutate state in place.
	ApplyControl(state *mat.VecDense, u *mat.VecDense) *mat.VecDense

	// GetZeroControl returns the control vector that leaves the system at
	// rest, used as the nominal control uStar when LinearSystems are built
	// for nominal trajectories and for the Executive's node controllers.
	GetZeroControl() *mat.VecDense

	// Jacobians returns the linearized state-transition matrix A, control
	// matrix B, and process noise covariance Q at nominal point (xStar,
	// uStar).
	Jacobians(xStar, uStar *mat.VecDense) (A, B *mat.Dense, Q *mat.SymDense)
}

// ObservationModel is the external collaborator that produces observations
// from the hidden true state and supplies the observation Jacobian a
// LinearSystem needs.
type ObservationModel interface {
	// GetObservation returns z sampled from the current true state.
	GetObservation(state *mat.VecDense) *mat.VecDense

	// Jacobian returns the linearized observation matrix H and observation
	// noise covariance R at nominal point xStar.
	Jacobian(xStar *mat.VecDense) (H *mat.Dense, R *mat.SymDense)
}

// ValidityOracle is the external collaborator that decides whether a true
// state is collision-free. Construction-mode controller execution consults
// it after every step.
type ValidityOracle interface {
	IsValid(state *mat.VecDense) bool
	CheckTrueStateValidity(state *mat.VecDense) bool
}
