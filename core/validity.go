package core

import "gonum.org/v1/gonum/mat"

// Obstacle is a circular obstacle in the planar workspace.
type Obstacle struct {
	Center Pose
	Radius float64
}

// PlanarValidityOracle is the module's reference model.ValidityOracle: a
// set of circular obstacles tested against a point state. Grounded on
// geometry.go's line-of-sight-style geometric predicate, adapted from 3D
// Earth-sphere intersection to 2D point-in-obstacle testing.
type PlanarValidityOracle struct {
	Obstacles []Obstacle
}

func NewPlanarValidityOracle(obstacles []Obstacle) *PlanarValidityOracle {
	return &PlanarValidityOracle{Obstacles: obstacles}
}

func (o *PlanarValidityOracle) IsValid(state *mat.VecDense) bool {
	p := Pose{X: state.AtVec(0), Y: state.AtVec(1)}
	for _, obs := range o.Obstacles {
		if segmentIntersectsCircle(p, p, obs.Center, obs.Radius) {
			return false
		}
	}
	return true
}

func (o *PlanarValidityOracle) CheckTrueStateValidity(state *mat.VecDense) bool {
	return o.IsValid(state)
}
