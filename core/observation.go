package core

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// PlanarObservationModel is the module's reference model.ObservationModel:
// a direct noisy pose observation, z = x + noise, used by the reference
// executive and the end-to-end tests.
type PlanarObservationModel struct {
	NoiseR *mat.SymDense
	Rand   *rand.Rand
}

// NewPlanarObservationModel constructs a direct-pose observation model with
// the given observation noise covariance.
func NewPlanarObservationModel(noiseR *mat.SymDense, rng *rand.Rand) *PlanarObservationModel {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &PlanarObservationModel{NoiseR: noiseR, Rand: rng}
}

func (m *PlanarObservationModel) GetObservation(state *mat.VecDense) *mat.VecDense {
	n := state.Len()
	z := mat.NewVecDense(n, nil)
	z.CloneFromVec(state)
	for i := 0; i < n; i++ {
		sigma := 0.0
		if m.NoiseR != nil && i < m.NoiseR.SymmetricDim() {
			sigma = m.NoiseR.At(i, i)
		}
		if sigma > 0 {
			z.SetVec(i, z.AtVec(i)+m.Rand.NormFloat64()*math.Sqrt(sigma))
		}
	}
	return z
}

func (m *PlanarObservationModel) Jacobian(xStar *mat.VecDense) (H *mat.Dense, R *mat.SymDense) {
	n := xStar.Len()
	h := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		h.Set(i, i, 1)
	}
	r := m.NoiseR
	if r == nil {
		r = mat.NewSymDense(n, nil)
	}
	return h, r
}
