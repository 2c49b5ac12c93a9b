package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Belief is a Gaussian approximation of the robot's posterior state: a mean
// pose and a positive-semi-definite covariance. POMCP search statistics live
// alongside it on the graph vertex that owns it (see internal/graph), not on
// the Belief itself, so that Belief stays a plain value usable by filters and
// controllers without pulling in search bookkeeping.
type Belief struct {
	Mean *mat.VecDense
	Cov  *mat.SymDense
}

// NewBelief builds a Belief from a mean slice and a covariance matrix,
// symmetrizing and eigenvalue-flooring the covariance so the invariant
// "every Belief's covariance is PSD" holds from construction onward.
func NewBelief(mean []float64, cov *mat.SymDense) *Belief {
	b := &Belief{
		Mean: mat.NewVecDense(len(mean), append([]float64(nil), mean...)),
		Cov:  cov,
	}
	EnforcePSD(b.Cov)
	return b
}

// Clone returns a deep copy of b, used whenever a belief must be stored on a
// new graph vertex without aliasing the caller's matrices.
func (b *Belief) Clone() *Belief {
	mean := mat.NewVecDense(b.Mean.Len(), nil)
	mean.CloneFromVec(b.Mean)
	n := b.Cov.SymmetricDim()
	cov := mat.NewSymDense(n, nil)
	cov.CopySym(b.Cov)
	return &Belief{Mean: mean, Cov: cov}
}

// TraceCov returns trace(Σ), the scalar uncertainty measure used throughout
// the cost heuristics and the isReached family of predicates.
func (b *Belief) TraceCov() float64 {
	return mat.Trace(b.Cov)
}

// Pose extracts the planar (x, y, theta) components of the mean, assuming
// the first three state dimensions are position and heading. Higher-order
// state (velocity, bias terms, ...) is ignored by the planar equivalence
// predicates below.
func (b *Belief) Pose() (x, y, theta float64) {
	return b.Mean.AtVec(0), b.Mean.AtVec(1), b.Mean.AtVec(2)
}

// EnforcePSD symmetrizes m in place and floors its eigenvalues at zero,
// repairing numerical drift that predict/correct steps can introduce. This
// is the one mandatory numerical guarantee the filter contract requires.
func EnforcePSD(m *mat.SymDense) {
	n := m.SymmetricDim()
	if n == 0 {
		return
	}

	var eig mat.EigenSym
	ok := eig.Factorize(m, true)
	if !ok {
		return
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	floored := false
	for i, v := range values {
		if v < 0 {
			values[i] = 0
			floored = true
		}
	}
	if !floored {
		return
	}

	// Reconstruct Σ = V diag(λ) V^T from the floored eigenvalues.
	diag := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		diag.Set(i, i, values[i])
	}

	var tmp, rebuilt mat.Dense
	tmp.Mul(&vectors, diag)
	rebuilt.Mul(&tmp, vectors.T())

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (rebuilt.At(i, j) + rebuilt.At(j, i))
			m.SetSym(i, j, v)
		}
	}
}

// EquivalenceTolerances bundles the thresholds used by isReachedPose,
// isReached, and isReachedWithinNEps.
type EquivalenceTolerances struct {
	EpsPos float64
	EpsOri float64
	EpsCov float64

	// RelaxedCov, when true, allows isReached to ignore the covariance
	// term entirely (the "relaxation allowed by a flag" of the belief
	// equivalence predicates).
	RelaxedCov bool
}

// IsReachedPose reports whether b's pose is within tol.EpsPos / tol.EpsOri of
// target's pose, ignoring covariance.
func IsReachedPose(b, target *Belief, tol EquivalenceTolerances) bool {
	bx, by, bt := b.Pose()
	tx, ty, tt := target.Pose()
	posDist := math.Hypot(bx-tx, by-ty)
	oriDist := math.Abs(normalizeAngle(bt - tt))
	return posDist <= tol.EpsPos && oriDist <= tol.EpsOri
}

// IsReached reports whether b is reached of target: IsReachedPose plus a
// covariance test, unless tol.RelaxedCov is set.
func IsReached(b, target *Belief, tol EquivalenceTolerances) bool {
	if !IsReachedPose(b, target, tol) {
		return false
	}
	if tol.RelaxedCov {
		return true
	}
	return b.TraceCov()-target.TraceCov() <= tol.EpsCov
}

// IsReachedWithinNEps is IsReached with every threshold scaled by n, used to
// decide whether rollout action-selection should use within-reach or
// out-of-reach importance weights.
func IsReachedWithinNEps(b, target *Belief, tol EquivalenceTolerances, n float64) bool {
	scaled := EquivalenceTolerances{
		EpsPos:     tol.EpsPos * n,
		EpsOri:     tol.EpsOri * n,
		EpsCov:     tol.EpsCov * n,
		RelaxedCov: tol.RelaxedCov,
	}
	return IsReached(b, target, scaled)
}

func normalizeAngle(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}
