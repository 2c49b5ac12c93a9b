package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewBeliefEnforcesPSD(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 2, 2, 1}) // eigenvalues -1, 3
	b := NewBelief([]float64{0, 0}, cov)

	var eig mat.EigenSym
	if !eig.Factorize(b.Cov, false) {
		t.Fatalf("failed to factorize repaired covariance")
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-9 {
			t.Errorf("covariance eigenvalue %v is negative after EnforcePSD", v)
		}
	}
}

func TestTraceCov(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{2, 0, 0, 3})
	b := NewBelief([]float64{0, 0}, cov)
	if got := b.TraceCov(); math.Abs(got-5) > 1e-9 {
		t.Errorf("TraceCov() = %v, want 5", got)
	}
}

func TestIsReachedPose(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	tol := EquivalenceTolerances{EpsPos: 0.1, EpsOri: 0.1, EpsCov: 0.1}

	a := NewBelief([]float64{0, 0, 0}, cov)
	near := NewBelief([]float64{0.05, 0, 0}, cov)
	far := NewBelief([]float64{1, 0, 0}, cov)

	if !IsReachedPose(a, near, tol) {
		t.Error("expected near belief to be reached")
	}
	if IsReachedPose(a, far, tol) {
		t.Error("expected far belief to not be reached")
	}
}

func TestIsReachedRespectsCovarianceUnlessRelaxed(t *testing.T) {
	tightCov := mat.NewSymDense(3, []float64{0.001, 0, 0, 0, 0.001, 0, 0, 0, 0.001})
	looseCov := mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})

	target := NewBelief([]float64{0, 0, 0}, tightCov)
	loose := NewBelief([]float64{0, 0, 0}, looseCov)

	strict := EquivalenceTolerances{EpsPos: 0.1, EpsOri: 0.1, EpsCov: 0.1}
	if IsReached(loose, target, strict) {
		t.Error("expected high-covariance belief to fail the strict covariance test")
	}

	relaxed := EquivalenceTolerances{EpsPos: 0.1, EpsOri: 0.1, EpsCov: 0.1, RelaxedCov: true}
	if !IsReached(loose, target, relaxed) {
		t.Error("expected RelaxedCov to ignore the covariance term")
	}
}

func TestIsReachedWithinNEpsScalesThresholds(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	tol := EquivalenceTolerances{EpsPos: 0.1, EpsOri: 0.1, EpsCov: 0.1}

	target := NewBelief([]float64{0, 0, 0}, cov)
	b := NewBelief([]float64{0.25, 0, 0}, cov)

	if IsReachedWithinNEps(b, target, tol, 1) {
		t.Error("expected n=1 to be too tight for a 0.25 offset")
	}
	if !IsReachedWithinNEps(b, target, tol, 3) {
		t.Error("expected n=3 to cover a 0.25 offset against EpsPos=0.1")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	b := NewBelief([]float64{1, 2}, cov)
	c := b.Clone()

	c.Mean.SetVec(0, 99)
	c.Cov.SetSym(0, 0, 99)

	if b.Mean.AtVec(0) == 99 {
		t.Error("Clone aliased the mean vector")
	}
	if b.Cov.At(0, 0) == 99 {
		t.Error("Clone aliased the covariance matrix")
	}
}
