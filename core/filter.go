package core

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// Filter is the capability-set contract the search depends on: one-step
// belief update given the applied control, the received observation, and
// the two linearizations straddling the step. Concrete variants (EKF, UKF,
// particle, ...) all satisfy this single method; the core never enumerates
// them.
type Filter interface {
	Evolve(b *model.Belief, u *mat.VecDense, z *mat.VecDense, lsNow, lsNext *model.LinearSystem) (*model.Belief, error)
}

// EKFFilter is the module's default Filter: an extended-Kalman predict and
// correct step evaluated against the Jacobians carried by the straddling
// LinearSystem pair. Grounded on the predict/correct shape of the reference
// filters consulted for this module, implemented with gonum/mat rather than
// hand-rolled slice arithmetic.
type EKFFilter struct {
	motion model.MotionModel
}

// NewEKFFilter constructs an EKFFilter that advances the mean through the
// supplied motion model and linearizes around lsNow/lsNext for the
// covariance update.
func NewEKFFilter(motion model.MotionModel) *EKFFilter {
	return &EKFFilter{motion: motion}
}

func (f *EKFFilter) Evolve(b *model.Belief, u *mat.VecDense, z *mat.VecDense, lsNow, lsNext *model.LinearSystem) (*model.Belief, error) {
	n := b.Mean.Len()

	// Predict: propagate the mean through the (possibly nonlinear) motion
	// model, and the covariance through the linearization at lsNow.
	meanPred := f.motion.ApplyControl(b.Mean, u)

	var apT mat.Dense
	apT.Mul(lsNow.A, b.Cov)
	var apat mat.Dense
	apat.Mul(&apT, lsNow.A.T())

	covPredDense := mat.NewDense(n, n, nil)
	covPredDense.Add(&apat, lsNow.Q)
	covPred := denseToSym(covPredDense, n)
	model.EnforcePSD(covPred)

	if z == nil {
		// No observation this step (e.g. a stabilization micro-step with no
		// sensor reading available): the posterior is the prediction.
		return &model.Belief{Mean: meanPred, Cov: covPred}, nil
	}

	// Correct, linearizing the observation at lsNext.
	h := lsNext.H
	r := lsNext.R

	var hx mat.VecDense
	hx.MulVec(h, meanPred)

	innovation := mat.NewVecDense(hx.Len(), nil)
	innovation.SubVec(z, &hx)

	var hp mat.Dense
	hp.Mul(h, covPred)
	var hpht mat.Dense
	hpht.Mul(&hp, h.T())

	m := hpht.RawMatrix().Rows
	s := mat.NewDense(m, m, nil)
	s.Add(&hpht, r)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return nil, fmt.Errorf("filter: invert innovation covariance: %w", err)
	}

	var pht mat.Dense
	pht.Mul(covPred, h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, innovation)

	meanNew := mat.NewVecDense(n, nil)
	meanNew.AddVec(meanPred, &correction)

	var kh mat.Dense
	kh.Mul(&k, h)
	identity := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		identity.Set(i, i, 1)
	}
	var imkh mat.Dense
	imkh.Sub(identity, &kh)

	var covNewDense mat.Dense
	covNewDense.Mul(&imkh, covPred)

	covNew := denseToSym(&covNewDense, n)
	model.EnforcePSD(covNew)

	return &model.Belief{Mean: meanNew, Cov: covNew}, nil
}

// denseToSym copies the symmetric part of a dense matrix into a SymDense,
// used after arithmetic that produces a Dense result known by construction
// to be (numerically near-)symmetric.
func denseToSym(d mat.Matrix, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (d.At(i, j) + d.At(j, i))
			sym.SetSym(i, j, v)
		}
	}
	return sym
}
