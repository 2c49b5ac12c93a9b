package core

import (
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// SeparatedController is the capability-set contract for generating a
// feedback control from a belief and a time index along the nominal
// trajectory it is regulating toward.
type SeparatedController interface {
	GenerateFeedbackControl(b *model.Belief, t int) *mat.VecDense
}

// LQGController is a SeparatedController built from a
// precomputed, time-indexed sequence of linear feedback gains applied to
// the deviation of the belief mean from the nominal trajectory. Beyond the
// trajectory length it holds the last gain fixed (the stationary regulator
// the spec requires).
type LQGController struct {
	nominal []*model.LinearSystem
	gains   []*mat.Dense // Kt such that u = uStar - Kt*(x - xStar)
}

// NewLQGController builds an LQGController over a nominal trajectory using
// precomputed gains, one per LinearSystem entry. Gains beyond the supplied
// slice reuse the last one.
func NewLQGController(nominal []*model.LinearSystem, gains []*mat.Dense) *LQGController {
	return &LQGController{nominal: nominal, gains: gains}
}

func (c *LQGController) GenerateFeedbackControl(b *model.Belief, t int) *mat.VecDense {
	idx := t
	if idx >= len(c.nominal) {
		idx = len(c.nominal) - 1
	}
	if idx < 0 {
		idx = 0
	}

	ls := c.nominal[idx]
	gain := c.gains[len(c.gains)-1]
	if idx < len(c.gains) {
		gain = c.gains[idx]
	}

	deviation := mat.NewVecDense(b.Mean.Len(), nil)
	deviation.SubVec(b.Mean, ls.XStar)

	var correction mat.VecDense
	correction.MulVec(gain, deviation)

	u := mat.NewVecDense(ls.UStar.Len(), nil)
	u.SubVec(ls.UStar, &correction)
	return u
}
