package core

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// PursuitController is a SeparatedController that drives a unicycle belief
// toward the nominal waypoint at index t using proportional heading and
// range control. It is the module's default edge regulator, used whenever
// an EdgeController is built on demand (expandActions constructs a fresh
// nominal trajectory between an arbitrary belief and a FIRM neighbor, so a
// precomputed LQR gain sequence is not available the way it would be for a
// hand-tuned, offline-synthesized roadmap edge).
type PursuitController struct {
	nominal []*model.LinearSystem
	Kv      float64
	KOmega  float64
}

// NewPursuitController builds a pursuit controller over nominal, with
// default gains if kv/kOmega are zero.
func NewPursuitController(nominal []*model.LinearSystem, kv, kOmega float64) *PursuitController {
	if kv == 0 {
		kv = 0.8
	}
	if kOmega == 0 {
		kOmega = 2.0
	}
	return &PursuitController{nominal: nominal, Kv: kv, KOmega: kOmega}
}

func (c *PursuitController) GenerateFeedbackControl(b *model.Belief, t int) *mat.VecDense {
	idx := t
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.nominal) {
		idx = len(c.nominal) - 1
	}

	target := c.nominal[idx].XStar
	x, y, theta := b.Pose()
	tx, ty := target.AtVec(0), target.AtVec(1)

	dx, dy := tx-x, ty-y
	rng := math.Hypot(dx, dy)
	desiredTheta := theta
	if rng > 1e-9 {
		desiredTheta = math.Atan2(dy, dx)
	}
	headingErr := NormalizeAngle(desiredTheta - theta)

	u := mat.NewVecDense(2, nil)
	u.SetVec(0, c.Kv*rng)
	u.SetVec(1, c.KOmega*headingErr)
	return u
}
