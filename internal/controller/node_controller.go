package controller

import (
	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// NodeController is the stabilizing regulator at a FIRM vertex: it holds a
// single stationary LinearSystem (the node's own pose held fixed) and
// drives a belief toward isReached of the node's goal belief, using the
// same Evolve/Filter machinery EdgeController uses for trajectory
// following.
type NodeController struct {
	LS       *model.LinearSystem
	Ctrl     core.SeparatedController
	Filter   core.Filter
	Motion   model.MotionModel
	Obs      model.ObservationModel
	Validity model.ValidityOracle
	Goal     *model.Belief
	Cfg      model.Config

	tries int

	ConstructionMode bool
}

func (c *NodeController) IsTerminated(b *model.Belief, t int) bool {
	return model.IsReached(b, c.Goal, c.Cfg.Tolerances)
}

func (c *NodeController) evolve(ts *truestate.State, b *model.Belief) (*model.Belief, bool, error) {
	u := c.Ctrl.GenerateFeedbackControl(b, 0)

	nextTrue := c.Motion.ApplyControl(ts.Get(), u)
	ts.Set(nextTrue)

	if c.ConstructionMode && c.Validity != nil {
		if !c.Validity.CheckTrueStateValidity(nextTrue) {
			return b, false, nil
		}
	}

	z := c.Obs.GetObservation(nextTrue)
	bNext, err := c.Filter.Evolve(b, u, z, c.LS, c.LS)
	if err != nil {
		return b, false, err
	}
	return bNext, true, nil
}

// StabilizeUpto iterates Evolve up to N steps or until isReached(B, goal),
// while tries <= MaxTries. Exceeding MaxTries without reaching the goal is
// not itself a collision; it simply stops the loop and returns the last
// belief reached, mirroring the bounded-retry semantics the specification
// assigns to node stabilization.
func (c *NodeController) StabilizeUpto(ts *truestate.State, n int, b0 *model.Belief) (*model.Belief, float64, int, bool) {
	if c.tries >= c.Cfg.MaxTries {
		return b0, 0, 0, model.IsReached(b0, c.Goal, c.Cfg.Tolerances)
	}
	c.tries++

	cur := b0
	var cost float64
	steps := 0

	for ; steps < n; steps++ {
		if model.IsReached(cur, c.Goal, c.Cfg.Tolerances) {
			return cur, cost, steps, true
		}
		next, ok, err := c.evolve(ts, cur)
		if err != nil || !ok {
			return cur, cost, steps, false
		}
		cost += next.TraceCov() + c.Cfg.CostBias
		cur = next
	}

	return cur, cost, steps, model.IsReached(cur, c.Goal, c.Cfg.Tolerances)
}
