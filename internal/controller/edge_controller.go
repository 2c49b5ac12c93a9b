// Package controller implements the transition oracle the search samples
// over: EdgeController drives a belief along a nominal open-loop trajectory
// between two FIRM vertices, and NodeController stabilizes a belief at a
// single FIRM vertex. Both are built from {Filter, SeparatedController,
// LinearSystem sequence}, per §4.4 of the specification.
package controller

import (
	"math"

	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// EdgeController owns a nominal trajectory, a SeparatedController, a
// Filter, a goal belief, and the static thresholds (now threaded in via
// Config rather than held as package-level statics) needed to drive a
// belief between two FIRM vertices.
type EdgeController struct {
	LSs      []*model.LinearSystem
	Ctrl     core.SeparatedController
	Filter   core.Filter
	Motion   model.MotionModel
	Obs      model.ObservationModel
	Validity model.ValidityOracle
	Goal     *model.Belief
	Cfg      model.Config

	tries int

	// ConstructionMode, when true, performs true-state validity checks
	// each step (the search uses this); execution mode does not sleep or
	// throttle differently — see DESIGN.md for why this module departs
	// from the reference implementation's real-time pacing.
	ConstructionMode bool
}

// MaxExecTime is the execution time cap, ⌈L · MaxExecTimeScale⌉.
func (c *EdgeController) MaxExecTime() int {
	return int(math.Ceil(float64(len(c.LSs)) * c.Cfg.MaxExecTimeScale))
}

// IsTerminated reports whether B's mean is within nodeReachedDistance of
// the goal, in planar distance only.
func (c *EdgeController) IsTerminated(b *model.Belief, t int) bool {
	bx, by, _ := b.Pose()
	gx, gy, _ := c.Goal.Pose()
	return math.Hypot(bx-gx, by-gy) <= c.Cfg.NodeReachedDistance
}

// linearSystemsAt returns the (LS_t, LS_{t+1}) pair clamped to the
// trajectory bounds.
func (c *EdgeController) linearSystemsAt(t int) (now, next *model.LinearSystem) {
	n := len(c.LSs)
	if n == 0 {
		return nil, nil
	}
	idx := t
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	nextIdx := idx + 1
	if nextIdx >= n {
		nextIdx = n - 1
	}
	return c.LSs[idx], c.LSs[nextIdx]
}

// Evolve performs one controller step: generates a feedback control,
// applies it to the hidden true state, optionally validates that state,
// produces an observation, and calls the Filter to commit a new belief.
// The returned bool is false on a construction-mode collision.
func (c *EdgeController) Evolve(ts *truestate.State, b *model.Belief, t int) (*model.Belief, bool, error) {
	u := c.Ctrl.GenerateFeedbackControl(b, t)

	nextTrue := c.Motion.ApplyControl(ts.Get(), u)
	ts.Set(nextTrue)

	if c.ConstructionMode && c.Validity != nil {
		if !c.Validity.CheckTrueStateValidity(nextTrue) {
			return b, false, nil
		}
	}

	z := c.Obs.GetObservation(nextTrue)
	lsNow, lsNext := c.linearSystemsAt(t)

	bNext, err := c.Filter.Evolve(b, u, z, lsNow, lsNext)
	if err != nil {
		return b, false, err
	}
	return bNext, true, nil
}

// executeSteps is the shared loop behind Execute, executeOneStep,
// executeUpto, and executeFromUpto: it runs Evolve from kStart for at most
// maxSteps iterations, stopping early on termination, deviation, or
// collision.
func (c *EdgeController) executeSteps(ts *truestate.State, b0 *model.Belief, kStart, maxSteps int) (bEnd *model.Belief, filterCost float64, steps int, timeToStop bool, ok bool) {
	cur := b0
	t := kStart

	for steps = 0; steps < maxSteps; steps++ {
		if c.IsTerminated(cur, t) {
			return cur, filterCost, steps, false, true
		}

		next, stepOK, err := c.Evolve(ts, cur, t)
		if err != nil || !stepOK {
			return cur, filterCost, steps, false, false
		}

		lsNow, _ := c.linearSystemsAt(t)
		if lsNow != nil {
			nx, ny, _ := next.Pose()
			sx, sy := lsNow.XStar.AtVec(0), lsNow.XStar.AtVec(1)
			if math.Hypot(nx-sx, ny-sy) > c.Cfg.NominalTrajDeviationThreshold {
				return next, filterCost, steps + 1, false, false
			}
		}

		filterCost += next.TraceCov() + c.Cfg.CostBias
		cur = next
		t++
	}

	if c.IsTerminated(cur, t) {
		return cur, filterCost, steps, false, true
	}
	return cur, filterCost, steps, true, true
}

// Execute iterates Evolve from step 0 until isTerminated, deviation, or (in
// construction mode) collision, bounded by MaxExecTime.
func (c *EdgeController) Execute(ts *truestate.State, b0 *model.Belief) (*model.Belief, float64, int, bool, bool) {
	return c.executeSteps(ts, b0, 0, c.MaxExecTime())
}

// ExecuteOneStep runs a single Evolve at nominal index k.
func (c *EdgeController) ExecuteOneStep(ts *truestate.State, k int, b0 *model.Belief) (*model.Belief, float64, int, bool, bool) {
	return c.executeSteps(ts, b0, k, 1)
}

// ExecuteUpto runs from step 0 for at most N steps, the bounded-horizon
// variant the POMCP search and Executive use for an incremental action.
func (c *EdgeController) ExecuteUpto(ts *truestate.State, n int, b0 *model.Belief) (*model.Belief, float64, int, bool, bool) {
	return c.executeSteps(ts, b0, 0, n)
}

// ExecuteFromUpto resumes from step kStart for at most N steps. kStart must
// advance when the same edge is selected across successive Executive
// iterations, and reset to 0 when a different edge is selected — that
// bookkeeping lives in the Executive, not here.
func (c *EdgeController) ExecuteFromUpto(ts *truestate.State, kStart, n int, b0 *model.Belief) (*model.Belief, float64, int, bool, bool) {
	return c.executeSteps(ts, b0, kStart, n)
}

// Tries returns the value of the controller's tries counter. Nothing in
// EdgeController increments it, so it stays 0; NodeController keeps its own
// separate tries counter for StabilizeUpto.
func (c *EdgeController) Tries() int {
	return c.tries
}
