package planner

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

func beliefWithTraceCov(t *testing.T, trace float64) *model.Belief {
	t.Helper()
	v := trace / 3
	return model.NewBelief([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{
		v, 0, 0,
		0, v, 0,
		0, 0, v,
	}))
}

func TestApproxStabCostIsZeroWhenAlreadyTighter(t *testing.T) {
	p := buildPlanner(t, nil)

	from := beliefWithTraceCov(t, 0.01)
	to := beliefWithTraceCov(t, 0.05) // to is looser than from: covRatio clamps to 1, stepsToStop == 0

	cost := p.approxStabCost(from, to)
	if math.Abs(cost) > 1e-9 {
		t.Errorf("approxStabCost(from, to) = %v, want ~0 when to's covariance is not tighter than from's", cost)
	}
}

func TestApproxStabCostGrowsWithRequiredConvergence(t *testing.T) {
	p := buildPlanner(t, nil)

	loose := beliefWithTraceCov(t, 0.2)
	tightNear := beliefWithTraceCov(t, 0.15)
	tightFar := beliefWithTraceCov(t, 0.01)

	costNear := p.approxStabCost(loose, tightNear)
	costFar := p.approxStabCost(loose, tightFar)

	if !(costFar > costNear) {
		t.Errorf("expected stabilizing to a much tighter covariance to cost more: costNear=%v costFar=%v", costNear, costFar)
	}
}

func TestApproxEdgeCostUsesBothBeliefsInStabTerm(t *testing.T) {
	p := buildPlanner(t, nil)

	from := beliefWithTraceCov(t, 0.2)
	to := beliefWithTraceCov(t, 0.01)

	got := p.approxEdgeCost(from, to)
	want := p.approxTransCost(from, to) + p.approxStabCost(from, to)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("approxEdgeCost(from, to) = %v, want approxTransCost(from,to)+approxStabCost(from,to) = %v", got, want)
	}
}

func TestCostToGoWithApproxStabFollowsBaselineFeedbackChain(t *testing.T) {
	p := buildPlanner(t, nil)

	aV, ok := p.nameToVertex["A"]
	if !ok {
		t.Fatal("vertex A not found")
	}
	next, ok := p.RM.BaselineFeedback["A"]
	if !ok {
		t.Fatal("no baseline feedback recorded for A")
	}

	cost := p.costToGoWithApproxStab(aV)
	base := p.RM.BaselineCostToGo["A"]

	if next == p.RM.Goal {
		if math.Abs(cost-base) > 1e-9 {
			t.Errorf("A's feedback hop lands on the goal directly: cost = %v, want exactly the baseline %v", cost, base)
		}
		return
	}

	// Otherwise the recursive term must have contributed something beyond
	// the flat baseline value (a positive stabilization-inflated delta).
	if math.Abs(cost-base) < 1e-12 {
		t.Errorf("expected the recursive approx-stab term to adjust cost away from the flat baseline %v, got %v", base, cost)
	}
}
