package graph

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

func belief(x, y float64) *model.Belief {
	cov := mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	return model.NewBelief([]float64{x, y, 0}, cov)
}

func TestNNIndexOnlyContainsFIRMVertices(t *testing.T) {
	g := NewBeliefGraph()
	firm := g.AddVertex(belief(0, 0), KindFIRM)
	pomcp := g.AddVertex(belief(1, 1), KindPOMCP)

	if g.IndexedVertexCount() != 1 {
		t.Fatalf("IndexedVertexCount() = %d, want 1 (only FIRM vertex indexed)", g.IndexedVertexCount())
	}

	neighbors := g.NeighborsWithinRadius(pomcp, 10)
	if len(neighbors) != 1 || neighbors[0] != firm {
		t.Fatalf("NeighborsWithinRadius(pomcp) = %v, want [%d]", neighbors, firm)
	}

	// The temporary insert/query/remove pattern must leave the index
	// exactly as it found it.
	if g.IndexedVertexCount() != 1 {
		t.Fatalf("IndexedVertexCount() after query = %d, want 1", g.IndexedVertexCount())
	}
}

func TestEnsureActionIsDeterministicAndIdempotent(t *testing.T) {
	g := NewBeliefGraph()
	v := g.AddVertex(belief(0, 0), KindPOMCP)
	q1 := g.AddVertex(belief(1, 0), KindFIRM)
	q2 := g.AddVertex(belief(0, 1), KindFIRM)

	a1 := g.EnsureAction(v, q1)
	_ = g.EnsureAction(v, q2)
	a1Again := g.EnsureAction(v, q1)

	if a1 != a1Again {
		t.Error("EnsureAction should return the same ActionStats for a repeated key")
	}

	order := g.Vertex(v).Stats.SortedActions()
	if len(order) != 2 || order[0] != q1 || order[1] != q2 {
		t.Errorf("SortedActions() = %v, want install order [%d %d]", order, q1, q2)
	}
}

func TestPruneVertexRefusesFIRM(t *testing.T) {
	g := NewBeliefGraph()
	firm := g.AddVertex(belief(0, 0), KindFIRM)

	if err := g.PruneVertex(firm); err == nil {
		t.Error("expected PruneVertex to refuse a FIRM vertex")
	}
}

func TestPruneVertexReleasesMemoryAndIsIdempotent(t *testing.T) {
	g := NewBeliefGraph()
	v := g.AddVertex(belief(0, 0), KindPOMCP)

	before := g.LiveVertexCount()
	if err := g.PruneVertex(v); err != nil {
		t.Fatalf("PruneVertex: %v", err)
	}
	if got := g.LiveVertexCount(); got != before-1 {
		t.Errorf("LiveVertexCount() = %d, want %d", got, before-1)
	}
	if g.Vertex(v).Belief != nil {
		t.Error("expected belief to be released on prune")
	}

	if err := g.PruneVertex(v); err != nil {
		t.Errorf("second PruneVertex call should be a no-op, got %v", err)
	}
}

func TestAddEdgeAndEdgeBetween(t *testing.T) {
	g := NewBeliefGraph()
	a := g.AddVertex(belief(0, 0), KindFIRM)
	b := g.AddVertex(belief(1, 0), KindFIRM)

	id := g.AddEdge(a, b, FIRMWeight{EdgeCost: 1, SuccessProbability: 0.9}, nil)
	got, ok := g.EdgeBetween(a, b)
	if !ok || got != id {
		t.Fatalf("EdgeBetween(a,b) = (%d, %v), want (%d, true)", got, ok, id)
	}
	if _, ok := g.EdgeBetween(b, a); ok {
		t.Error("edges are directed; EdgeBetween(b,a) should not find the a->b edge")
	}
}
