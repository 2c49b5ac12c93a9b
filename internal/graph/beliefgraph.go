// Package graph implements the belief graph: an arena of FIRM (persistent)
// and POMCP (transient) vertices, keyed by stable integer ids per the
// re-architecture guidance, with a nearest-neighbor index restricted to
// FIRM vertices.
package graph

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// VertexID and EdgeID are stable arena keys; cross-references between
// vertices, edges, and controllers are ids, not owning pointers.
type VertexID int
type EdgeID int

// InvalidVertex is the sentinel for an unset childQVnode pointer.
const InvalidVertex VertexID = -1

// InvalidEdge is the sentinel for "no previously selected edge", used by
// the Executive to detect the first iteration of a run.
const InvalidEdge EdgeID = -1

// VertexKind distinguishes roadmap vertices (persistent, NN-indexed) from
// search-allocated vertices (transient, never NN-indexed).
type VertexKind int

const (
	KindFIRM VertexKind = iota
	KindPOMCP
)

// FIRMWeight is the weight carried by a roadmap edge: its cost and the
// roadmap builder's estimated success probability.
type FIRMWeight struct {
	EdgeCost           float64
	SuccessProbability float64
}

// EdgeController is the capability the graph needs from a controller in
// order to treat an edge as the transition oracle: it is satisfied
// structurally by internal/controller.EdgeController and
// internal/controller.NodeController without either package importing the
// other.
type EdgeController interface {
	IsTerminated(b *model.Belief, t int) bool
}

// ActionStats holds the POMCP statistics for one action q available at a
// vertex: N(h,q), M(h,q), Q(h,q), and the pointer to the unique
// observation child allocated the first time that action was taken.
type ActionStats struct {
	N           int
	M           int
	Q           float64
	ChildQVnode VertexID
	EdgeID      EdgeID
}

// VertexStats holds the POMCP statistics described in §3 of the
// specification: N(h), J(h), the per-action table, and whether the action
// set has been materialized.
type VertexStats struct {
	N               int
	J               float64
	ChildQExpanded  bool
	Actions         map[VertexID]*ActionStats // keyed by FIRM neighbor vertex id q
	actionOrder     []VertexID                // insertion order, for deterministic iteration
}

// ensureAction returns the ActionStats for neighbor q, creating it with an
// admissible-heuristic-pending zero value if absent.
func (s *VertexStats) ensureAction(q VertexID) *ActionStats {
	if s.Actions == nil {
		s.Actions = make(map[VertexID]*ActionStats)
	}
	a, ok := s.Actions[q]
	if !ok {
		a = &ActionStats{ChildQVnode: InvalidVertex}
		s.Actions[q] = a
		s.actionOrder = append(s.actionOrder, q)
	}
	return a
}

// SortedActions returns the action keys in the order they were installed,
// for deterministic iteration in argmin scans and tests.
func (s *VertexStats) SortedActions() []VertexID {
	out := make([]VertexID, len(s.actionOrder))
	copy(out, s.actionOrder)
	return out
}

// Vertex is a belief vertex in the search/roadmap graph: a belief state
// enriched with POMCP statistics, plus bookkeeping the graph needs to
// implement pruning.
type Vertex struct {
	ID      VertexID
	Kind    VertexKind
	Belief  *model.Belief
	Stats   VertexStats
	OutEdge map[VertexID]EdgeID // neighbor -> edge id, mirrors Stats.Actions keys
	Pruned  bool

	// Pos caches the planar pose used by the NN index, so the index does
	// not need to dereference Belief for every comparison.
	Pos [2]float64
}

// Edge is a directed edge carrying the controller that realizes it and its
// FIRM weight.
type Edge struct {
	ID         EdgeID
	From, To   VertexID
	Weight     FIRMWeight
	Controller EdgeController
}

// BeliefGraph is the mutable arena described in §4.5. Vertex and edge
// storage never reuses ids and never removes arena slots on prune — pruned
// vertices are marked unusable and have their heavy state released, but the
// slot itself persists so that stale ids encountered elsewhere fail
// predictably rather than aliasing a new vertex.
type BeliefGraph struct {
	vertices []*Vertex
	edges    []*Edge
	nn       *nnIndex
}

// NewBeliefGraph constructs an empty graph.
func NewBeliefGraph() *BeliefGraph {
	return &BeliefGraph{nn: newNNIndex()}
}

// AddVertex allocates a new vertex holding belief b and returns its id.
// FIRM vertices are also inserted into the NN index; POMCP vertices are
// not.
func (g *BeliefGraph) AddVertex(b *model.Belief, kind VertexKind) VertexID {
	id := VertexID(len(g.vertices))
	x, y := 0.0, 0.0
	if b != nil {
		x, y, _ = b.Pose()
	}
	v := &Vertex{
		ID:      id,
		Kind:    kind,
		Belief:  b,
		OutEdge: make(map[VertexID]EdgeID),
		Pos:     [2]float64{x, y},
	}
	g.vertices = append(g.vertices, v)
	if kind == KindFIRM {
		g.nn.insert(id, v.Pos)
	}
	return id
}

// AddEdge installs a directed edge from u to v with the given weight and
// controller, returning its id.
func (g *BeliefGraph) AddEdge(u, v VertexID, weight FIRMWeight, ctrl EdgeController) EdgeID {
	id := EdgeID(len(g.edges))
	e := &Edge{ID: id, From: u, To: v, Weight: weight, Controller: ctrl}
	g.edges = append(g.edges, e)
	g.Vertex(u).OutEdge[v] = id
	return id
}

// EnsureAction returns the ActionStats for neighbor q at vertex v, creating
// it (and recording q in the vertex's deterministic action order) if this
// is the first time q has been installed as an action of v.
func (g *BeliefGraph) EnsureAction(v, q VertexID) *ActionStats {
	vert := g.Vertex(v)
	if vert == nil {
		return nil
	}
	return vert.Stats.ensureAction(q)
}

// Vertex returns the vertex for id, or nil if id is out of range.
func (g *BeliefGraph) Vertex(id VertexID) *Vertex {
	if id < 0 || int(id) >= len(g.vertices) {
		return nil
	}
	return g.vertices[id]
}

// Edge returns the edge for id, or nil if id is out of range.
func (g *BeliefGraph) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		return nil
	}
	return g.edges[id]
}

// EdgeBetween returns the edge id from u to v, if one has been installed.
func (g *BeliefGraph) EdgeBetween(u, v VertexID) (EdgeID, bool) {
	vert := g.Vertex(u)
	if vert == nil {
		return 0, false
	}
	id, ok := vert.OutEdge[v]
	return id, ok
}

// NeighborsWithinRadius returns the FIRM vertices within r of v's pose,
// temporarily inserting v into the NN index so that non-FIRM vertices can
// query against FIRM vertices plus themselves, then removing it — the
// "insert v, query, remove v" pattern §4.6.4 specifies, which guarantees
// the index contains only FIRM vertices on return.
func (g *BeliefGraph) NeighborsWithinRadius(v VertexID, r float64) []VertexID {
	vert := g.Vertex(v)
	if vert == nil {
		return nil
	}

	inserted := vert.Kind != KindFIRM
	if inserted {
		g.nn.insert(v, vert.Pos)
	}

	results := g.nn.queryWithinRadius(vert.Pos, r, v)

	if inserted {
		g.nn.remove(v)
	}

	return results
}

// IndexedVertexCount returns the number of vertices currently present in
// the NN index, exposed so tests can assert "only FIRM vertices are
// indexed" directly rather than through NeighborsWithinRadius's side
// effects.
func (g *BeliefGraph) IndexedVertexCount() int {
	return g.nn.count()
}

// LiveVertexCount returns the number of non-pruned vertices, used by the
// "pruning releases memory" testable property.
func (g *BeliefGraph) LiveVertexCount() int {
	n := 0
	for _, v := range g.vertices {
		if !v.Pruned {
			n++
		}
	}
	return n
}

// PruneVertex releases a vertex's heavy state (belief, outgoing edges) and
// marks it unusable. It never removes the arena slot and never prunes a
// FIRM vertex — callers must check Kind before calling this on anything but
// a POMCP-transient vertex.
func (g *BeliefGraph) PruneVertex(id VertexID) error {
	v := g.Vertex(id)
	if v == nil {
		return fmt.Errorf("graph: prune: vertex %d does not exist", id)
	}
	if v.Kind == KindFIRM {
		return fmt.Errorf("graph: prune: refusing to prune FIRM vertex %d", id)
	}
	if v.Pruned {
		return nil
	}
	v.Belief = nil
	v.Stats = VertexStats{}
	for n := range v.OutEdge {
		delete(v.OutEdge, n)
	}
	v.Pruned = true
	return nil
}

// --- nearest-neighbor index ---
//
// A brute-force index over a small number of FIRM vertices is sufficient
// for the roadmap sizes this core ever indexes (roadmap construction, out
// of scope per §1, is expected to produce hundreds, not millions, of
// vertices); it keeps the insert/query/remove contract simple to verify
// against the "only FIRM vertices indexed" testable property.
type nnIndex struct {
	points map[VertexID][2]float64
}

func newNNIndex() *nnIndex {
	return &nnIndex{points: make(map[VertexID][2]float64)}
}

func (idx *nnIndex) insert(id VertexID, pos [2]float64) {
	idx.points[id] = pos
}

func (idx *nnIndex) remove(id VertexID) {
	delete(idx.points, id)
}

func (idx *nnIndex) count() int {
	return len(idx.points)
}

func (idx *nnIndex) queryWithinRadius(pos [2]float64, r float64, exclude VertexID) []VertexID {
	type scored struct {
		id   VertexID
		dist float64
	}
	var hits []scored
	for id, p := range idx.points {
		if id == exclude {
			continue
		}
		dx, dy := p[0]-pos[0], p[1]-pos[1]
		d := dx*dx + dy*dy
		if d <= r*r {
			hits = append(hits, scored{id: id, dist: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]VertexID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}
