package planner

import (
	"github.com/signalsfoundry/firm-pomcp-planner/internal/graph"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// CommitAction promotes action q's observation child at root to the new
// search root, installing bNew as its belief (allocating a fresh vertex if
// the action had never been taken), then prunes every sibling subtree of
// root so the reused tree keeps only the branch actually traversed.
func (p *Planner) CommitAction(root, q graph.VertexID, bNew *model.Belief) graph.VertexID {
	vert := p.Graph.Vertex(root)
	a := vert.Stats.Actions[q]

	newRoot := a.ChildQVnode
	if newRoot == graph.InvalidVertex {
		newRoot = p.Graph.AddVertex(bNew, graph.KindPOMCP)
		a.ChildQVnode = newRoot
	} else {
		p.Graph.Vertex(newRoot).Belief = bNew
	}

	p.pruneSiblings(root, newRoot)
	return newRoot
}

// pruneSiblings post-order prunes every child subtree of root other than
// keep.
func (p *Planner) pruneSiblings(root, keep graph.VertexID) {
	vert := p.Graph.Vertex(root)
	for _, q := range vert.Stats.SortedActions() {
		a := vert.Stats.Actions[q]
		if a.ChildQVnode == graph.InvalidVertex || a.ChildQVnode == keep {
			continue
		}
		p.pruneSubtree(a.ChildQVnode)
	}
}

// pruneSubtree recursively prunes v's descendants before pruning v itself.
// It refuses FIRM vertices, which structurally can never be the target of
// a ChildQVnode pointer in this design — only search-allocated vertices
// ever are — so this check never actually fires in practice, but it keeps
// the function safe if that invariant is ever violated.
func (p *Planner) pruneSubtree(v graph.VertexID) {
	vert := p.Graph.Vertex(v)
	if vert == nil || vert.Kind == graph.KindFIRM {
		return
	}

	for _, q := range vert.Stats.SortedActions() {
		a := vert.Stats.Actions[q]
		if a.ChildQVnode != graph.InvalidVertex {
			p.pruneSubtree(a.ChildQVnode)
		}
	}

	_ = p.Graph.PruneVertex(v)
}
