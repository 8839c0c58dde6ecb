package wfc

import (
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/kernel"
)

// View is the read-only slice of solver state invariants may inspect.
type View interface {
	Graph() *graph.Graph
	IsCollapsed(id graph.NodeID) bool
}

// Invariant vetoes candidate states and names nodes to re-examine after a
// commit. Check must not mutate the view.
type Invariant interface {
	// Check reports whether state is admissible at node.
	Check(node graph.NodeID, state *graph.NodeState, v View) bool
	// Propagate returns the nodes affected by collapsing node. It must name
	// every open node whose Check verdict the commit can change; the
	// entropy traversal recounts only those.
	Propagate(node graph.NodeID, v View) []graph.NodeID
}

// Gravity requires every block off the floor to rest on a collapsed block.
// "Below" is found from stored positions: a predecessor one layer lower.
// A node at Y == 0, or with no predecessor one layer lower, is on the floor.
type Gravity struct{}

var _ Invariant = Gravity{}

// Check implements Invariant.
func (Gravity) Check(node graph.NodeID, state *graph.NodeState, v View) bool {
	g := v.Graph()
	y := state.Position.Y
	if y == 0 {
		return true
	}
	hasBelow := false
	for _, p := range g.Predecessors(node) {
		if g.Node(p).Position.Y != y-1 {
			continue
		}
		if v.IsCollapsed(p) {
			return true
		}
		hasBelow = true
	}
	return !hasBelow
}

// Propagate implements Invariant. It returns the successors one layer up.
func (Gravity) Propagate(node graph.NodeID, v View) []graph.NodeID {
	g := v.Graph()
	y := g.Node(node).Position.Y
	var above []graph.NodeID
	for _, n := range g.Neighbors(node) {
		if g.Node(n).Position.Y == y+1 {
			above = append(above, n)
		}
	}
	return above
}

// Obstacle is a named solid no block may enter.
type Obstacle struct {
	Name  string
	Solid kernel.Solid
}

// KeepOut rejects candidates whose box reaches into any obstacle.
type KeepOut struct {
	Obstacles []Obstacle
	// Samples is the per-axis lattice resolution; zero means
	// kernel.DefaultSamples.
	Samples int
}

var _ Invariant = (*KeepOut)(nil)

// Check implements Invariant.
func (k *KeepOut) Check(_ graph.NodeID, state *graph.NodeState, _ View) bool {
	box := state.Box()
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	for _, o := range k.Obstacles {
		if kernel.Occupies(o.Solid, lo, hi, k.Samples) {
			return false
		}
	}
	return true
}

// Propagate implements Invariant. Obstacles never move, so nothing is
// affected.
func (k *KeepOut) Propagate(graph.NodeID, View) []graph.NodeID {
	return nil
}
