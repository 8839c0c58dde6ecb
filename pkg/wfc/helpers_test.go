package wfc

import (
	"io"
	"log/slog"

	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// legoBrick has a stud on top and a tube underneath.
func legoBrick(name string, size block.Size) block.Brick {
	return block.NewBrick(name, size,
		block.NewFace(block.Stud, block.O0),
		block.NewFace(block.Tube, block.O0),
	)
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Logger = quietLogger()
	return opts
}

// firstChoice is a deterministic heuristic: lowest node id, first state.
type firstChoice struct{}

func (firstChoice) SelectNode(states [][]graph.NodeState, collapsed graph.Set) (graph.NodeID, bool) {
	for i, s := range states {
		if len(s) > 0 && !collapsed.Has(graph.NodeID(i)) {
			return graph.NodeID(i), true
		}
	}
	return 0, false
}

func (firstChoice) SelectState(_ graph.NodeID, valid []graph.NodeState) (graph.NodeState, bool) {
	if len(valid) == 0 {
		return graph.NodeState{}, false
	}
	return valid[0], true
}

// refusing never picks a state.
type refusing struct{ firstChoice }

func (refusing) SelectState(graph.NodeID, []graph.NodeState) (graph.NodeState, bool) {
	return graph.NodeState{}, false
}

// rankedBlock overrides the ranking of a brick, including zero.
type rankedBlock struct {
	block.Brick
	r float32
}

func (b rankedBlock) Ranking() float32 { return b.r }

// staticView is a View over a graph with a fixed collapsed set.
type staticView struct {
	g         *graph.Graph
	collapsed graph.Set
}

func (v staticView) Graph() *graph.Graph                { return v.g }
func (v staticView) IsCollapsed(id graph.NodeID) bool { return v.collapsed.Has(id) }
