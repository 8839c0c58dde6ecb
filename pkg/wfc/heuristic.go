package wfc

import (
	"math"
	"math/rand/v2"

	"github.com/chazu/bild/pkg/graph"
)

// Heuristic chooses which open node to resolve next and which of its
// candidate states to commit. Implementations must not mutate their inputs.
type Heuristic interface {
	// SelectNode receives the candidate list of every node, indexed by
	// NodeID. It returns an uncollapsed node with a non-empty list, or
	// false when there is none.
	SelectNode(states [][]graph.NodeState, collapsed graph.Set) (graph.NodeID, bool)
	// SelectState picks one of valid. It returns false only when valid is
	// empty.
	SelectState(node graph.NodeID, valid []graph.NodeState) (graph.NodeState, bool)
}

// WeightedRandom picks the minimum-entropy node uniformly at random among
// ties, and a state with probability proportional to its block ranking.
// It is not safe for concurrent use; give each solver its own instance.
type WeightedRandom struct {
	rng *rand.Rand
}

var _ Heuristic = (*WeightedRandom)(nil)

// NewWeightedRandom returns a heuristic driven by a PCG source seeded with
// seed. Equal seeds give equal choices.
func NewWeightedRandom(seed uint64) *WeightedRandom {
	return &WeightedRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SelectNode implements Heuristic.
func (h *WeightedRandom) SelectNode(states [][]graph.NodeState, collapsed graph.Set) (graph.NodeID, bool) {
	minEntropy := math.MaxInt
	var ties []graph.NodeID
	for i, s := range states {
		id := graph.NodeID(i)
		if len(s) == 0 || collapsed.Has(id) {
			continue
		}
		switch {
		case len(s) < minEntropy:
			minEntropy = len(s)
			ties = append(ties[:0], id)
		case len(s) == minEntropy:
			ties = append(ties, id)
		}
	}
	if len(ties) == 0 {
		return 0, false
	}
	return ties[h.rng.IntN(len(ties))], true
}

// SelectState implements Heuristic. Weights that are negative, NaN or
// infinite, or that sum to zero, fall back to a uniform choice.
func (h *WeightedRandom) SelectState(_ graph.NodeID, valid []graph.NodeState) (graph.NodeState, bool) {
	if len(valid) == 0 {
		return graph.NodeState{}, false
	}
	if i, ok := h.weightedIndex(valid); ok {
		return valid[i], true
	}
	return valid[h.rng.IntN(len(valid))], true
}

func (h *WeightedRandom) weightedIndex(valid []graph.NodeState) (int, bool) {
	weights := make([]float64, len(valid))
	total := 0.0
	for i := range valid {
		w := 1.0
		if valid[i].Block != nil {
			w = float64(valid[i].Block.Ranking())
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, false
		}
		weights[i] = w
		total += w
	}
	if total <= 0 || math.IsInf(total, 0) {
		return 0, false
	}

	r := h.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i, true
		}
		r -= w
	}
	// Rounding can leave r just above the last bucket.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, true
		}
	}
	return 0, false
}
