package wfc

import (
	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
)

// Rule is a pairwise predicate over two node states.
type Rule struct {
	Check       func(a, b *graph.NodeState) bool
	Description string
}

type pairKey struct {
	a, b graph.NodeID
}

// CompatibilityTable ANDs a list of rules and memoizes the verdict per
// ordered node pair. The cache assumes a pair's states do not change while
// both nodes stay collapsed; call Forget when one of them is undone.
type CompatibilityTable struct {
	rules []Rule
	cache map[pairKey]bool
}

// NewCompatibilityTable returns a table with the given rules. With no rules
// every pair is compatible.
func NewCompatibilityTable(rules ...Rule) *CompatibilityTable {
	t := &CompatibilityTable{cache: make(map[pairKey]bool)}
	for _, r := range rules {
		t.AddRule(r)
	}
	return t
}

// AddRule appends a rule and clears the cache.
func (t *CompatibilityTable) AddRule(r Rule) {
	t.rules = append(t.rules, r)
	clear(t.cache)
}

// Rules returns the registered rules in order.
func (t *CompatibilityTable) Rules() []Rule {
	return t.rules
}

// IsCompatible returns the cached verdict for (n1, n2) or evaluates every
// rule against (s1, s2) and caches the result. The key is ordered: (n2, n1)
// is a separate entry.
func (t *CompatibilityTable) IsCompatible(n1, n2 graph.NodeID, s1, s2 *graph.NodeState) bool {
	key := pairKey{n1, n2}
	if v, ok := t.cache[key]; ok {
		return v
	}
	v := true
	for _, r := range t.rules {
		if !r.Check(s1, s2) {
			v = false
			break
		}
	}
	t.cache[key] = v
	return v
}

// Forget drops every cached entry that involves n.
func (t *CompatibilityTable) Forget(n graph.NodeID) {
	for k := range t.cache {
		if k.a == n || k.b == n {
			delete(t.cache, k)
		}
	}
}

// CacheLen returns the number of memoized pairs.
func (t *CompatibilityTable) CacheLen() int {
	return len(t.cache)
}

// LegoConnectivity requires the first state's block to expose a stud, the
// second's a tube, and the two orientations to cancel out.
func LegoConnectivity() Rule {
	return Rule{
		Description: "lego block connectivity",
		Check: func(a, b *graph.NodeState) bool {
			return hasInterface(a, block.Stud) && hasInterface(b, block.Tube) &&
				a.Orientation.Compose(b.Orientation) == block.O0
		},
	}
}

// InterfaceContact requires the two blocks to share part of a face.
func InterfaceContact() Rule {
	return Rule{
		Description: "blocks must be in face contact",
		Check: func(a, b *graph.NodeState) bool {
			return a.Touches(b)
		},
	}
}

// RuleByName resolves the rule names accepted by scene files.
func RuleByName(name string) (Rule, bool) {
	switch name {
	case "lego":
		return LegoConnectivity(), true
	case "contact":
		return InterfaceContact(), true
	}
	return Rule{}, false
}

func hasInterface(s *graph.NodeState, iface block.Interface) bool {
	if s.Block == nil {
		return false
	}
	for _, f := range s.Block.Faces() {
		if f.Interface.Interface == iface {
			return true
		}
	}
	return false
}
