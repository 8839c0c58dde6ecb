package graph

import (
	"fmt"
	"sort"

	"github.com/chazu/bild/pkg/block"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NodeID is a handle into a Graph's node arena.
type NodeID int

// Position is a cell coordinate in grid units. Y points up; Y == 0 is the floor.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec returns the position as a world-space vector.
func (p Position) Vec() v3.Vec {
	return v3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Graph is a directed graph whose nodes hold NodeStates. Edges carry no
// payload; they only record adjacency.
type Graph struct {
	nodes []NodeState
	out   [][]NodeID
	in    [][]NodeID
	edges int

	width, height, depth int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// Grid builds a width x height x depth grid graph. Every cell gets a
// placeholder node holding block.Default() at orientation O0, and a directed
// edge runs from each cell to its +x, +y and +z neighbor when that neighbor
// exists. Nodes are allocated x-major: id = (x*height + y)*depth + z.
func Grid(width, height, depth int) *Graph {
	g := New()
	if width <= 0 || height <= 0 || depth <= 0 {
		return g
	}
	g.width, g.height, g.depth = width, height, depth

	id := func(x, y, z int) NodeID { return NodeID((x*height+y)*depth + z) }

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				g.AddNode(WithPosition(block.Default(), block.O0, Position{X: x, Y: y, Z: z}))
			}
		}
	}

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				cur := id(x, y, z)
				if x < width-1 {
					g.mustEdge(cur, id(x+1, y, z))
				}
				if y < height-1 {
					g.mustEdge(cur, id(x, y+1, z))
				}
				if z < depth-1 {
					g.mustEdge(cur, id(x, y, z+1))
				}
			}
		}
	}
	return g
}

// GridEdgeCount is the number of edges Grid(w, h, d) produces.
func GridEdgeCount(w, h, d int) int {
	if w <= 0 || h <= 0 || d <= 0 {
		return 0
	}
	return (w-1)*h*d + w*(h-1)*d + w*h*(d-1)
}

// AddNode appends a node and returns its handle.
func (g *Graph) AddNode(s NodeState) NodeID {
	g.nodes = append(g.nodes, s)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return NodeID(len(g.nodes) - 1)
}

// AddEdge adds a directed edge. Both endpoints must exist.
func (g *Graph) AddEdge(from, to NodeID) error {
	if !g.Contains(from) || !g.Contains(to) {
		return fmt.Errorf("graph: edge %d -> %d references a missing node", from, to)
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.edges++
	return nil
}

func (g *Graph) mustEdge(from, to NodeID) {
	if err := g.AddEdge(from, to); err != nil {
		panic(err)
	}
}

// Contains reports whether id is a valid handle.
func (g *Graph) Contains(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns the state stored at id, or nil. The pointer aliases the
// arena slot and stays valid until the next AddNode.
func (g *Graph) Node(id NodeID) *NodeState {
	if !g.Contains(id) {
		return nil
	}
	return &g.nodes[id]
}

// Replace overwrites the state stored at id.
func (g *Graph) Replace(id NodeID, s NodeState) bool {
	if !g.Contains(id) {
		return false
	}
	g.nodes[id] = s
	return true
}

// Neighbors returns the targets of id's outgoing edges in insertion order.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	if !g.Contains(id) {
		return nil
	}
	return g.out[id]
}

// Predecessors returns the sources of id's incoming edges.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if !g.Contains(id) {
		return nil
	}
	return g.in[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Dims returns the dimensions passed to Grid, or zeros for hand-built graphs.
func (g *Graph) Dims() (width, height, depth int) {
	return g.width, g.height, g.depth
}

// FindByPosition returns the first node whose stored position equals p.
// It is a linear scan.
func (g *Graph) FindByPosition(p Position) (NodeID, bool) {
	for i := range g.nodes {
		if g.nodes[i].Position == p {
			return NodeID(i), true
		}
	}
	return 0, false
}

// Set is a set of node handles.
type Set map[NodeID]struct{}

// NewSet creates an empty set.
func NewSet() Set {
	return make(Set)
}

// Has reports membership.
func (s Set) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s Set) Add(id NodeID) {
	s[id] = struct{}{}
}

// Remove deletes id.
func (s Set) Remove(id NodeID) {
	delete(s, id)
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []NodeID {
	ids := make([]NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
