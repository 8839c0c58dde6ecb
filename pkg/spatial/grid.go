// Package spatial provides a uniform-cell broad phase for axis-aligned boxes.
package spatial

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Cell is an integer cell coordinate.
type Cell struct {
	X, Y, Z int
}

// Grid buckets handles by the cells their boxes overlap. A box
// [pos, pos+size] is registered in every cell from CellOf(pos) to
// CellOf(pos+size) inclusive, so boxes that only share a face end up in a
// common cell. Results are therefore conservative and callers must run an
// exact test on each candidate.
//
// Grid is not safe for concurrent use.
type Grid[H comparable] struct {
	cellSize float64
	cells    map[Cell][]H
	members  map[H][]Cell
}

// New creates a grid with the given cell size. Non-positive sizes fall back
// to 1.
func New[H comparable](cellSize float64) *Grid[H] {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &Grid[H]{
		cellSize: cellSize,
		cells:    make(map[Cell][]H),
		members:  make(map[H][]Cell),
	}
}

// CellSize returns the edge length of a cell.
func (g *Grid[H]) CellSize() float64 {
	return g.cellSize
}

// CellOf floors each axis of p divided by the cell size.
func (g *Grid[H]) CellOf(p v3.Vec) Cell {
	return Cell{
		X: int(math.Floor(p.X / g.cellSize)),
		Y: int(math.Floor(p.Y / g.cellSize)),
		Z: int(math.Floor(p.Z / g.cellSize)),
	}
}

func (g *Grid[H]) span(pos, size v3.Vec, fn func(Cell)) {
	lo := g.CellOf(pos)
	hi := g.CellOf(v3.Vec{X: pos.X + size.X, Y: pos.Y + size.Y, Z: pos.Z + size.Z})
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				fn(Cell{X: x, Y: y, Z: z})
			}
		}
	}
}

// Add registers h under every cell its box overlaps. A handle that is
// already present is moved: only its latest box is kept.
func (g *Grid[H]) Add(h H, pos, size v3.Vec) {
	if _, ok := g.members[h]; ok {
		g.Remove(h)
	}
	var cells []Cell
	g.span(pos, size, func(c Cell) {
		g.cells[c] = append(g.cells[c], h)
		cells = append(cells, c)
	})
	g.members[h] = cells
}

// PotentialCollisions returns every handle registered in a cell that the
// box [pos, pos+size] overlaps, without duplicates, in first-seen order.
func (g *Grid[H]) PotentialCollisions(pos, size v3.Vec) []H {
	seen := make(map[H]struct{})
	var out []H
	g.span(pos, size, func(c Cell) {
		for _, h := range g.cells[c] {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	})
	return out
}

// Remove purges h from every cell and drops cells left empty.
func (g *Grid[H]) Remove(h H) {
	for _, c := range g.members[h] {
		list := g.cells[c]
		kept := list[:0]
		for _, other := range list {
			if other != h {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(g.cells, c)
		} else {
			g.cells[c] = kept
		}
	}
	delete(g.members, h)
}

// Contains reports whether h is registered.
func (g *Grid[H]) Contains(h H) bool {
	_, ok := g.members[h]
	return ok
}

// Len returns the number of registered handles.
func (g *Grid[H]) Len() int {
	return len(g.members)
}

// CellCount returns the number of non-empty cells.
func (g *Grid[H]) CellCount() int {
	return len(g.cells)
}
