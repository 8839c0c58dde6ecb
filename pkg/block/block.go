// Package block defines the placeable blocks the layout solver assigns to
// grid cells: their footprint, their connection faces, and the rule table
// that decides which faces may join.
package block

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Size is a block footprint in grid units.
type Size struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
	Z uint32 `json:"z"`
}

// Vec returns the size as a world-space extent.
func (s Size) Vec() v3.Vec {
	return v3.Vec{X: float64(s.X), Y: float64(s.Y), Z: float64(s.Z)}
}

// IsZero reports whether any dimension is zero.
func (s Size) IsZero() bool {
	return s.X == 0 || s.Y == 0 || s.Z == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)
}

// Face carries one oriented attachment interface.
type Face struct {
	Interface OrientedInterface `json:"interface"`
}

// NewFace returns a face exposing iface at orientation o.
func NewFace(iface Interface, o Orientation) Face {
	return Face{Interface: OrientedInterface{Interface: iface, Orientation: o}}
}

// CanConnectTo reports whether the two faces form a recognized pair.
func (f Face) CanConnectTo(other Face) bool {
	return Compatible(f.Interface, other.Interface)
}

// Block is the capability set the solver needs from anything it places.
// Implementations must be safe to copy by value and must not mutate the
// slice returned by Faces.
type Block interface {
	// Size is the footprint in grid units.
	Size() Size
	// Faces lists the connection faces in a stable order. Face 0 is the top.
	Faces() []Face
	// Ranking weights the block during weighted random selection.
	Ranking() float32
	// Symbol is a short display name, also used as the palette identity.
	Symbol() string
}

// Brick is the stock Block implementation.
type Brick struct {
	Name     string  `json:"name"`
	Dims     Size    `json:"size"`
	FaceList []Face  `json:"faces,omitempty"`
	Rank     float32 `json:"ranking,omitempty"`
}

// Compile-time interface check.
var _ Block = Brick{}

// NewBrick creates a brick. A zero size is treated as 1x1x1.
func NewBrick(name string, size Size, faces ...Face) Brick {
	return Brick{Name: name, Dims: size, FaceList: faces}
}

// Default returns the placeholder block written into every cell before it
// is collapsed: a 1x1x1 brick with no faces.
func Default() Block {
	return Brick{}
}

// Size implements Block.
func (b Brick) Size() Size {
	if b.Dims == (Size{}) {
		return Size{X: 1, Y: 1, Z: 1}
	}
	return b.Dims
}

// Faces implements Block.
func (b Brick) Faces() []Face {
	return b.FaceList
}

// Ranking implements Block. Unset rankings weigh 1.
func (b Brick) Ranking() float32 {
	if b.Rank == 0 {
		return 1.0
	}
	return b.Rank
}

// Symbol implements Block.
func (b Brick) Symbol() string {
	if b.Name == "" {
		return "."
	}
	return b.Name
}

// WithRanking returns a copy of b with the given ranking.
func (b Brick) WithRanking(r float32) Brick {
	b.Rank = r
	return b
}
