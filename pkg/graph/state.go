package graph

import (
	"fmt"

	"github.com/chazu/bild/pkg/block"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Binding names the peer a connection point is attached to.
type Binding struct {
	Node NodeID `json:"node"`
	Conn string `json:"conn"`
}

// ConnectionPoint is an attachment point derived from one of a block's faces.
type ConnectionPoint struct {
	ID        string                  `json:"id"`
	Interface block.OrientedInterface `json:"interface"`
	Offset    v3.Vec                  `json:"offset"` // local, relative to the block origin
	Peer      *Binding                `json:"peer,omitempty"`
}

// IsCompatibleWith reports whether this point can join an interface.
func (c *ConnectionPoint) IsCompatibleWith(other block.OrientedInterface) bool {
	return block.Compatible(c.Interface, other)
}

// WorldPosition places the point in world space for a block at base
// rotated by o.
func (c *ConnectionPoint) WorldPosition(base v3.Vec, o block.Orientation) v3.Vec {
	r := o.Rotate(c.Offset)
	return v3.Vec{X: base.X + r.X, Y: base.Y + r.Y, Z: base.Z + r.Z}
}

// NodeState is the assignment held by one graph node: a block, its
// orientation, the cell it sits in and the connection points it exposes.
type NodeState struct {
	Block       block.Block       `json:"-"`
	Orientation block.Orientation `json:"orientation"`
	Position    Position          `json:"position"`
	Connections []ConnectionPoint `json:"connections,omitempty"`
	Connected   bool              `json:"connected"`
}

// NewState creates a state at the origin without connection points.
func NewState(b block.Block, o block.Orientation) NodeState {
	return NodeState{Block: b, Orientation: o}
}

// WithPosition creates a state at pos and derives one connection point per
// face. Face 0 is treated as the top and sits at (0, size.Y, 0); every other
// face sits at the block origin.
func WithPosition(b block.Block, o block.Orientation, pos Position) NodeState {
	s := NewState(b, o)
	s.Position = pos

	faces := s.block().Faces()
	if len(faces) == 0 {
		return s
	}
	size := s.block().Size()
	s.Connections = make([]ConnectionPoint, 0, len(faces))
	for i, f := range faces {
		var offset v3.Vec
		if i == 0 {
			offset = v3.Vec{Y: float64(size.Y)}
		}
		s.Connections = append(s.Connections, ConnectionPoint{
			ID:        fmt.Sprintf("conn_%d", i),
			Interface: f.Interface.Rotated(o),
			Offset:    offset,
		})
	}
	return s
}

func (s *NodeState) block() block.Block {
	if s.Block == nil {
		return block.Default()
	}
	return s.Block
}

// Symbol returns the display symbol of the assigned block.
func (s *NodeState) Symbol() string {
	return s.block().Symbol()
}

// Clone returns a deep copy; bindings in the copy are independent.
func (s *NodeState) Clone() NodeState {
	c := *s
	if s.Connections != nil {
		c.Connections = make([]ConnectionPoint, len(s.Connections))
		copy(c.Connections, s.Connections)
		for i := range c.Connections {
			if p := c.Connections[i].Peer; p != nil {
				peer := *p
				c.Connections[i].Peer = &peer
			}
		}
	}
	return c
}

// Connection returns the point with the given id, or nil.
func (s *NodeState) Connection(id string) *ConnectionPoint {
	for i := range s.Connections {
		if s.Connections[i].ID == id {
			return &s.Connections[i]
		}
	}
	return nil
}

// CanConnectTo returns the first pair of connection points (ours, theirs)
// whose interfaces are compatible. It does not rank candidates.
func (s *NodeState) CanConnectTo(other *NodeState) (selfID, otherID string, ok bool) {
	for i := range s.Connections {
		for j := range other.Connections {
			if s.Connections[i].IsCompatibleWith(other.Connections[j].Interface) {
				return s.Connections[i].ID, other.Connections[j].ID, true
			}
		}
	}
	return "", "", false
}

// Bind attaches connection id to peer, returning the previous peer if any.
func (s *NodeState) Bind(id string, peer Binding) (prev *Binding, ok bool) {
	c := s.Connection(id)
	if c == nil {
		return nil, false
	}
	prev = c.Peer
	c.Peer = &peer
	s.Connected = true
	return prev, true
}

// Unbind detaches connection id and returns the peer it was bound to.
func (s *NodeState) Unbind(id string) (Binding, bool) {
	c := s.Connection(id)
	if c == nil || c.Peer == nil {
		return Binding{}, false
	}
	peer := *c.Peer
	c.Peer = nil
	s.refreshConnected()
	return peer, true
}

func (s *NodeState) refreshConnected() {
	s.Connected = false
	for i := range s.Connections {
		if s.Connections[i].Peer != nil {
			s.Connected = true
			return
		}
	}
}

// WorldPosition is the grid position in world units.
func (s *NodeState) WorldPosition() v3.Vec {
	return s.Position.Vec()
}

// Extent is the block size in world units.
func (s *NodeState) Extent() v3.Vec {
	return s.block().Size().Vec()
}

// Box is the axis-aligned bounding box the block occupies.
func (s *NodeState) Box() sdf.Box3 {
	lo := s.WorldPosition()
	ext := s.Extent()
	return sdf.Box3{
		Min: lo,
		Max: v3.Vec{X: lo.X + ext.X, Y: lo.Y + ext.Y, Z: lo.Z + ext.Z},
	}
}

// CollidesWith reports whether the two blocks' interiors overlap. Blocks
// that only share a face do not collide.
func (s *NodeState) CollidesWith(other *NodeState) bool {
	a, b := s.Box(), other.Box()
	return !(a.Max.X <= b.Min.X || b.Max.X <= a.Min.X ||
		a.Max.Y <= b.Min.Y || b.Max.Y <= a.Min.Y ||
		a.Max.Z <= b.Min.Z || b.Max.Z <= a.Min.Z)
}

// Touches reports whether the two blocks share part of a face without
// overlapping.
func (s *NodeState) Touches(other *NodeState) bool {
	a, b := s.Box(), other.Box()
	overlap, contact := 0, 0
	axis := func(aMin, aMax, bMin, bMax float64) {
		switch {
		case aMin < bMax && bMin < aMax:
			overlap++
		case aMax == bMin || bMax == aMin:
			contact++
		}
	}
	axis(a.Min.X, a.Max.X, b.Min.X, b.Max.X)
	axis(a.Min.Y, a.Max.Y, b.Min.Y, b.Max.Y)
	axis(a.Min.Z, a.Max.Z, b.Min.Z, b.Max.Z)
	return overlap == 2 && contact == 1
}
