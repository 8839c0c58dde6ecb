package graph

import "fmt"

// NoNode marks a graph-level finding that is not tied to a single node.
const NoNode NodeID = -1

// ValidationSeverity indicates whether a validation finding rejects a
// layout or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // rejects the layout
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (NoNode if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID == NoNode {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %d: %s", e.Severity, e.NodeID, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs all Tier 1 structural checks on a layout graph and returns
// the findings. An empty slice means the graph is structurally sound. This
// function is read-only and never mutates the graph.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validatePositions(g)...)
	errs = append(errs, validateEdges(g)...)
	errs = append(errs, validateBindings(g)...)
	return errs
}

// ValidateAll runs all validation tiers (structural, geometric, advisory)
// and returns a ValidationResult with separated errors and warnings.
func ValidateAll(g *Graph) ValidationResult {
	// Tier 1: structural validation.
	tier1 := Validate(g)

	// Tier 2: geometric validation.
	tier2 := validateGeometry(g)

	// Tier 3: advisory warnings.
	tier3 := validateAdvisory(g)

	var result ValidationResult
	for _, e := range append(tier1, tier2...) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				NodeID:  e.NodeID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	result.Warnings = append(result.Warnings, tier3...)

	return result
}

// validatePositions checks that every node lies inside the grid bounds (when
// the graph was built by Grid) and that no two nodes share a cell.
func validatePositions(g *Graph) []ValidationError {
	var errs []ValidationError

	w, h, d := g.Dims()
	bounded := w > 0 && h > 0 && d > 0
	seen := make(map[Position]NodeID)

	for i := 0; i < g.NodeCount(); i++ {
		id := NodeID(i)
		p := g.Node(id).Position

		if bounded && (p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h || p.Z < 0 || p.Z >= d) {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("position %s is outside the %dx%dx%d grid", p, w, h, d),
				Severity: SeverityError,
			})
		}

		if first, dup := seen[p]; dup {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("position %s is already held by node %d", p, first),
				Severity: SeverityError,
			})
			continue
		}
		seen[p] = id
	}

	return errs
}

// validateEdges checks that every edge of a grid graph joins a cell to its
// +x, +y or +z neighbor.
func validateEdges(g *Graph) []ValidationError {
	var errs []ValidationError

	if w, _, _ := g.Dims(); w == 0 {
		return nil
	}

	for i := 0; i < g.NodeCount(); i++ {
		from := NodeID(i)
		a := g.Node(from).Position
		for _, to := range g.Neighbors(from) {
			b := g.Node(to).Position
			dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
			if dx < 0 || dy < 0 || dz < 0 || dx+dy+dz != 1 {
				errs = append(errs, ValidationError{
					NodeID:   from,
					Message:  fmt.Sprintf("edge to node %d joins %s and %s, which are not +x/+y/+z neighbors", to, a, b),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validateBindings checks that every connection binding names an existing
// node and connection point, and that the peer binds back to it.
func validateBindings(g *Graph) []ValidationError {
	var errs []ValidationError

	for i := 0; i < g.NodeCount(); i++ {
		id := NodeID(i)
		s := g.Node(id)

		for _, c := range s.Connections {
			if c.Peer == nil {
				continue
			}
			if c.Peer.Node == id {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("connection %s is bound to its own node", c.ID),
					Severity: SeverityError,
				})
				continue
			}

			peer := g.Node(c.Peer.Node)
			if peer == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("connection %s references node %d, which does not exist", c.ID, c.Peer.Node),
					Severity: SeverityError,
				})
				continue
			}

			pc := peer.Connection(c.Peer.Conn)
			if pc == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("connection %s references %s on node %d, which does not exist", c.ID, c.Peer.Conn, c.Peer.Node),
					Severity: SeverityError,
				})
				continue
			}

			if pc.Peer == nil || pc.Peer.Node != id || pc.Peer.Conn != c.ID {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("connection %s -> node %d %s is not mirrored", c.ID, c.Peer.Node, c.Peer.Conn),
					Severity: SeverityError,
				})
			}
		}

		if s.Connected && !hasBinding(s) {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "node is flagged connected but holds no binding",
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

func hasBinding(s *NodeState) bool {
	for _, c := range s.Connections {
		if c.Peer != nil {
			return true
		}
	}
	return false
}
