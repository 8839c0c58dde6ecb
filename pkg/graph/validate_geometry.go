package graph

import (
	"fmt"

	"github.com/chazu/bild/pkg/spatial"
)

// ---------------------------------------------------------------------------
// Tier 2: Geometric validation
// ---------------------------------------------------------------------------

// validateGeometry runs all Tier 2 geometric checks.
func validateGeometry(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNonZeroDimensions(g)...)
	errs = append(errs, validateOverlaps(g)...)
	return errs
}

// validateNonZeroDimensions checks that every block has positive X, Y, Z.
func validateNonZeroDimensions(g *Graph) []ValidationError {
	var errs []ValidationError

	for i := 0; i < g.NodeCount(); i++ {
		s := g.Node(NodeID(i))
		size := s.block().Size()
		if size.IsZero() {
			errs = append(errs, ValidationError{
				NodeID:   NodeID(i),
				Message:  fmt.Sprintf("block %q has size %s, every dimension must be positive", s.Symbol(), size),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateOverlaps reports every pair of blocks whose interiors intersect.
// Candidates come from a spatial broad phase; each pair is reported once,
// on the higher node id.
func validateOverlaps(g *Graph) []ValidationError {
	var errs []ValidationError
	grid := spatial.New[NodeID](1)

	for i := 0; i < g.NodeCount(); i++ {
		id := NodeID(i)
		s := g.Node(id)
		for _, other := range grid.PotentialCollisions(s.WorldPosition(), s.Extent()) {
			if s.CollidesWith(g.Node(other)) {
				errs = append(errs, ValidationError{
					NodeID: id,
					Message: fmt.Sprintf("block %q at %s overlaps block %q at node %d",
						s.Symbol(), s.Position, g.Node(other).Symbol(), other),
					Severity: SeverityError,
				})
			}
		}
		grid.Add(id, s.WorldPosition(), s.Extent())
	}

	return errs
}

// ---------------------------------------------------------------------------
// Tier 3: Advisory warnings
// ---------------------------------------------------------------------------

// validateAdvisory runs all Tier 3 checks.
func validateAdvisory(g *Graph) []ValidationWarning {
	var warnings []ValidationWarning
	warnings = append(warnings, validateUnbound(g)...)
	return warnings
}

// validateUnbound warns about blocks that expose connection points but are
// not attached to anything. A single-node layout has nothing to bind to.
func validateUnbound(g *Graph) []ValidationWarning {
	var warnings []ValidationWarning
	if g.NodeCount() < 2 {
		return nil
	}

	for i := 0; i < g.NodeCount(); i++ {
		s := g.Node(NodeID(i))
		if len(s.Connections) > 0 && !hasBinding(s) {
			warnings = append(warnings, ValidationWarning{
				NodeID:  NodeID(i),
				Message: fmt.Sprintf("block %q at %s has %d connection points but none are bound", s.Symbol(), s.Position, len(s.Connections)),
			})
		}
	}

	return warnings
}
