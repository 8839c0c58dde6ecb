package graph

import (
	"strings"
	"testing"

	"github.com/chazu/bild/pkg/block"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildBoundPair creates a two-node layout where the lower block's stud is
// bound to the upper block's tube, mirrored on both sides.
func buildBoundPair() *Graph {
	g := New()
	brick := studBrick("S", block.Size{X: 1, Y: 1, Z: 1})

	lo := g.AddNode(WithPosition(brick, block.O0, Position{}))
	hi := g.AddNode(WithPosition(brick, block.O0, Position{Y: 1}))
	if err := g.AddEdge(lo, hi); err != nil {
		panic(err)
	}

	g.Node(lo).Bind("conn_0", Binding{Node: hi, Conn: "conn_1"})
	g.Node(hi).Bind("conn_1", Binding{Node: lo, Conn: "conn_0"})
	return g
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if warnings contains a message containing substr.
func hasWarning(warnings []ValidationWarning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

// errorCount returns the number of error-severity findings.
func errorCount(errs []ValidationError) int {
	n := 0
	for _, e := range errs {
		if e.Severity == SeverityError {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Tier 1
// ---------------------------------------------------------------------------

func TestValidate_FreshGrid(t *testing.T) {
	for _, dims := range [][3]int{{1, 1, 1}, {2, 2, 2}, {3, 1, 4}} {
		g := Grid(dims[0], dims[1], dims[2])
		if errs := Validate(g); len(errs) != 0 {
			t.Errorf("Grid%v should validate, got %v", dims, errs)
		}
	}
}

func TestValidate_BoundPair(t *testing.T) {
	if errs := Validate(buildBoundPair()); len(errs) != 0 {
		t.Errorf("mirrored bindings should validate, got %v", errs)
	}
}

func TestValidate_DuplicatePosition(t *testing.T) {
	g := New()
	g.AddNode(WithPosition(block.Default(), block.O0, Position{X: 1}))
	g.AddNode(WithPosition(block.Default(), block.O0, Position{X: 1}))

	errs := Validate(g)
	if !hasError(errs, "already held by node 0") {
		t.Errorf("expected duplicate position error, got %v", errs)
	}
}

func TestValidate_OutOfBounds(t *testing.T) {
	g := Grid(2, 1, 1)
	g.Replace(1, WithPosition(block.Default(), block.O0, Position{X: 5}))

	errs := Validate(g)
	if !hasError(errs, "outside the 2x1x1 grid") {
		t.Errorf("expected bounds error, got %v", errs)
	}
	if !hasError(errs, "not +x/+y/+z neighbors") {
		t.Errorf("expected edge error, got %v", errs)
	}
}

func TestValidate_UnmirroredBinding(t *testing.T) {
	g := buildBoundPair()
	g.Node(1).Unbind("conn_1")

	errs := Validate(g)
	if !hasError(errs, "is not mirrored") {
		t.Errorf("expected mirror error, got %v", errs)
	}
	if errs[0].NodeID != 0 {
		t.Errorf("error should name node 0, got %d", errs[0].NodeID)
	}
}

func TestValidate_DanglingBinding(t *testing.T) {
	tests := []struct {
		name    string
		peer    Binding
		wantMsg string
	}{
		{"missing node", Binding{Node: 9, Conn: "conn_0"}, "node 9, which does not exist"},
		{"missing conn", Binding{Node: 1, Conn: "conn_7"}, "conn_7 on node 1, which does not exist"},
		{"self", Binding{Node: 0, Conn: "conn_1"}, "bound to its own node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildBoundPair()
			g.Node(0).Bind("conn_0", tt.peer)
			errs := Validate(g)
			if !hasError(errs, tt.wantMsg) {
				t.Errorf("expected %q, got %v", tt.wantMsg, errs)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Tiers 2 and 3
// ---------------------------------------------------------------------------

func TestValidateAll_Overlap(t *testing.T) {
	g := New()
	g.AddNode(WithPosition(block.NewBrick("W", block.Size{X: 2, Y: 1, Z: 1}), block.O0, Position{}))
	g.AddNode(WithPosition(block.NewBrick("U", block.Size{X: 1, Y: 1, Z: 1}), block.O0, Position{X: 1}))

	result := ValidateAll(g)
	if result.OK() {
		t.Fatal("overlapping blocks should not validate")
	}
	if !hasError(result.Errors, `overlaps block "W"`) {
		t.Errorf("expected overlap error, got %v", result.Errors)
	}
	if errorCount(result.Errors) != 1 {
		t.Errorf("each overlapping pair should be reported once, got %d", errorCount(result.Errors))
	}
}

func TestValidateAll_TouchingBlocksPass(t *testing.T) {
	g := Grid(3, 3, 3)
	result := ValidateAll(g)
	if !result.OK() {
		t.Errorf("face-sharing grid cells should validate, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("faceless placeholders should not warn, got %v", result.Warnings)
	}
}

func TestValidateAll_ZeroSize(t *testing.T) {
	g := New()
	g.AddNode(WithPosition(block.NewBrick("flat", block.Size{X: 1, Y: 0, Z: 1}), block.O0, Position{}))

	result := ValidateAll(g)
	if !hasError(result.Errors, "every dimension must be positive") {
		t.Errorf("expected zero-size error, got %v", result.Errors)
	}
}

func TestValidateAll_UnboundWarning(t *testing.T) {
	g := buildBoundPair()
	g.AddNode(WithPosition(studBrick("S", block.Size{}), block.O0, Position{X: 1}))

	result := ValidateAll(g)
	if !result.OK() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].NodeID != 2 {
		t.Fatalf("expected one warning on node 2, got %v", result.Warnings)
	}
	if !hasWarning(result.Warnings, "none are bound") {
		t.Errorf("unexpected warning text: %v", result.Warnings)
	}
}

func TestValidateAll_SingleNodeNoWarning(t *testing.T) {
	g := New()
	g.AddNode(WithPosition(studBrick("S", block.Size{}), block.O0, Position{}))
	if result := ValidateAll(g); len(result.Warnings) != 0 {
		t.Errorf("a lone block has nothing to bind to, got %v", result.Warnings)
	}
}

func TestValidateAll_ConnectedFlagWithoutBinding(t *testing.T) {
	g := New()
	g.AddNode(WithPosition(block.Default(), block.O0, Position{}))
	g.Node(0).Connected = true

	result := ValidateAll(g)
	if !result.OK() {
		t.Errorf("stale flag is advisory, got errors %v", result.Errors)
	}
	if !hasWarning(result.Warnings, "flagged connected") {
		t.Errorf("expected stale flag warning, got %v", result.Warnings)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{NodeID: 3, Message: "bad", Severity: SeverityError}
	if got := e.Error(); got != "[error] node 3: bad" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{NodeID: NoNode, Message: "bad", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] bad" {
		t.Errorf("Error() = %q", got)
	}
}
