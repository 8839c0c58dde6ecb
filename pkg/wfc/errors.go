package wfc

import (
	"fmt"

	"github.com/chazu/bild/pkg/graph"
)

// Kind classifies a solver failure.
type Kind int

const (
	KindNoValidStates Kind = iota + 1
	KindPropagationFailed
	KindIncompleteCollapse
	KindInvalidState
	KindNoValidStatesAfterInvariants
	KindHeuristicFailure
	KindMultipleStatesRemain
	KindNoSolution
	KindNodeNotFound
	KindNodeNotFoundAtPosition
)

var kindNames = map[Kind]string{
	KindNoValidStates:                "NoValidStates",
	KindPropagationFailed:            "PropagationFailed",
	KindIncompleteCollapse:           "IncompleteCollapse",
	KindInvalidState:                 "InvalidState",
	KindNoValidStatesAfterInvariants: "NoValidStatesAfterInvariants",
	KindHeuristicFailure:             "HeuristicFailure",
	KindMultipleStatesRemain:         "MultipleStatesRemain",
	KindNoSolution:                   "NoSolution",
	KindNodeNotFound:                 "NodeNotFound",
	KindNodeNotFoundAtPosition:       "NodeNotFoundAtPosition",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the typed failure returned by the solver. Only the fields that
// matter for Kind are populated.
type Error struct {
	Kind   Kind
	Node   graph.NodeID
	Pos    graph.Position
	Count  int    // KindMultipleStatesRemain
	Detail string // KindPropagationFailed, KindInvalidState
	Err    error  // underlying cause, if any
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNoValidStates                = &Error{Kind: KindNoValidStates}
	ErrPropagationFailed            = &Error{Kind: KindPropagationFailed}
	ErrIncompleteCollapse           = &Error{Kind: KindIncompleteCollapse}
	ErrInvalidState                 = &Error{Kind: KindInvalidState}
	ErrNoValidStatesAfterInvariants = &Error{Kind: KindNoValidStatesAfterInvariants}
	ErrHeuristicFailure             = &Error{Kind: KindHeuristicFailure}
	ErrMultipleStatesRemain         = &Error{Kind: KindMultipleStatesRemain}
	ErrNoSolution                   = &Error{Kind: KindNoSolution}
	ErrNodeNotFound                 = &Error{Kind: KindNodeNotFound}
	ErrNodeNotFoundAtPosition       = &Error{Kind: KindNodeNotFoundAtPosition}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNoValidStates:
		msg = fmt.Sprintf("no valid states available for node %d", e.Node)
	case KindPropagationFailed:
		msg = fmt.Sprintf("propagation failed: %s", e.Detail)
	case KindIncompleteCollapse:
		msg = fmt.Sprintf("incomplete collapse for node %d", e.Node)
	case KindInvalidState:
		msg = fmt.Sprintf("invalid state: %s", e.Detail)
	case KindNoValidStatesAfterInvariants:
		msg = fmt.Sprintf("no valid states after applying invariants for node %d", e.Node)
	case KindHeuristicFailure:
		msg = fmt.Sprintf("heuristic failed to select state for node %d", e.Node)
	case KindMultipleStatesRemain:
		msg = fmt.Sprintf("multiple states remain for uncollapsed node %d: expected 1, found %d", e.Node, e.Count)
	case KindNoSolution:
		msg = "no solution found"
	case KindNodeNotFound:
		msg = fmt.Sprintf("node %d not found in graph", e.Node)
	case KindNodeNotFoundAtPosition:
		msg = fmt.Sprintf("node not found at position %s", e.Pos)
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return "wfc: " + msg + ": " + e.Err.Error()
	}
	return "wfc: " + msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func nodeError(k Kind, node graph.NodeID) *Error {
	return &Error{Kind: k, Node: node}
}
