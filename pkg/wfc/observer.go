package wfc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chazu/bild/pkg/graph"
)

// Observer is notified synchronously as the solver commits nodes.
// Implementations must not call back into the solver.
type Observer interface {
	OnCollapse(node graph.NodeID, state *graph.NodeState)
	OnPropagate(affected []graph.NodeID)
}

// BacktrackObserver is an optional extension for observers that want to
// hear about undone commits.
type BacktrackObserver interface {
	OnBacktrack(node graph.NodeID)
}

// ObserverFuncs adapts plain functions to Observer and BacktrackObserver.
// Nil fields are skipped.
type ObserverFuncs struct {
	Collapse  func(node graph.NodeID, state *graph.NodeState)
	Propagate func(affected []graph.NodeID)
	Backtrack func(node graph.NodeID)
}

func (f ObserverFuncs) OnCollapse(node graph.NodeID, state *graph.NodeState) {
	if f.Collapse != nil {
		f.Collapse(node, state)
	}
}

func (f ObserverFuncs) OnPropagate(affected []graph.NodeID) {
	if f.Propagate != nil {
		f.Propagate(affected)
	}
}

func (f ObserverFuncs) OnBacktrack(node graph.NodeID) {
	if f.Backtrack != nil {
		f.Backtrack(node)
	}
}

// LogObserver writes every event to a structured logger at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) OnCollapse(node graph.NodeID, state *graph.NodeState) {
	o.logger().LogAttrs(context.Background(), slog.LevelDebug, "collapse",
		slog.Int("node", int(node)),
		slog.String("symbol", state.Symbol()),
		slog.String("orientation", state.Orientation.String()),
		slog.String("position", state.Position.String()),
	)
}

func (o LogObserver) OnPropagate(affected []graph.NodeID) {
	if len(affected) == 0 {
		return
	}
	o.logger().Debug("propagate", slog.Any("affected", affected))
}

func (o LogObserver) OnBacktrack(node graph.NodeID) {
	o.logger().Debug("backtrack", slog.Int("node", int(node)))
}

// Event is one recorded observer call.
type Event struct {
	Kind     string         `json:"kind"` // collapse, propagate or backtrack
	Node     graph.NodeID   `json:"node"`
	Symbol   string         `json:"symbol,omitempty"`
	Position graph.Position `json:"position"`
	Affected []graph.NodeID `json:"affected,omitempty"`
}

// Recorder keeps every event in order. It is safe for concurrent use so
// tests and servers can read it while a solve runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) OnCollapse(node graph.NodeID, state *graph.NodeState) {
	r.add(Event{Kind: "collapse", Node: node, Symbol: state.Symbol(), Position: state.Position})
}

func (r *Recorder) OnPropagate(affected []graph.NodeID) {
	r.add(Event{Kind: "propagate", Affected: append([]graph.NodeID(nil), affected...)})
}

func (r *Recorder) OnBacktrack(node graph.NodeID) {
	r.add(Event{Kind: "backtrack", Node: node})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
