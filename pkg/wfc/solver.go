package wfc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/spatial"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Traversal selects the order in which Solve visits nodes.
type Traversal int

const (
	// TraversalDFS walks successor edges depth first from node 0,
	// restarting from the lowest unvisited node.
	TraversalDFS Traversal = iota
	// TraversalEntropy asks the heuristic for the open node with the
	// fewest candidates at every step.
	TraversalEntropy
)

func (t Traversal) String() string {
	switch t {
	case TraversalDFS:
		return "dfs"
	case TraversalEntropy:
		return "entropy"
	default:
		return fmt.Sprintf("Traversal(%d)", int(t))
	}
}

// ParseTraversal accepts "dfs" or "entropy".
func ParseTraversal(s string) (Traversal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dfs", "":
		return TraversalDFS, nil
	case "entropy":
		return TraversalEntropy, nil
	}
	return 0, fmt.Errorf("unknown traversal %q (want dfs or entropy)", s)
}

// ConnectScope selects which collapsed nodes a candidate may connect to.
type ConnectScope int

const (
	// ScopeAny lets a candidate connect to any collapsed node.
	ScopeAny ConnectScope = iota
	// ScopeAdjacent only counts collapsed nodes in face contact.
	ScopeAdjacent
)

func (c ConnectScope) String() string {
	switch c {
	case ScopeAny:
		return "any"
	case ScopeAdjacent:
		return "adjacent"
	default:
		return fmt.Sprintf("ConnectScope(%d)", int(c))
	}
}

// ParseConnectScope accepts "any" or "adjacent".
func ParseConnectScope(s string) (ConnectScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "":
		return ScopeAny, nil
	case "adjacent":
		return ScopeAdjacent, nil
	}
	return 0, fmt.Errorf("unknown connect scope %q (want any or adjacent)", s)
}

// Options configures a Solver.
type Options struct {
	Invariants   []Invariant
	Observers    []Observer
	Rules        []Rule
	CellSize     float64
	Traversal    Traversal
	ConnectScope ConnectScope
	// MaxBacktracks bounds the total number of backtracks in one solve.
	// Zero means four per node.
	MaxBacktracks int
	Logger        *slog.Logger
}

// DefaultOptions returns options with a unit spatial grid, DFS traversal
// and no invariants, observers or rules.
func DefaultOptions() *Options {
	return &Options{
		CellSize:     1,
		Traversal:    TraversalDFS,
		ConnectScope: ScopeAny,
	}
}

// Stats counts what a solver did.
type Stats struct {
	Collapses    int `json:"collapses"`
	Backtracks   int `json:"backtracks"`
	Propagations int `json:"propagations"`
}

// displaced is a binding broken by a greedy rebind, restored on undo.
type displaced struct {
	node graph.NodeID
	conn string
	peer graph.Binding
}

type historyEntry struct {
	node      graph.NodeID
	prior     graph.NodeState
	displaced []displaced
}

// Solver assigns a block to every node of a graph. It owns the graph for
// the duration of a solve and is not safe for concurrent use.
type Solver struct {
	graph      *graph.Graph
	palette    *block.Palette
	heuristic  Heuristic
	invariants []Invariant
	observers  []Observer
	grid       *spatial.Grid[graph.NodeID]
	compat     *CompatibilityTable
	collapsed  graph.Set
	history    []historyEntry
	traversal  Traversal
	scope      ConnectScope
	maxBack    int
	log        *slog.Logger
	stats      Stats
}

var _ View = (*Solver)(nil)

// New creates a solver over g. A nil heuristic means NewWeightedRandom(1);
// nil opts means DefaultOptions().
func New(g *graph.Graph, palette *block.Palette, h Heuristic, opts *Options) *Solver {
	if opts == nil {
		opts = DefaultOptions()
	}
	if h == nil {
		h = NewWeightedRandom(1)
	}
	if palette == nil {
		palette = block.NewPalette()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBack := opts.MaxBacktracks
	if maxBack <= 0 {
		maxBack = 4*g.NodeCount() + 4
	}
	return &Solver{
		graph:      g,
		palette:    palette,
		heuristic:  h,
		invariants: opts.Invariants,
		observers:  opts.Observers,
		grid:       spatial.New[graph.NodeID](opts.CellSize),
		compat:     NewCompatibilityTable(opts.Rules...),
		collapsed:  graph.NewSet(),
		traversal:  opts.Traversal,
		scope:      opts.ConnectScope,
		maxBack:    maxBack,
		log:        logger.With(slog.String("component", "wfc")),
	}
}

// Graph implements View.
func (s *Solver) Graph() *graph.Graph { return s.graph }

// IsCollapsed implements View.
func (s *Solver) IsCollapsed(id graph.NodeID) bool { return s.collapsed.Has(id) }

// Collapsed returns the collapsed nodes in ascending order.
func (s *Solver) Collapsed() []graph.NodeID { return s.collapsed.Sorted() }

// Stats returns the counters accumulated so far.
func (s *Solver) Stats() Stats { return s.stats }

// Compatibility returns the solver's compatibility table.
func (s *Solver) Compatibility() *CompatibilityTable { return s.compat }

// AddObserver registers an observer after construction.
func (s *Solver) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Solve runs SolveContext without a deadline.
func (s *Solver) Solve() error {
	return s.SolveContext(context.Background())
}

// SolveContext assigns every node or returns a typed *Error. The context
// is checked once per traversal step; on cancellation the graph is left
// partially collapsed and the context error is returned wrapped.
func (s *Solver) SolveContext(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "wfc.Solve",
		trace.WithAttributes(
			attribute.Int("wfc.nodes", s.graph.NodeCount()),
			attribute.Int("wfc.palette", s.palette.Len()),
			attribute.String("wfc.traversal", s.traversal.String()),
		),
	)
	defer span.End()

	start := time.Now()
	s.log.Info("solve started",
		slog.Int("nodes", s.graph.NodeCount()),
		slog.Int("palette", s.palette.Len()),
		slog.String("traversal", s.traversal.String()),
	)

	defer func() {
		status := "solved"
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			status = "canceled"
		default:
			status = "failed"
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("wfc.collapses", s.stats.Collapses),
			attribute.Int("wfc.backtracks", s.stats.Backtracks),
		)
		solveDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		s.log.Info("solve finished",
			slog.String("status", status),
			slog.Int("collapses", s.stats.Collapses),
			slog.Int("backtracks", s.stats.Backtracks),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()

	switch s.traversal {
	case TraversalEntropy:
		err = s.solveEntropy(ctx)
	default:
		err = s.solveDFS(ctx)
	}
	if err != nil {
		return err
	}
	return s.checkComplete()
}

// solveDFS walks the graph with an explicit stack. Nodes collapsed before
// the solve (forced start cells) seed the stack so the search grows from
// them.
func (s *Solver) solveDFS(ctx context.Context) error {
	n := s.graph.NodeCount()
	visited := make([]bool, n)

	var stack []graph.NodeID
	seeds := s.collapsed.Sorted()
	for i := len(seeds) - 1; i >= 0; i-- {
		stack = append(stack, seeds[i])
	}
	requeue := func(id graph.NodeID) {
		visited[id] = false
		stack = append(stack, id)
	}

	next := 0
	for {
		if len(stack) == 0 {
			for next < n && visited[next] {
				next++
			}
			if next == n {
				return nil
			}
			stack = append(stack, graph.NodeID(next))
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wfc: solve canceled: %w", err)
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true

		if err := s.visit(node, requeue); err != nil {
			return err
		}
		stack = s.pushSuccessors(stack, node, visited)
	}
}

// pushSuccessors pushes node's unvisited successors. Upward successors go
// first so they are popped last: a layer is finished sideways before the
// search climbs.
func (s *Solver) pushSuccessors(stack []graph.NodeID, node graph.NodeID, visited []bool) []graph.NodeID {
	y := s.graph.Node(node).Position.Y
	var up, side []graph.NodeID
	for _, m := range s.graph.Neighbors(node) {
		if visited[m] {
			continue
		}
		if s.graph.Node(m).Position.Y > y {
			up = append(up, m)
		} else {
			side = append(side, m)
		}
	}
	stack = append(stack, up...)
	return append(stack, side...)
}

// solveEntropy repeatedly collapses the open node with the fewest
// candidates, as chosen by the heuristic. Candidate lists are kept between
// steps and only the nodes a commit can reach are recounted; the lists only
// steer node choice, CollapseNode always recomputes its own.
func (s *Solver) solveEntropy(ctx context.Context) error {
	c := newEntropyCache(s)
	if err := c.refreshAll(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wfc: solve canceled: %w", err)
		}

		first := graph.NodeID(-1)
		for i := 0; i < s.graph.NodeCount(); i++ {
			if !s.collapsed.Has(graph.NodeID(i)) {
				first = graph.NodeID(i)
				break
			}
		}
		if first < 0 {
			return nil
		}

		node, ok := s.heuristic.SelectNode(c.states, s.collapsed)
		if !ok {
			// Every open node is stuck; let the first one fail and backtrack.
			node = first
		}

		backtracks, wasEmpty := s.stats.Backtracks, s.collapsed.Len() == 0
		if err := s.visit(node, func(graph.NodeID) {}); err != nil {
			return err
		}
		if wasEmpty || s.stats.Backtracks != backtracks {
			if err := c.refreshAll(ctx); err != nil {
				return err
			}
			continue
		}
		c.afterCommit(node)
	}
}

// entropyCache holds the candidate list of every open node.
//
// A commit changes an open node's list only through:
//   - an invariant verdict, for the nodes Propagate names;
//   - a collision or a new face contact, for nodes whose candidate boxes
//     can reach the committed box;
//   - under ScopeAny, a block and orientation pair not collapsed before,
//     which can newly satisfy the connectivity filter anywhere.
type entropyCache struct {
	s      *Solver
	states [][]graph.NodeState
	reach  [3]float64 // largest palette extent per axis
	kinds  map[string]struct{}
}

func newEntropyCache(s *Solver) *entropyCache {
	c := &entropyCache{
		s:      s,
		states: make([][]graph.NodeState, s.graph.NodeCount()),
	}
	for _, b := range s.palette.Blocks() {
		ext := b.Size().Vec()
		c.reach[0] = max(c.reach[0], ext.X)
		c.reach[1] = max(c.reach[1], ext.Y)
		c.reach[2] = max(c.reach[2], ext.Z)
	}
	return c
}

func stateKind(st *graph.NodeState) string {
	return st.Symbol() + "@" + st.Orientation.String()
}

// refreshAll recounts every open node, checking ctx between nodes.
func (c *entropyCache) refreshAll(ctx context.Context) error {
	c.kinds = make(map[string]struct{})
	for id := range c.s.collapsed {
		c.kinds[stateKind(c.s.graph.Node(id))] = struct{}{}
	}
	for i := range c.states {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wfc: solve canceled: %w", err)
		}
		c.refresh(graph.NodeID(i))
	}
	return nil
}

func (c *entropyCache) refresh(id graph.NodeID) {
	if c.s.collapsed.Has(id) {
		c.states[id] = nil
		return
	}
	c.states[id] = c.s.candidates(id)
}

// afterCommit recounts the open nodes a commit at node can affect.
func (c *entropyCache) afterCommit(node graph.NodeID) {
	c.states[node] = nil
	st := c.s.graph.Node(node)

	kind := stateKind(st)
	if _, seen := c.kinds[kind]; !seen && c.s.scope == ScopeAny {
		c.kinds[kind] = struct{}{}
		for i := range c.states {
			c.refresh(graph.NodeID(i))
		}
		return
	}
	c.kinds[kind] = struct{}{}

	done := graph.NewSet()
	for _, id := range c.s.propagate(node) {
		done.Add(id)
		c.refresh(id)
	}

	// A candidate box [p, p+e] overlaps or touches [lo, hi] only if
	// lo-e <= p <= hi on every axis.
	box := st.Box()
	lo := [3]float64{box.Min.X - c.reach[0], box.Min.Y - c.reach[1], box.Min.Z - c.reach[2]}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	for i := range c.states {
		id := graph.NodeID(i)
		if done.Has(id) || c.s.collapsed.Has(id) {
			continue
		}
		p := c.s.graph.Node(id).WorldPosition()
		if p.X < lo[0] || p.X > hi[0] || p.Y < lo[1] || p.Y > hi[1] || p.Z < lo[2] || p.Z > hi[2] {
			continue
		}
		c.refresh(id)
	}
}

// visit collapses node, backtracking a single step on failure.
func (s *Solver) visit(node graph.NodeID, requeue func(graph.NodeID)) error {
	_, err := s.CollapseNode(node)
	if err == nil {
		return nil
	}

	var werr *Error
	if !errors.As(err, &werr) {
		return err
	}
	if s.stats.Backtracks >= s.maxBack {
		return &Error{Kind: KindNoSolution, Node: node, Err: fmt.Errorf("backtrack limit %d reached: %w", s.maxBack, err)}
	}

	prior, ok := s.backtrack()
	if !ok {
		return &Error{Kind: KindNoSolution, Node: node, Err: err}
	}
	requeue(prior)

	if _, err := s.CollapseNode(node); err != nil {
		return &Error{Kind: KindNoSolution, Node: node, Err: err}
	}
	return nil
}

func (s *Solver) checkComplete() error {
	for i := 0; i < s.graph.NodeCount(); i++ {
		if !s.collapsed.Has(graph.NodeID(i)) {
			return nodeError(KindIncompleteCollapse, graph.NodeID(i))
		}
	}
	return nil
}

// CollapseNode commits a state for node. A node that is already collapsed
// is returned unchanged.
func (s *Solver) CollapseNode(node graph.NodeID) (graph.NodeState, error) {
	if !s.graph.Contains(node) {
		return graph.NodeState{}, nodeError(KindNodeNotFound, node)
	}
	if s.collapsed.Has(node) {
		return s.graph.Node(node).Clone(), nil
	}

	cands := s.candidates(node)
	if len(cands) == 0 {
		s.log.Debug("no candidates", slog.Int("node", int(node)))
		return graph.NodeState{}, nodeError(KindNoValidStatesAfterInvariants, node)
	}

	state, ok := s.heuristic.SelectState(node, cands)
	if !ok {
		return graph.NodeState{}, nodeError(KindHeuristicFailure, node)
	}

	s.commit(node, state.Clone())
	return s.graph.Node(node).Clone(), nil
}

// candidates instantiates palette x orientations at node's position and
// keeps the admissible ones.
func (s *Solver) candidates(node graph.NodeID) []graph.NodeState {
	pos := s.graph.Node(node).Position
	var out []graph.NodeState
	for _, b := range s.palette.Blocks() {
		for _, o := range block.All() {
			st := graph.WithPosition(b, o, pos)
			if s.admissible(node, &st) {
				out = append(out, st)
			}
		}
	}
	return out
}

func (s *Solver) admissible(node graph.NodeID, st *graph.NodeState) bool {
	for _, inv := range s.invariants {
		if !inv.Check(node, st, s) {
			return false
		}
	}
	if s.wouldCollide(node, st) {
		return false
	}
	if s.collapsed.Len() > 0 && !s.canConnectToExisting(node, st) {
		return false
	}
	return true
}

// wouldCollide runs the broad phase, then the exact box test.
func (s *Solver) wouldCollide(node graph.NodeID, st *graph.NodeState) bool {
	for _, h := range s.grid.PotentialCollisions(st.WorldPosition(), st.Extent()) {
		if h == node {
			continue
		}
		if st.CollidesWith(s.graph.Node(h)) {
			return true
		}
	}
	return false
}

// partner reports whether the collapsed node other is in scope for st.
func (s *Solver) partner(st, other *graph.NodeState) bool {
	return s.scope != ScopeAdjacent || st.Touches(other)
}

func (s *Solver) canConnectToExisting(node graph.NodeID, st *graph.NodeState) bool {
	for id := range s.collapsed {
		if id == node {
			continue
		}
		other := s.graph.Node(id)
		if !s.partner(st, other) {
			continue
		}
		if _, _, ok := st.CanConnectTo(other); ok {
			return true
		}
	}
	return false
}

func (s *Solver) commit(node graph.NodeID, state graph.NodeState) {
	entry := historyEntry{node: node, prior: s.graph.Node(node).Clone()}

	s.graph.Replace(node, state)
	st := s.graph.Node(node)
	s.grid.Add(node, st.WorldPosition(), st.Extent())
	entry.displaced = s.establishConnections(node)
	s.collapsed.Add(node)
	s.history = append(s.history, entry)
	s.stats.Collapses++

	s.log.Debug("collapsed",
		slog.Int("node", int(node)),
		slog.String("symbol", st.Symbol()),
		slog.String("orientation", st.Orientation.String()),
		slog.Bool("connected", st.Connected),
	)

	for _, o := range s.observers {
		o.OnCollapse(node, st)
	}

	affected := s.propagate(node)
	s.stats.Propagations += len(affected)
	for _, o := range s.observers {
		o.OnPropagate(affected)
	}
}

// propagate returns the union of every invariant's Propagate result in
// first-seen order. The affected nodes are reported, not re-examined.
func (s *Solver) propagate(node graph.NodeID) []graph.NodeID {
	seen := graph.NewSet()
	var affected []graph.NodeID
	for _, inv := range s.invariants {
		for _, id := range inv.Propagate(node, s) {
			if seen.Has(id) {
				continue
			}
			seen.Add(id)
			affected = append(affected, id)
		}
	}
	return affected
}

// establishConnections binds node to the first collapsed node, in
// ascending id order, that offers a compatible connection point pair
// accepted by the compatibility table. It returns the bindings it broke.
func (s *Solver) establishConnections(node graph.NodeID) []displaced {
	st := s.graph.Node(node)
	for _, id := range s.collapsed.Sorted() {
		if id == node {
			continue
		}
		other := s.graph.Node(id)
		if !s.partner(st, other) {
			continue
		}
		selfConn, otherConn, ok := st.CanConnectTo(other)
		if !ok {
			continue
		}
		if !s.compat.IsCompatible(id, node, other, st) {
			continue
		}
		return s.bind(node, selfConn, id, otherConn)
	}
	return nil
}

// bind joins a.ac and b.bc, releasing whatever either point was bound to.
func (s *Solver) bind(a graph.NodeID, ac string, b graph.NodeID, bc string) []displaced {
	var broken []displaced
	release := func(n graph.NodeID, conn string) {
		peer, ok := s.graph.Node(n).Unbind(conn)
		if !ok {
			return
		}
		s.graph.Node(peer.Node).Unbind(peer.Conn)
		broken = append(broken, displaced{node: n, conn: conn, peer: peer})
	}
	release(a, ac)
	release(b, bc)

	s.graph.Node(a).Bind(ac, graph.Binding{Node: b, Conn: bc})
	s.graph.Node(b).Bind(bc, graph.Binding{Node: a, Conn: ac})
	return broken
}

// backtrack undoes the most recent commit and returns the undone node.
func (s *Solver) backtrack() (graph.NodeID, bool) {
	if len(s.history) == 0 {
		return 0, false
	}
	entry := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	node := entry.node

	st := s.graph.Node(node)
	for _, c := range st.Connections {
		if c.Peer != nil {
			s.graph.Node(c.Peer.Node).Unbind(c.Peer.Conn)
		}
	}
	for _, d := range entry.displaced {
		s.graph.Node(d.node).Bind(d.conn, d.peer)
		s.graph.Node(d.peer.Node).Bind(d.peer.Conn, graph.Binding{Node: d.node, Conn: d.conn})
	}

	s.grid.Remove(node)
	s.collapsed.Remove(node)
	s.compat.Forget(node)
	s.graph.Replace(node, entry.prior)
	s.stats.Backtracks++

	s.log.Debug("backtrack", slog.Int("node", int(node)))
	for _, o := range s.observers {
		if bo, ok := o.(BacktrackObserver); ok {
			bo.OnBacktrack(node)
		}
	}
	return node, true
}

// FindNodeAtPosition returns the node built for pos.
func (s *Solver) FindNodeAtPosition(pos graph.Position) (graph.NodeID, error) {
	id, ok := s.graph.FindByPosition(pos)
	if !ok {
		return 0, &Error{Kind: KindNodeNotFoundAtPosition, Pos: pos}
	}
	return id, nil
}

// CollapseNodeAtPosition collapses the node at pos through the normal
// collapse path.
func (s *Solver) CollapseNodeAtPosition(pos graph.Position) (graph.NodeState, error) {
	id, err := s.FindNodeAtPosition(pos)
	if err != nil {
		return graph.NodeState{}, err
	}
	return s.CollapseNode(id)
}

// SetNodeAtPosition replaces the placeholder block of an uncollapsed node,
// keeping its orientation and re-deriving its connection points. It does
// not collapse the node.
func (s *Solver) SetNodeAtPosition(pos graph.Position, b block.Block) error {
	id, err := s.FindNodeAtPosition(pos)
	if err != nil {
		return err
	}
	if s.collapsed.Has(id) {
		return &Error{Kind: KindInvalidState, Node: id, Detail: fmt.Sprintf("node %d at %s is already collapsed", id, pos)}
	}
	cur := s.graph.Node(id)
	s.graph.Replace(id, graph.WithPosition(b, cur.Orientation, pos))
	return nil
}
