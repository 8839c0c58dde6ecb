// Package scene holds the declarative description of a layout problem as
// produced by the scene DSL, and turns it into a ready-to-run solver.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/wfc"
)

// Scene is everything a scene file declares. Seed, Traversal and
// ConnectScope are nil when the file leaves them to configuration.
type Scene struct {
	Width, Height, Depth int

	Blocks    []block.Block
	Gravity   bool
	Obstacles []wfc.Obstacle
	Rules     []string

	Seed         *uint64
	Traversal    *wfc.Traversal
	ConnectScope *wfc.ConnectScope

	// StartAt lists cells collapsed, in order, before the search begins.
	StartAt []graph.Position
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// Options are the defaults a scene falls back on, usually from config.
type Options struct {
	Seed         uint64
	CellSize     float64
	Traversal    wfc.Traversal
	ConnectScope wfc.ConnectScope
	Observers    []wfc.Observer
	Logger       *slog.Logger
	Limits       Limits
}

// Limits caps the work a single scene can ask for. Zero fields take the
// DefaultLimits value.
type Limits struct {
	// MaxCells bounds the grid's cell count, and the number of spatial
	// cells a single block may cover.
	MaxCells int
	// MaxBlockExtent bounds each dimension of every block.
	MaxBlockExtent uint32
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxCells: 65536, MaxBlockExtent: 32}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxCells <= 0 {
		l.MaxCells = d.MaxCells
	}
	if l.MaxBlockExtent == 0 {
		l.MaxBlockExtent = d.MaxBlockExtent
	}
	return l
}

var (
	// ErrNoGrid is returned for a scene that never declared its dimensions.
	ErrNoGrid = errors.New("scene: no grid declared")
	// ErrTooLarge is returned for a scene that exceeds its Limits.
	ErrTooLarge = errors.New("scene: exceeds size limits")
)

// Validate checks the scene against DefaultLimits.
func (s *Scene) Validate() error {
	return s.ValidateWithin(DefaultLimits())
}

// ValidateWithin checks the scene for problems that make it unsolvable, or
// too large to solve, before any search runs.
func (s *Scene) ValidateWithin(l Limits) error {
	l = l.withDefaults()
	if s.Width == 0 && s.Height == 0 && s.Depth == 0 {
		return ErrNoGrid
	}
	if s.Width < 1 || s.Height < 1 || s.Depth < 1 {
		return fmt.Errorf("scene: grid %dx%dx%d: every dimension must be at least 1", s.Width, s.Height, s.Depth)
	}
	cells := 1
	for _, d := range []int{s.Width, s.Height, s.Depth} {
		if d > l.MaxCells/cells {
			return fmt.Errorf("%w: grid %dx%dx%d has more than %d cells", ErrTooLarge, s.Width, s.Height, s.Depth, l.MaxCells)
		}
		cells *= d
	}
	for _, b := range s.Blocks {
		sz := b.Size()
		if sz.X > l.MaxBlockExtent || sz.Y > l.MaxBlockExtent || sz.Z > l.MaxBlockExtent {
			return fmt.Errorf("%w: block %q is %s, larger than %d on a side", ErrTooLarge, b.Symbol(), sz, l.MaxBlockExtent)
		}
	}
	for _, r := range s.Rules {
		if _, ok := wfc.RuleByName(r); !ok {
			return fmt.Errorf("scene: unknown rule %q", r)
		}
	}
	for _, p := range s.StartAt {
		if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= s.Width || p.Y >= s.Height || p.Z >= s.Depth {
			return fmt.Errorf("scene: start cell %s is outside the grid", p)
		}
	}
	return nil
}

// Palette returns the declared blocks as a palette.
func (s *Scene) Palette() *block.Palette {
	return block.NewPalette(s.Blocks...)
}

// Resolve merges the scene's own directives over opts.
func (s *Scene) Resolve(opts Options) Options {
	if s.Seed != nil {
		opts.Seed = *s.Seed
	}
	if s.Traversal != nil {
		opts.Traversal = *s.Traversal
	}
	if s.ConnectScope != nil {
		opts.ConnectScope = *s.ConnectScope
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 1
	}
	return opts
}

// NewSolver builds the grid graph, palette, invariants and rules for the
// scene and returns a solver with the start cells already collapsed.
func (s *Scene) NewSolver(opts Options) (*wfc.Solver, error) {
	opts = s.Resolve(opts)
	if err := s.ValidateWithin(opts.Limits); err != nil {
		return nil, err
	}
	if n := spatialSpan(s.Blocks, opts.CellSize); n > float64(opts.Limits.withDefaults().MaxCells) {
		return nil, fmt.Errorf("%w: cell size %g spreads one block over %.0f spatial cells", ErrTooLarge, opts.CellSize, n)
	}

	wopts := wfc.DefaultOptions()
	wopts.CellSize = opts.CellSize
	wopts.Traversal = opts.Traversal
	wopts.ConnectScope = opts.ConnectScope
	wopts.Observers = opts.Observers
	wopts.Logger = opts.Logger

	if s.Gravity {
		wopts.Invariants = append(wopts.Invariants, wfc.Gravity{})
	}
	if len(s.Obstacles) > 0 {
		wopts.Invariants = append(wopts.Invariants, &wfc.KeepOut{Obstacles: s.Obstacles})
	}
	for _, name := range s.Rules {
		r, _ := wfc.RuleByName(name)
		wopts.Rules = append(wopts.Rules, r)
	}

	g := graph.Grid(s.Width, s.Height, s.Depth)
	solver := wfc.New(g, s.Palette(), wfc.NewWeightedRandom(opts.Seed), wopts)

	for _, p := range s.StartAt {
		if _, err := solver.CollapseNodeAtPosition(p); err != nil {
			return nil, fmt.Errorf("scene: start cell %s: %w", p, err)
		}
	}
	return solver, nil
}

// spatialSpan is the largest number of broad-phase cells any block covers.
func spatialSpan(blocks []block.Block, cellSize float64) float64 {
	var most float64
	for _, b := range blocks {
		ext := b.Size().Vec()
		n := (math.Ceil(ext.X/cellSize) + 1) * (math.Ceil(ext.Y/cellSize) + 1) * (math.Ceil(ext.Z/cellSize) + 1)
		most = math.Max(most, n)
	}
	return most
}

// Summary is a one-line description used by the check command.
func (s *Scene) Summary() string {
	return fmt.Sprintf("grid %dx%dx%d, %d blocks, %d obstacles, %d rules, gravity=%t",
		s.Width, s.Height, s.Depth, len(s.Blocks), len(s.Obstacles), len(s.Rules), s.Gravity)
}
