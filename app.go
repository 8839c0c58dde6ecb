package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/chazu/bild/pkg/config"
	"github.com/chazu/bild/pkg/engine"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/kernel"
	"github.com/chazu/bild/pkg/kernel/sdfx"
	"github.com/chazu/bild/pkg/scene"
	"github.com/chazu/bild/pkg/wfc"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("bild.app")

// App evaluates scene files and runs solve attempts over them. It is shared
// by the CLI, the watcher and the HTTP server.
type App struct {
	cfg    *config.Config
	kernel kernel.Kernel
	log    *slog.Logger
}

// EvalErrorData is a JSON-serializable error with an optional source
// location. Line and Col are zero when the error is not tied to the source.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// PlacementData is one solved cell.
type PlacementData struct {
	Node        graph.NodeID   `json:"node"`
	Position    graph.Position `json:"position"`
	Symbol      string         `json:"symbol"`
	Orientation int            `json:"orientation"` // degrees
	Bound       int            `json:"bound"`       // bound connection points
}

// SolveResult is the full outcome of a solve request.
type SolveResult struct {
	RunID      string          `json:"run_id"`
	Success    bool            `json:"success"`
	Attempt    int             `json:"attempt"`
	Seed       uint64          `json:"seed"`
	Dims       [3]int          `json:"dims"`
	Placements []PlacementData `json:"placements"`
	Stats      wfc.Stats       `json:"stats"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
	Warnings   []EvalErrorData `json:"warnings"`
	Errors     []EvalErrorData `json:"errors"`
}

// OK reports whether a complete layout was found.
func (r *SolveResult) OK() bool {
	return r.Success
}

// CheckResult is the outcome of evaluating a scene without solving it.
type CheckResult struct {
	Summary string          `json:"summary"`
	Errors  []EvalErrorData `json:"errors"`
}

// NewApp creates an App with the sdfx kernel. A nil cfg uses the defaults.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		kernel: sdfx.New(),
		log:    logger.With(slog.String("component", "app")),
	}
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// evaluate runs the DSL. Each call gets its own engine so concurrent
// requests never supersede one another.
func (a *App) evaluate(ctx context.Context, source string) (*scene.Scene, []EvalErrorData, error) {
	sc, evalErrs, err := engine.NewEngineWithKernel(a.kernel).EvaluateContext(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	if len(evalErrs) > 0 {
		out := make([]EvalErrorData, 0, len(evalErrs))
		for _, e := range evalErrs {
			out = append(out, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return nil, out, nil
	}
	if err := sc.ValidateWithin(a.cfg.SceneOptions().Limits); err != nil {
		return nil, []EvalErrorData{{Message: err.Error()}}, nil
	}
	return sc, nil, nil
}

// Check evaluates source and validates the resulting scene.
func (a *App) Check(source string) CheckResult {
	result := CheckResult{Errors: []EvalErrorData{}}
	sc, evalErrs, err := a.evaluate(context.Background(), source)
	if err != nil {
		a.log.Error("evaluation failed", slog.String("error", err.Error()))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = evalErrs
		return result
	}
	result.Summary = sc.Summary()
	return result
}

// Solve evaluates source and solves it under a fresh run id.
func (a *App) Solve(ctx context.Context, source string) (*SolveResult, error) {
	return a.SolveWith(ctx, uuid.NewString(), source, nil)
}

type attemptOutcome struct {
	solver  *wfc.Solver
	seed    uint64
	elapsed time.Duration
	err     error
}

// SolveWith runs the configured number of attempts, seeding attempt i with
// base+i, and reports the lowest-numbered attempt that succeeded. observe,
// when non-nil, supplies extra observers per attempt. Scene and solver
// failures are reported in the result; the error is reserved for fatal
// evaluation failures such as timeouts.
func (a *App) SolveWith(ctx context.Context, runID, source string, observe func(attempt int) []wfc.Observer) (*SolveResult, error) {
	ctx, span := tracer.Start(ctx, "App.Solve")
	defer span.End()
	span.SetAttributes(attribute.String("bild.run_id", runID))

	log := a.log.With(slog.String("run_id", runID))
	result := &SolveResult{
		RunID:      runID,
		Placements: []PlacementData{},
		Warnings:   []EvalErrorData{},
		Errors:     []EvalErrorData{},
	}

	sc, evalErrs, err := a.evaluate(ctx, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		log.Error("evaluation failed", slog.String("error", err.Error()))
		return nil, err
	}
	if len(evalErrs) > 0 {
		result.Errors = evalErrs
		span.SetStatus(codes.Error, "scene has errors")
		return result, nil
	}
	result.Dims = [3]int{sc.Width, sc.Height, sc.Depth}

	base := sc.Resolve(a.cfg.SceneOptions())
	attempts := a.cfg.Solver.Attempts
	if attempts < 1 {
		attempts = 1
	}
	log.Info("solving", slog.String("scene", sc.Summary()),
		slog.Int("attempts", attempts), slog.Uint64("seed", base.Seed))

	outcomes := make([]attemptOutcome, attempts)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < attempts; i++ {
		eg.Go(func() error {
			outcomes[i] = a.runAttempt(egCtx, sc, base, i, observe, log)
			return nil
		})
	}
	_ = eg.Wait()

	chosen := -1
	for i, o := range outcomes {
		if o.err == nil {
			chosen = i
			break
		}
	}

	if chosen < 0 {
		for i, o := range outcomes {
			result.Errors = append(result.Errors, EvalErrorData{
				Message: fmt.Sprintf("attempt %d (seed %d): %v", i, o.seed, o.err),
			})
		}
		first := outcomes[0]
		result.Seed = first.seed
		result.Elapsed = first.elapsed
		if first.solver != nil {
			result.Stats = first.solver.Stats()
		}
		span.SetStatus(codes.Error, "no attempt succeeded")
		log.Warn("solve failed", slog.Int("attempts", attempts))
		return result, nil
	}

	o := outcomes[chosen]
	result.Attempt = chosen
	result.Seed = o.seed
	result.Elapsed = o.elapsed
	result.Stats = o.solver.Stats()
	result.Placements = placements(o.solver.Graph())

	vr := graph.ValidateAll(o.solver.Graph())
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: validationMessage(w.NodeID, w.Message)})
	}
	for _, e := range vr.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
	}
	result.Success = vr.OK()

	span.SetAttributes(
		attribute.Int("bild.attempt", chosen),
		attribute.Int("bild.collapses", result.Stats.Collapses),
		attribute.Int("bild.backtracks", result.Stats.Backtracks),
	)
	log.Info("solved",
		slog.Int("attempt", chosen),
		slog.Uint64("seed", o.seed),
		slog.Int("collapses", result.Stats.Collapses),
		slog.Int("backtracks", result.Stats.Backtracks),
		slog.Duration("elapsed", o.elapsed),
		slog.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (a *App) runAttempt(ctx context.Context, sc *scene.Scene, base scene.Options, i int, observe func(int) []wfc.Observer, log *slog.Logger) attemptOutcome {
	opts := base
	opts.Seed = base.Seed + uint64(i)
	opts.Logger = log.With(slog.Int("attempt", i))
	opts.Observers = []wfc.Observer{wfc.MetricsObserver{}, wfc.LogObserver{Logger: opts.Logger}}
	if observe != nil {
		opts.Observers = append(opts.Observers, observe(i)...)
	}

	ctx, span := tracer.Start(ctx, "App.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("bild.attempt", i), attribute.Int64("bild.seed", int64(opts.Seed)))

	if timeout := a.cfg.Solver.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out := attemptOutcome{seed: opts.Seed}
	out.solver, out.err = sc.NewSolver(opts)
	if out.err == nil {
		out.err = out.solver.SolveContext(ctx)
	}
	out.elapsed = time.Since(start)

	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, "attempt failed")
		if errors.Is(out.err, context.DeadlineExceeded) {
			out.err = fmt.Errorf("timed out after %s: %w", a.cfg.Solver.Timeout, out.err)
		}
		opts.Logger.Debug("attempt failed", slog.String("error", out.err.Error()))
	}
	return out
}

func placements(g *graph.Graph) []PlacementData {
	out := make([]PlacementData, 0, g.NodeCount())
	for id := graph.NodeID(0); int(id) < g.NodeCount(); id++ {
		st := g.Node(id)
		if st == nil || st.Block == nil {
			continue
		}
		bound := 0
		for _, c := range st.Connections {
			if c.Peer != nil {
				bound++
			}
		}
		out = append(out, PlacementData{
			Node:        id,
			Position:    st.Position,
			Symbol:      st.Symbol(),
			Orientation: st.Orientation.Degrees(),
			Bound:       bound,
		})
	}
	return out
}

func validationMessage(node graph.NodeID, msg string) string {
	if node == graph.NoNode {
		return msg
	}
	return fmt.Sprintf("node %d: %s", node, msg)
}
