package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chazu/bild/pkg/config"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/server"
	"github.com/chazu/bild/pkg/wfc"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(cfg *config.Config) *App {
	return NewApp(cfg, quietLogger())
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	source, err := os.ReadFile("examples/" + name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(source)
}

func mustSolve(t *testing.T, app *App, source string) *SolveResult {
	t.Helper()
	res, err := app.Solve(context.Background(), source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if res == nil {
		t.Fatal("expected non-nil result")
	}
	return res
}

// TestE2EWallExample exercises the full pipeline: DSL source -> engine ->
// scene -> solver -> validation -> placements.
func TestE2EWallExample(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), readExample(t, "wall.bild"))

	if !res.OK() {
		for _, e := range res.Errors {
			t.Errorf("error: %s", e.Message)
		}
		t.FailNow()
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.Dims != [3]int{3, 2, 1} {
		t.Errorf("dims = %v, want [3 2 1]", res.Dims)
	}
	if res.Seed != 3 {
		t.Errorf("seed = %d, want 3 from the scene's seed directive", res.Seed)
	}
	if len(res.Placements) != 6 {
		t.Fatalf("expected 6 placements, got %d", len(res.Placements))
	}

	seen := make(map[graph.Position]bool)
	for _, p := range res.Placements {
		if p.Symbol != "brick" {
			t.Errorf("node %d: symbol = %q, want brick", p.Node, p.Symbol)
		}
		if seen[p.Position] {
			t.Errorf("position %s placed twice", p.Position)
		}
		seen[p.Position] = true
	}
	if res.Stats.Collapses < 6 {
		t.Errorf("collapses = %d, want at least 6", res.Stats.Collapses)
	}

	unbound := 0
	for _, p := range res.Placements {
		if p.Bound == 0 {
			unbound++
		}
	}
	if len(res.Warnings) != unbound {
		t.Errorf("warnings = %d, want one per unbound brick (%d)", len(res.Warnings), unbound)
	}
}

func TestSolveRejectsOversizedScene(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Timeout = 500 * time.Millisecond
	app := newTestApp(cfg)

	source := `(grid 2 1 1)
(defblock "slab" :size (vec3 3000 3000 3000))`
	type outcome struct {
		res *SolveResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := app.Solve(context.Background(), source)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("fatal error: %v", o.err)
		}
		res := o.res
		if res.OK() {
			t.Fatal("an oversized block must not solve")
		}
		if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "exceeds size limits") {
			t.Errorf("errors = %v, want a size limit error", res.Errors)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("oversized scene was not rejected before solving")
	}

	cfg.Solver.MaxCells = 4
	res := mustSolve(t, app, "(grid 3 2 1)\n(defblock \"a\")")
	if res.OK() || len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, "more than 4 cells") {
		t.Errorf("grid over max_cells: errors = %v", res.Errors)
	}
}

func TestE2EPillarExample(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), readExample(t, "pillar.bild"))
	if !res.OK() {
		t.Fatalf("expected success, got errors %v", res.Errors)
	}
	if len(res.Placements) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(res.Placements))
	}
	for _, p := range res.Placements {
		if p.Position.X != 0 || p.Position.Z != 0 {
			t.Errorf("placement outside the column: %s", p.Position)
		}
		if p.Symbol != "stone" {
			t.Errorf("symbol = %q, want stone", p.Symbol)
		}
	}
}

func TestE2EBlockedExample(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), readExample(t, "blocked.bild"))
	if res.OK() {
		t.Fatal("expected failure for a scene with an unfillable cell")
	}
	if len(res.Placements) != 0 {
		t.Errorf("expected no placements on failure, got %d", len(res.Placements))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Message, "no solution found") {
		t.Errorf("error = %q, want no solution", res.Errors[0].Message)
	}
}

// TestE2EEmptySource ensures an empty file is reported, not solved.
func TestE2EEmptySource(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), "")
	if res.OK() {
		t.Fatal("expected failure for empty source")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "no grid declared") {
		t.Errorf("errors = %v, want no grid declared", res.Errors)
	}
}

func TestE2EEvalErrorsAreReported(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), "(grid 1 1 1)\n(defblock \"a\" :ranking 0)")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, "ranking must be positive") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestSolveAttemptsKeepLowestSuccess(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Attempts = 4
	res := mustSolve(t, newTestApp(cfg), readExample(t, "wall.bild"))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	if res.Attempt != 0 || res.Seed != 3 {
		t.Errorf("attempt %d seed %d, want attempt 0 seed 3", res.Attempt, res.Seed)
	}
}

func TestSolveFailureReportsEveryAttempt(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Attempts = 2
	res := mustSolve(t, newTestApp(cfg), readExample(t, "blocked.bild"))
	if res.OK() {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected one error per attempt, got %v", res.Errors)
	}
	for i, want := range []string{"attempt 0 (seed 1)", "attempt 1 (seed 2)"} {
		if !strings.Contains(res.Errors[i].Message, want) {
			t.Errorf("error %d = %q, want containing %q", i, res.Errors[i].Message, want)
		}
	}
}

func TestSolveWithObservers(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Attempts = 2
	app := newTestApp(cfg)

	recorders := []*wfc.Recorder{{}, {}}
	res, err := app.SolveWith(context.Background(), "run-1", readExample(t, "wall.bild"),
		func(attempt int) []wfc.Observer {
			return []wfc.Observer{recorders[attempt]}
		})
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if res.RunID != "run-1" {
		t.Errorf("run id = %q, want run-1", res.RunID)
	}
	for i, r := range recorders {
		if r.Count("collapse") < 6 {
			t.Errorf("attempt %d recorded %d collapses, want at least 6", i, r.Count("collapse"))
		}
	}
}

func TestSolveResultJSON(t *testing.T) {
	res := mustSolve(t, newTestApp(nil), readExample(t, "wall.bild"))
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"run_id", "success", "placements", "stats", "warnings", "errors"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestCheck(t *testing.T) {
	app := newTestApp(nil)

	res := app.Check(readExample(t, "wall.bild"))
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if !strings.Contains(res.Summary, "grid 3x2x1") || !strings.Contains(res.Summary, "gravity=true") {
		t.Errorf("summary = %q", res.Summary)
	}

	bad := app.Check(`(grid 0 1 1)`)
	if len(bad.Errors) == 0 {
		t.Error("expected errors for a zero-width grid")
	}
}

func TestWriteLayers(t *testing.T) {
	res := &SolveResult{
		Success: true,
		Dims:    [3]int{2, 2, 1},
		Placements: []PlacementData{
			{Position: graph.Position{X: 0, Y: 0}, Symbol: "ab"},
			{Position: graph.Position{X: 1, Y: 0}, Symbol: "c"},
			{Position: graph.Position{X: 0, Y: 1}, Symbol: "c"},
		},
	}
	var buf bytes.Buffer
	writeLayers(&buf, res)

	want := "layer y=0\n  ab c\nlayer y=1\n  c  .\n"
	if buf.String() != want {
		t.Errorf("layers =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record passed a warn-level handler")
	}
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("expected a JSON record, got %q", buf.String())
	}

	buf.Reset()
	logger, err = newLogger(config.LogConfig{Level: "warn", Format: "text"}, true, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("verbose")
	if !strings.Contains(buf.String(), "msg=verbose") {
		t.Errorf("verbose should force debug level, got %q", buf.String())
	}

	if _, err := newLogger(config.LogConfig{Level: "loud"}, false, &buf); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestRunFuncServesSolve(t *testing.T) {
	app := newTestApp(nil)
	srv := server.New(app.runFunc(), quietLogger())

	for _, tt := range []struct {
		example string
		code    int
	}{
		{"wall.bild", http.StatusOK},
		{"blocked.bild", http.StatusUnprocessableEntity},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/solve", strings.NewReader(readExample(t, tt.example)))
		srv.Handler().ServeHTTP(w, req)
		if w.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.example, w.Code, tt.code)
		}

		var res SolveResult
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("%s: decode: %v", tt.example, err)
		}
		if res.RunID == "" {
			t.Errorf("%s: expected the server's run id in the result", tt.example)
		}
	}
}
