package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/bild/pkg/graph"
	"github.com/spf13/cobra"
)

var (
	solveSeed     uint64
	solveAttempts int
	solveFormat   string
)

// errSolveFailed makes the process exit non-zero after the result has
// already been printed.
var errSolveFailed = errors.New("no layout found")

var solveCmd = &cobra.Command{
	Use:   "solve <scene.bild>",
	Short: "Solve a scene and print the layout",
	Long: `Evaluate a scene file and fill its grid.

The text format prints one block of rows per layer, bottom layer first,
with one column per x and one row per z. Empty cells print as ".".

Examples:
  bild solve examples/wall.bild
  bild solve --seed 42 --attempts 8 examples/pillar.bild
  bild solve --format json examples/wall.bild | jq .stats`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().Uint64Var(&solveSeed, "seed", 0, "base RNG seed (overrides config)")
	solveCmd.Flags().IntVar(&solveAttempts, "attempts", 0, "independent attempts (overrides config)")
	solveCmd.Flags().StringVarP(&solveFormat, "format", "f", "text", "output format: text or json")
}

func runSolve(cmd *cobra.Command, args []string) error {
	if solveFormat != "text" && solveFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", solveFormat)
	}
	app, err := loadApp()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		app.cfg.Solver.Seed = solveSeed
	}
	if cmd.Flags().Changed("attempts") {
		if solveAttempts < 1 {
			return fmt.Errorf("--attempts must be at least 1")
		}
		app.cfg.Solver.Attempts = solveAttempts
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read scene: %w", err)
	}

	res, err := app.Solve(cmd.Context(), string(source))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if solveFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		writeResult(out, res)
	}
	if !res.OK() {
		return errSolveFailed
	}
	return nil
}

// writeResult prints a result in the text format.
func writeResult(w io.Writer, res *SolveResult) {
	for _, e := range res.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error (line %d, col %d): %s\n", e.Line, e.Col, e.Message)
		} else {
			fmt.Fprintf(w, "error: %s\n", e.Message)
		}
	}
	if res.Success {
		writeLayers(w, res)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
	if res.Success || res.Stats.Collapses > 0 {
		fmt.Fprintf(w, "attempt %d, seed %d: %d collapses, %d backtracks, %d propagations in %s\n",
			res.Attempt, res.Seed, res.Stats.Collapses, res.Stats.Backtracks, res.Stats.Propagations, res.Elapsed)
	}
}

func writeLayers(w io.Writer, res *SolveResult) {
	width, height, depth := res.Dims[0], res.Dims[1], res.Dims[2]

	cells := make(map[graph.Position]string, len(res.Placements))
	cellWidth := 1
	for _, p := range res.Placements {
		cells[p.Position] = p.Symbol
		cellWidth = max(cellWidth, len(p.Symbol))
	}

	row := make([]string, width)
	for y := 0; y < height; y++ {
		fmt.Fprintf(w, "layer y=%d\n", y)
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				sym, ok := cells[graph.Position{X: x, Y: y, Z: z}]
				if !ok {
					sym = "."
				}
				row[x] = fmt.Sprintf("%-*s", cellWidth, sym)
			}
			fmt.Fprintln(w, "  "+strings.TrimRight(strings.Join(row, " "), " "))
		}
	}
}
