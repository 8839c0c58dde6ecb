package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chazu/bild/pkg/config"
	"github.com/chazu/bild/pkg/telemetry"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

// flushTelemetry is replaced by loadApp once tracing is installed.
var flushTelemetry = func(context.Context) error { return nil }

var rootCmd = &cobra.Command{
	Use:   "bild",
	Short: "Constraint-driven block layout solver",
	Long: `bild fills a 3D grid with blocks from a palette so that every block
rests on what is below it, avoids keep-out volumes and joins its neighbours
through compatible interfaces. Scenes are written in a small Lisp DSL.

Examples:
  bild check examples/wall.bild                 # Evaluate a scene and summarize it
  bild solve examples/wall.bild                 # Solve and print the layers
  bild solve --attempts 4 --format json s.bild  # Four seeds, JSON result
  bild serve --addr :8088                       # HTTP + websocket server
  bild watch examples/pillar.bild               # Re-solve on every save`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

// loadApp reads the config, installs the default logger and tracer
// provider, and builds an App.
func loadApp() (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, verbose, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		Exporter: cfg.Trace.Exporter,
		Writer:   os.Stderr,
		Version:  rootCmd.Version,
	})
	if err != nil {
		return nil, err
	}
	flushTelemetry = shutdown
	return NewApp(cfg, logger), nil
}

func newLogger(lc config.LogConfig, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
