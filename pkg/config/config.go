// Package config loads bild's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/bild/pkg/scene"
	"github.com/chazu/bild/pkg/wfc"
	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	Solver SolverConfig `yaml:"solver"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Trace  TraceConfig  `yaml:"trace"`
}

// SolverConfig holds search settings. Scene directives override Seed,
// Traversal and ConnectScope.
type SolverConfig struct {
	CellSize     float64       `yaml:"cell_size"`
	Seed         uint64        `yaml:"seed"`
	Attempts     int           `yaml:"attempts"`
	Timeout      time.Duration `yaml:"timeout"` // per attempt
	Traversal    string        `yaml:"traversal"`
	ConnectScope string        `yaml:"connect_scope"`
	// MaxCells and MaxBlockExtent reject oversized scenes before solving.
	MaxCells       int    `yaml:"max_cells"`
	MaxBlockExtent uint32 `yaml:"max_block_extent"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// ServerConfig holds HTTP server and watcher settings.
type ServerConfig struct {
	Addr     string        `yaml:"addr"`
	Debounce time.Duration `yaml:"debounce"`
}

// TraceConfig selects where spans go: "none" or "stdout".
type TraceConfig struct {
	Exporter string `yaml:"exporter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			CellSize:     1,
			Seed:         1,
			Attempts:     1,
			Timeout:      10 * time.Second,
			Traversal:    "dfs",
			ConnectScope: "any",

			MaxCells:       scene.DefaultLimits().MaxCells,
			MaxBlockExtent: scene.DefaultLimits().MaxBlockExtent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8088",
			Debounce: 200 * time.Millisecond,
		},
		Trace: TraceConfig{
			Exporter: "none",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Solver.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("solver.cell_size must be positive, got %g", c.Solver.CellSize))
	}
	if c.Solver.Attempts < 1 {
		errs = append(errs, fmt.Errorf("solver.attempts must be at least 1, got %d", c.Solver.Attempts))
	}
	if c.Solver.Timeout < 0 {
		errs = append(errs, fmt.Errorf("solver.timeout must not be negative, got %s", c.Solver.Timeout))
	}
	if c.Solver.MaxCells < 1 {
		errs = append(errs, fmt.Errorf("solver.max_cells must be at least 1, got %d", c.Solver.MaxCells))
	}
	if c.Solver.MaxBlockExtent < 1 {
		errs = append(errs, fmt.Errorf("solver.max_block_extent must be at least 1, got %d", c.Solver.MaxBlockExtent))
	}
	if _, err := wfc.ParseTraversal(c.Solver.Traversal); err != nil {
		errs = append(errs, fmt.Errorf("solver.traversal: %w", err))
	}
	if _, err := wfc.ParseConnectScope(c.Solver.ConnectScope); err != nil {
		errs = append(errs, fmt.Errorf("solver.connect_scope: %w", err))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Server.Debounce < 0 {
		errs = append(errs, fmt.Errorf("server.debounce must not be negative, got %s", c.Server.Debounce))
	}
	switch c.Trace.Exporter {
	case "none", "stdout", "":
	default:
		errs = append(errs, fmt.Errorf("trace.exporter must be none or stdout, got %q", c.Trace.Exporter))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// SceneOptions converts the solver settings into scene defaults. The config
// must have been validated.
func (c *Config) SceneOptions() scene.Options {
	tr, _ := wfc.ParseTraversal(c.Solver.Traversal)
	scope, _ := wfc.ParseConnectScope(c.Solver.ConnectScope)
	return scene.Options{
		Seed:         c.Solver.Seed,
		CellSize:     c.Solver.CellSize,
		Traversal:    tr,
		ConnectScope: scope,
		Limits: scene.Limits{
			MaxCells:       c.Solver.MaxCells,
			MaxBlockExtent: c.Solver.MaxBlockExtent,
		},
	}
}
