package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/bild/pkg/server"
	"github.com/chazu/bild/pkg/watch"
	"github.com/chazu/bild/pkg/wfc"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch <scene.bild>",
	Short: "Re-solve a scene every time it is saved",
	Long: `Solve the scene once, then again after every change to the file.
With --addr the solver events are also streamed to websocket clients on
that address, and POST /solve stays available.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		eg, ctx := errgroup.WithContext(ctx)

		var hub *server.Hub
		if watchAddr != "" {
			srv := server.New(app.runFunc(), slog.Default())
			hub = srv.Hub()
			eg.Go(func() error { return srv.ListenAndServe(ctx, watchAddr) })
		}

		rs := &resolver{app: app, hub: hub, out: cmd.OutOrStdout()}
		w, err := watch.New(args[0], rs.handle, watch.Options{
			Debounce: app.cfg.Server.Debounce,
			Logger:   slog.Default(),
		})
		if err != nil {
			return err
		}

		rs.handle(ctx, w.Path())
		eg.Go(func() error { return w.Run(ctx) })
		return eg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "also serve events on this address")
}

// resolver re-solves the watched file. Watch handlers never overlap, so it
// needs no locking.
type resolver struct {
	app *App
	hub *server.Hub
	out io.Writer
}

func (r *resolver) handle(ctx context.Context, path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read scene", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	runID := uuid.NewString()
	var observe func(int) []wfc.Observer
	if r.hub != nil {
		observe = func(attempt int) []wfc.Observer {
			return []wfc.Observer{r.hub.Stream(runID, attempt)}
		}
	}

	res, err := r.app.SolveWith(ctx, runID, string(source), observe)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "--- %s (run %s)\n", path, runID)
	writeResult(r.out, res)

	if r.hub != nil {
		status := "failed"
		if res.OK() {
			status = "solved"
		}
		r.hub.Stream(runID, res.Attempt).Done(status)
	}
}
