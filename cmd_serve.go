package main

import (
	"context"
	"log/slog"

	"github.com/chazu/bild/pkg/server"
	"github.com/chazu/bild/pkg/wfc"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the solver over HTTP and websocket",
	Long: `Start an HTTP server with these routes:

  POST /solve    scene source in the body, SolveResult in the response
  GET  /ws       websocket stream of every solver event
  GET  /metrics  Prometheus metrics
  GET  /healthz  health check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		addr := app.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(app.runFunc(), slog.Default())
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

// runFunc adapts SolveWith to the server's RunFunc.
func (a *App) runFunc() server.RunFunc {
	return func(ctx context.Context, runID, source string, observe func(int) []wfc.Observer) (server.Result, error) {
		res, err := a.SolveWith(ctx, runID, source, observe)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}
