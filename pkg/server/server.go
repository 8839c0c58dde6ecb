// Package server exposes the solver over HTTP: a solve endpoint, a
// websocket event stream, Prometheus metrics and a health check.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chazu/bild/pkg/wfc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "bild"

// maxSceneBytes bounds the size of a POSTed scene.
const maxSceneBytes = 1 << 20

// Result is what a run produces. OK decides the response status.
type Result interface {
	OK() bool
}

// RunFunc evaluates and solves scene source. observe returns the observers
// for one attempt. A non-nil error is fatal (timeout, panic); scene and
// solver failures are reported inside the Result.
type RunFunc func(ctx context.Context, runID, source string, observe func(attempt int) []wfc.Observer) (Result, error)

// Server wires the routes to a RunFunc and a Hub.
type Server struct {
	engine *gin.Engine
	hub    *Hub
	run    RunFunc
	log    *slog.Logger
}

// New builds the gin engine and routes.
func New(run RunFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: gin.New(),
		hub:    NewHub(logger),
		run:    run,
		log:    logger.With(slog.String("component", "server")),
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(otelgin.Middleware(serviceName))

	s.engine.GET("/healthz", HealthCheck)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/solve", s.handleSolve)
	s.engine.GET("/ws", s.hub.ServeWS)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSolve(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSceneBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) > maxSceneBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "scene too large"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty scene"})
		return
	}

	runID := uuid.NewString()
	observe := func(attempt int) []wfc.Observer {
		return []wfc.Observer{s.hub.Stream(runID, attempt)}
	}

	s.log.Info("solve requested", slog.String("run_id", runID), slog.Int("bytes", len(body)))
	res, err := s.run(c.Request.Context(), runID, string(body), observe)
	if err != nil {
		s.log.Error("solve failed", slog.String("run_id", runID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"run_id": runID, "error": err.Error()})
		return
	}

	status := http.StatusOK
	if !res.OK() {
		status = http.StatusUnprocessableEntity
	}
	s.hub.Stream(runID, 0).Done(doneStatus(res))
	c.JSON(status, res)
}

func doneStatus(res Result) string {
	if res.OK() {
		return "solved"
	}
	return "failed"
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
