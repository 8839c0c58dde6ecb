package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/wfc"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResult struct {
	Success bool   `json:"success"`
	Source  string `json:"source"`
}

func (r stubResult) OK() bool { return r.Success }

// echoRun reports success unless the source says "fail", and emits one
// collapse event per attempt through the provided observers.
func echoRun(ctx context.Context, runID, source string, observe func(int) []wfc.Observer) (Result, error) {
	if source == "boom" {
		return nil, errors.New("evaluation timed out")
	}
	st := graph.WithPosition(block.NewBrick("B", block.Size{}), block.O0, graph.Position{X: 1})
	for _, o := range observe(0) {
		o.OnCollapse(3, &st)
	}
	return stubResult{Success: source != "fail", Source: source}, nil
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := New(echoRun, quietLogger())
	w := do(t, s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(echoRun, quietLogger())
	w := do(t, s, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bild_wfc_collapses_total")
}

func TestSolveStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"success", "(grid 1 1 1)", http.StatusOK},
		{"solver failure", "fail", http.StatusUnprocessableEntity},
		{"fatal", "boom", http.StatusInternalServerError},
		{"empty", "", http.StatusBadRequest},
	}
	s := New(echoRun, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/solve", tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestSolveReturnsResult(t *testing.T) {
	s := New(echoRun, quietLogger())
	w := do(t, s, http.MethodPost, "/solve", "(grid 1 1 1)")
	require.Equal(t, http.StatusOK, w.Code)

	var res stubResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "(grid 1 1 1)", res.Source)
}

func TestSolveRejectsOversizedScene(t *testing.T) {
	s := New(echoRun, quietLogger())
	w := do(t, s, http.MethodPost, "/solve", strings.Repeat("x", maxSceneBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocketStreamsSolveEvents(t *testing.T) {
	s := New(echoRun, quietLogger())
	conn := dialWS(t, s)

	w := do(t, s, http.MethodPost, "/solve", "(grid 1 1 1)")
	require.Equal(t, http.StatusOK, w.Code)

	collapse := readMessage(t, conn)
	assert.Equal(t, "collapse", collapse.Kind)
	assert.Equal(t, graph.NodeID(3), collapse.Node)
	assert.Equal(t, "B", collapse.Symbol)
	assert.Equal(t, graph.Position{X: 1}, collapse.Position)
	assert.NotEmpty(t, collapse.RunID)

	done := readMessage(t, conn)
	assert.Equal(t, "solved", done.Kind)
	assert.Equal(t, collapse.RunID, done.RunID)
}

func TestHubObserverMethods(t *testing.T) {
	s := New(echoRun, quietLogger())
	conn := dialWS(t, s)

	s.Hub().OnPropagate([]graph.NodeID{4, 5})
	s.Hub().OnBacktrack(2)

	prop := readMessage(t, conn)
	assert.Equal(t, "propagate", prop.Kind)
	assert.Equal(t, []graph.NodeID{4, 5}, prop.Affected)
	assert.Empty(t, prop.RunID)

	back := readMessage(t, conn)
	assert.Equal(t, "backtrack", back.Kind)
	assert.Equal(t, graph.NodeID(2), back.Node)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(quietLogger())
	slow := &client{send: make(chan []byte)} // unbuffered, never read
	h.register(slow)
	require.Equal(t, 1, h.Len())

	h.Broadcast(Message{Event: wfc.Event{Kind: "collapse"}})
	assert.Equal(t, 0, h.Len())

	_, open := <-slow.send
	assert.False(t, open, "send channel is closed on drop")

	// Unregistering after a drop is a no-op.
	h.unregister(slow)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(echoRun, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
