package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/wfc"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// sendBuffer is how many messages a client may fall behind before it is
// dropped.
const sendBuffer = 256

const writeWait = 5 * time.Second

// Message is one solver event as streamed to websocket clients.
type Message struct {
	RunID   string `json:"run_id,omitempty"`
	Attempt int    `json:"attempt"`
	wfc.Event
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans solver events out to every connected websocket client. A client
// that cannot keep up is disconnected instead of blocking the solver.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

var (
	_ wfc.Observer          = (*Hub)(nil)
	_ wfc.BacktrackObserver = (*Hub)(nil)
)

// NewHub returns a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.With(slog.String("component", "hub")),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister removes c and closes its send channel. It is safe to call
// more than once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to encode event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			delete(h.clients, c)
			close(c.send)
			h.log.Warn("dropped slow websocket client")
		}
	}
}

// Stream returns an observer that tags events with a run id and attempt.
func (h *Hub) Stream(runID string, attempt int) *Stream {
	return &Stream{hub: h, runID: runID, attempt: attempt}
}

// OnCollapse implements wfc.Observer for untagged events.
func (h *Hub) OnCollapse(node graph.NodeID, state *graph.NodeState) {
	h.Stream("", 0).OnCollapse(node, state)
}

// OnPropagate implements wfc.Observer for untagged events.
func (h *Hub) OnPropagate(affected []graph.NodeID) {
	h.Stream("", 0).OnPropagate(affected)
}

// OnBacktrack implements wfc.BacktrackObserver for untagged events.
func (h *Hub) OnBacktrack(node graph.NodeID) {
	h.Stream("", 0).OnBacktrack(node)
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Anything the client sends is ignored.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(cl)
	defer h.unregister(cl)
	h.log.Info("websocket client connected", slog.String("remote", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b, ok := <-cl.send:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
						time.Now().Add(time.Second))
					writeErr <- nil
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop: only here to notice the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
	h.log.Info("websocket client disconnected")
}

// Stream is a per-run observer feeding a Hub.
type Stream struct {
	hub     *Hub
	runID   string
	attempt int
}

var (
	_ wfc.Observer          = (*Stream)(nil)
	_ wfc.BacktrackObserver = (*Stream)(nil)
)

func (s *Stream) send(e wfc.Event) {
	s.hub.Broadcast(Message{RunID: s.runID, Attempt: s.attempt, Event: e})
}

// OnCollapse implements wfc.Observer.
func (s *Stream) OnCollapse(node graph.NodeID, state *graph.NodeState) {
	s.send(wfc.Event{Kind: "collapse", Node: node, Symbol: state.Symbol(), Position: state.Position})
}

// OnPropagate implements wfc.Observer.
func (s *Stream) OnPropagate(affected []graph.NodeID) {
	s.send(wfc.Event{Kind: "propagate", Affected: affected})
}

// OnBacktrack implements wfc.BacktrackObserver.
func (s *Stream) OnBacktrack(node graph.NodeID) {
	s.send(wfc.Event{Kind: "backtrack", Node: node})
}

// Done announces the end of a run attempt.
func (s *Stream) Done(status string) {
	s.send(wfc.Event{Kind: status})
}
