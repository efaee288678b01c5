package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1024
)

// Envelope is the frame pushed to websocket clients.
type Envelope struct {
	Type   string        `json:"type"`
	Signal models.Signal `json:"signal"`
}

// Hub streams published signals to connected websocket clients. Each client has a
// bounded send buffer; a client that falls behind loses messages rather than
// slowing down the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	bufferSize int
	upgrader   websocket.Upgrader
	dropped    atomic.Int64
	l          *logger.Logger
}

var _ domrepo.SignalPublisher = (*Hub)(nil)

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols map[string]struct{} // empty = all
}

func (c *client) wants(symbol string) bool {
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[strings.ToUpper(symbol)]
	return ok
}

func NewHub(bufferSize int, l *logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: true,
		},
		l: l,
	}
}

// RegisterRoutes mounts the stream at /ws/signals. Clients may narrow it with ?symbols=A,B.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request and attaches the connection to the hub.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws upgrade failed", logger.Error(err))
		return nil
	}
	cl := &client{
		conn:    conn,
		send:    make(chan []byte, h.bufferSize),
		symbols: parseSymbols(c.QueryParam("symbols")),
	}
	if !h.add(cl) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}
	h.l.Debug("ws client connected", logger.Int("clients", h.ClientCount()))

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// Publish fans the signal out to every interested client without blocking.
func (h *Hub) Publish(_ context.Context, sig models.Signal) error {
	b, err := json.Marshal(Envelope{Type: "signal", Signal: sig})
	if err != nil {
		return fmt.Errorf("ws encode %s: %w", sig.ID, err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if !cl.wants(sig.Symbol) {
			continue
		}
		select {
		case cl.send <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded because a client buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; client payloads are ignored.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
		h.l.Debug("ws client disconnected")
	}()

	cl.conn.SetReadLimit(readLimit)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func parseSymbols(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out[strings.ToUpper(s)] = struct{}{}
		}
	}
	return out
}
