package hotreload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadMessage is sent to browsers connected to the live reload socket
type ReloadMessage struct {
	Command   string   `json:"command"`
	Paths     []string `json:"paths,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// LiveReloadHub fans reload messages out to connected browsers
type LiveReloadHub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

// NewLiveReloadHub creates an empty hub
func NewLiveReloadHub(logger *zap.Logger) *LiveReloadHub {
	return &LiveReloadHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler upgrades the request and keeps the connection registered until
// the browser goes away
func (h *LiveReloadHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("Live reload upgrade failed", zap.Error(err))
			return
		}

		h.mu.Lock()
		h.clients[conn] = struct{}{}
		total := len(h.clients)
		h.mu.Unlock()
		h.logger.Debug("Live reload client connected", zap.Int("total", total))

		if err := h.write(conn, ReloadMessage{Command: "hello", Timestamp: time.Now().UnixMilli()}); err != nil {
			h.remove(conn)
			return
		}

		// the browser never sends anything; a read error means it left
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}
}

// TriggerReload tells every connected browser to reload
func (h *LiveReloadHub) TriggerReload(paths []string) {
	msg := ReloadMessage{Command: "reload", Paths: paths, Timestamp: time.Now().UnixMilli()}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := h.write(c, msg); err != nil {
			h.logger.Debug("Dropping live reload client", zap.Error(err))
			h.remove(c)
		}
	}
}

// Clients returns the number of connected browsers
func (h *LiveReloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every browser
func (h *LiveReloadHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

func (h *LiveReloadHub) write(c *websocket.Conn, msg ReloadMessage) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(time.Second))
	return c.WriteJSON(msg)
}

func (h *LiveReloadHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.Close()
	}
	h.mu.Unlock()
}
