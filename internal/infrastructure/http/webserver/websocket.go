package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxFrameLength = 4096
)

// assistantRequest is a frame sent by the browser
type assistantRequest struct {
	Message string `json:"message"`
}

// assistantResponse is a frame sent to the browser. HTML is the rendered
// chat turn so the page can append it as is.
type assistantResponse struct {
	Type  string    `json:"type"`
	Turn  *ChatTurn `json:"turn,omitempty"`
	HTML  string    `json:"html,omitempty"`
	Error string    `json:"error,omitempty"`
}

var assistantUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleAssistantSocket serves the chat over a websocket. Each incoming
// message starts a new turn and cancels the one still running, so only the
// answer to the latest message is ever sent.
func (s *WebServer) handleAssistantSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := assistantUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Assistant websocket upgrade failed", zap.Error(err))
		return
	}

	s.metrics.WebSocketOpened()
	defer s.metrics.WebSocketClosed()

	c := &assistantConn{
		conn:      conn,
		server:    s,
		localizer: s.localizer(r),
		logger:    s.logger.With(zap.String("remote", r.RemoteAddr)),
	}
	c.serve(r.Context())
}

type assistantConn struct {
	conn      *websocket.Conn
	server    *WebServer
	localizer *i18n.Localizer
	logger    *zap.Logger

	writeMu sync.Mutex

	mu         sync.Mutex
	cancelTurn context.CancelFunc
	turns      sync.WaitGroup
}

func (c *assistantConn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		c.turns.Wait()
		_ = c.conn.Close()
		c.logger.Debug("Assistant websocket closed")
	}()

	c.conn.SetReadLimit(wsMaxFrameLength)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go c.keepAlive(ctx)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Assistant websocket read failed", zap.Error(err))
			}
			return
		}

		var req assistantRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = c.write(assistantResponse{Type: "error", Error: "malformed frame"})
			continue
		}
		c.startTurn(ctx, req.Message)
	}
}

// startTurn cancels the running turn and answers message in the background
func (c *assistantConn) startTurn(parent context.Context, message string) {
	c.mu.Lock()
	if c.cancelTurn != nil {
		c.cancelTurn()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancelTurn = cancel
	c.mu.Unlock()

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer cancel()

		turn, err := c.server.assistant.Reply(ctx, c.localizer, "websocket", message)
		if err != nil {
			return
		}

		var buf bytes.Buffer
		if err := c.server.renderer.Partial(&buf, "chat-turn", chatTurnView{L: c.localizer, Turn: turn}); err != nil {
			c.logger.Error("Failed to render chat turn", zap.Error(err))
			return
		}

		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := c.writeLocked(assistantResponse{Type: "turn", Turn: &turn, HTML: buf.String()}); err != nil {
			c.logger.Debug("Assistant websocket write failed", zap.Error(err))
		}
	}()
}

func (c *assistantConn) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *assistantConn) write(resp assistantResponse) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(resp)
}

func (c *assistantConn) writeLocked(resp assistantResponse) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(resp)
}
