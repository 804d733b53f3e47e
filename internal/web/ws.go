package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jaminalder/atetria/internal/app"
	"github.com/jaminalder/atetria/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Commands are single words
	maxMessageSize = 512
)

// frame is the JSON envelope of every server-to-client message. Type is an
// app.UpdateKind or "error".
type frame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// wsConn plays one game over a websocket: text frames carrying a command
// name come in, snapshots go out.
type wsConn struct {
	ws      *websocket.Conn
	svc     *app.Service
	id      string
	log     *zap.Logger
	replies chan frame
}

func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		writeError(w, http.StatusNotFound, app.ErrNotFound.Error())
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.log.Debug("websocket upgrade failed", zap.String("game_id", id), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()

	c := &wsConn{
		ws:      ws,
		svc:     h.svc,
		id:      id,
		log:     h.log.With(zap.String("game_id", id)),
		replies: make(chan frame, 8),
	}
	if snap, ok := h.svc.Get(id); ok {
		data, _ := json.Marshal(snap)
		c.replies <- frame{Type: string(app.UpdateBoard), Data: data}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump(ctx, updates)
	}()
	c.readPump()
	cancel()
	<-done
}

// readPump applies incoming commands until the peer goes away.
func (c *wsConn) readPump() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		cmd, err := domain.ParseCommand(strings.TrimSpace(string(msg)))
		if err == nil {
			// Success is reported by the board update the command triggers.
			_, err = c.svc.Command(c.id, cmd)
		}
		if err != nil {
			c.reply(frame{Type: "error", Error: err.Error()})
		}
	}
}

// reply queues f for the writer, dropping it if the writer is behind.
func (c *wsConn) reply(f frame) {
	select {
	case c.replies <- f:
	default:
	}
}

// writePump is the only writer on the connection.
func (c *wsConn) writePump(ctx context.Context, updates <-chan app.Update) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(frame{Type: string(u.Kind), Data: u.Data}); err != nil {
				return
			}
		case f := <-c.replies:
			if err := c.write(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *wsConn) write(f frame) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		c.log.Debug("websocket write error", zap.Error(err))
		return err
	}
	return nil
}
