package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// stream pushes the current state and then every state change to the client
// until either side goes away.
func (h *Handler) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, updates := h.sync.Subscribe()
	defer h.sync.Unsubscribe(id)

	if h.metrics != nil {
		h.metrics.StreamClients.Inc()
		defer h.metrics.StreamClients.Dec()
	}
	slog.Debug("stream client connected", "subscriber", id, "remote", c.ClientIP())

	if err := writeState(conn, h.sync.State()); err != nil {
		return
	}

	// Clients never send anything; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			slog.Debug("stream client disconnected", "subscriber", id)
			return
		case st, ok := <-updates:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := writeState(conn, st); err != nil {
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, st models.SyncState) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(st)
}
