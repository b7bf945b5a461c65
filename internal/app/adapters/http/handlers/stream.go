package handlers

import (
	"context"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"log/slog"
	"longpollchat/internal/app/adapters/metrics"
	"net/http"
	"time"
)

const streamWriteWait = 10 * time.Second

// Stream pushes messages over a websocket, running the recv loop server side:
// every delivered batch advances since.
func (h *Handlers) Stream(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Websocket upgrade required"})
		return
	}

	since, _ := parseSince(c)
	id := param(c, "id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// clients never write; reading only detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		messages, err := h.channel.Wait(ctx, since)
		if err != nil {
			return
		}

		if s, ok := h.channel.Session(id); ok {
			s.Poke()
		}

		if len(messages) == 0 {
			if h.channel.Closed() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			continue
		}

		for _, m := range messages {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				h.log.Debug("Stream write failed", slog.String("error", err.Error()))
				return
			}
			since = m.Timestamp
		}
	}
}
