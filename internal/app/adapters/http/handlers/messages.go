package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"longpollchat/internal/app/adapters/metrics"
	"longpollchat/internal/app/domain/channel"
	"net/http"
)

// Recv answers with every message newer than since, parking the request
// until one arrives or the wait times out.
func (h *Handlers) Recv(c *gin.Context) {
	since, ok := parseSince(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Must supply since parameter"})
		return
	}

	s, hasSession := h.channel.Session(param(c, "id"))
	if hasSession {
		s.Poke()
	}

	messages, err := h.channel.Wait(c.Request.Context(), since)
	if err != nil {
		h.log.Trace("Recv abandoned by client", slog.Int64("since", since))
		c.Abort()
		return
	}

	if hasSession {
		s.Poke()
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handlers) Send(c *gin.Context) {
	text := param(c, "text")

	s, ok := h.channel.Session(param(c, "id"))
	if !ok || text == "" {
		metrics.SendRejected.With(prometheus.Labels{"reason": "no_session"}).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "No such session id"})
		return
	}

	if !h.limiter.Allow(s.ID()) {
		metrics.SendRejected.With(prometheus.Labels{"reason": "rate_limited"}).Inc()
		h.log.Debug("Send rate limited", slog.String("nick", s.Nick()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many messages"})
		return
	}

	s.Poke()
	h.channel.Append(s.Nick(), channel.TypeMsg, text)
	metrics.MessagesSent.Inc()

	c.JSON(http.StatusOK, gin.H{})
}
