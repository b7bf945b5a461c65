package handlers

import (
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"longpollchat/internal/app/adapters/metrics"
	"longpollchat/internal/app/domain/channel"
	"net/http"
)

func (h *Handlers) Join(c *gin.Context) {
	nick := param(c, "nick")

	s, err := h.channel.CreateSession(nick)
	if err != nil {
		result, text, status := "invalid", "Bad nick.", http.StatusBadRequest
		switch {
		case errors.Is(err, channel.ErrNickInUse):
			result, text = "in_use", "Nick in use"
		case errors.Is(err, channel.ErrClosed):
			result, text, status = "closed", "Server is shutting down", http.StatusServiceUnavailable
		}

		metrics.Joins.With(prometheus.Labels{"result": result}).Inc()
		h.log.Debug("Join rejected", slog.String("nick", nick), slog.String("reason", err.Error()))
		c.JSON(status, gin.H{"error": text})
		return
	}

	h.channel.Append(s.Nick(), channel.TypeJoin, "")
	metrics.Joins.With(prometheus.Labels{"result": "ok"}).Inc()

	c.JSON(http.StatusOK, gin.H{"id": s.ID(), "nick": s.Nick()})
}

func (h *Handlers) Part(c *gin.Context) {
	id := param(c, "id")

	if s, ok := h.channel.Session(id); ok {
		s.Destroy()
		h.limiter.Forget(id)
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handlers) Who(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nicks": h.channel.Nicks()})
}
