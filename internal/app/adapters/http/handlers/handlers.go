package handlers

import (
	"context"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"longpollchat/internal/app/domain/channel"
	"longpollchat/internal/app/infrastructure/storage"
	"longpollchat/pkg/logger"
	"net/http"
	"strconv"
	"strings"
)

type Channel interface {
	CreateSession(nick string) (*channel.Session, error)
	Session(id string) (*channel.Session, bool)
	Append(nick string, typ channel.Type, text string) channel.Message
	Wait(ctx context.Context, since int64) ([]channel.Message, error)
	Nicks() []string
	Stats() channel.Stats
	Closed() bool
}

type Handlers struct {
	log      logger.Logger
	channel  Channel
	limiter  *storage.SendLimiter
	upgrader websocket.Upgrader
}

func New(log logger.Logger, ch Channel, limiter *storage.SendLimiter) *Handlers {
	if limiter == nil {
		limiter = storage.NewSendLimiter(0, 0, 0)
	}

	return &Handlers{
		log:     log,
		channel: ch,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// param reads key from the query string, falling back to the form body.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return v
	}
	return c.PostForm(key)
}

// parseSince reads the leading integer of since, so "1.5" and "12abc" parse
// as 1 and 12. It reports false when since is missing or has no leading digits.
func parseSince(c *gin.Context) (int64, bool) {
	raw := strings.TrimLeft(param(c, "since"), " \t\r\n")

	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	since, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return since, true
}

func (h *Handlers) Health(c *gin.Context) {
	if h.channel.Closed() {
		c.String(http.StatusServiceUnavailable, "closing")
		return
	}
	c.String(http.StatusOK, "ok")
}
