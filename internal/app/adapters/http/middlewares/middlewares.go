package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"longpollchat/internal/app/adapters/metrics"
	"strconv"
	"time"
)

type Middlewares struct{}

func New() *Middlewares {
	return &Middlewares{}
}

func (m *Middlewares) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RequestsTotal.With(prometheus.Labels{"route": route, "code": strconv.Itoa(c.Writer.Status())}).Inc()
		metrics.RequestDuration.With(prometheus.Labels{"route": route}).Observe(time.Since(start).Seconds())
	}
}
