package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"longpollchat/internal/app/domain/channel"
)

var (
	// RequestsTotal - HTTP requests per route and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests per route and status code",
		},
		[]string{"route", "code"},
	)

	// RequestDuration - request latency, for /recv the parked time included.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latency per route, long polls included",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2.5, 14),
		},
		[]string{"route"},
	)

	// MessagesSent - chat messages accepted through /send.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of chat messages accepted from clients",
	})

	// SendRejected - refused sends per reason.
	SendRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_send_rejected_total",
			Help: "Total number of rejected sends per reason",
		},
		[]string{"reason"},
	)

	// Joins - join attempts per result.
	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_joins_total",
			Help: "Total number of join attempts per result",
		},
		[]string{"result"},
	)

	// StreamConnections - open websocket subscriptions.
	StreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_stream_connections",
		Help: "Number of open websocket stream subscriptions",
	})
)

// ChannelCollectors exposes channel state read at scrape time.
func ChannelCollectors(stats func() channel.Stats) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_sessions",
			Help: "Number of live sessions",
		}, func() float64 { return float64(stats().Sessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_pending_waits",
			Help: "Number of parked long polls",
		}, func() float64 { return float64(stats().Waits) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_backlog_messages",
			Help: "Number of messages kept in the backlog",
		}, func() float64 { return float64(stats().Backlog) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Total number of messages appended, join and part included",
		}, func() float64 { return float64(stats().Appended) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "chat_waits_timed_out_total",
			Help: "Total number of long polls resolved empty by timeout",
		}, func() float64 { return float64(stats().TimedOut) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "chat_sessions_expired_total",
			Help: "Total number of sessions destroyed for inactivity",
		}, func() float64 { return float64(stats().Expired) }),
	}
}
