package app

import (
	"context"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	router "longpollchat/internal/app/adapters/http"
	"longpollchat/internal/app/adapters/http/handlers"
	"longpollchat/internal/app/adapters/metrics"
	"longpollchat/internal/app/domain/channel"
	"longpollchat/internal/app/infrastructure/config"
	"longpollchat/internal/app/infrastructure/storage"
	"longpollchat/internal/app/infrastructure/timers"
	"longpollchat/pkg/logger"
	"os"
	"os/signal"
	"syscall"
)

// New runs the chat server until SIGINT or SIGTERM. Startup and serve
// failures are fatal.
func New(configPath string) {
	manager, err := config.New(configPath)
	if err != nil {
		logger.New(logger.Options{}).Fatal("Error loading config", err, slog.String("path", configPath))
	}
	cfg := manager.Get()

	log := logger.New(logger.Options{File: cfg.App.LogFile})
	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	ch := channel.New(logger.NewComponentLogger(log, "channel"),
		channel.WithBacklog(cfg.Channel.Backlog),
		channel.WithMaxNickLength(cfg.Channel.MaxNickLength),
		channel.WithSessionTimeout(cfg.Channel.SessionTimeout),
		channel.WithCallbackTimeout(cfg.Channel.CallbackTimeout),
		channel.WithSweepInterval(cfg.Channel.SweepInterval),
	)

	t := timers.New(logger.NewComponentLogger(log, "timers"))
	ch.Start(t)

	prometheus.MustRegister(metrics.ChannelCollectors(ch.Stats)...)

	limiter := storage.NewSendLimiter(cfg.Limiter.Requests, cfg.Limiter.Per, cfg.Channel.SessionTimeout)
	h := handlers.New(logger.NewComponentLogger(log, "http"), ch, limiter)

	r := router.NewRouter(log, manager, h)
	// parked long polls are resolved before the server waits for them
	r.OnShutdown(ch.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Chat server started",
		slog.String("addr", cfg.App.Addr),
		slog.Int("backlog", cfg.Channel.Backlog),
		slog.Duration("session_timeout", cfg.Channel.SessionTimeout),
	)

	err = r.Run(ctx)
	ch.Close()
	t.Stop()
	if err != nil {
		log.Fatal("HTTP server failed", err, slog.String("addr", cfg.App.Addr))
	}

	log.Info("Chat server stopped")
}
