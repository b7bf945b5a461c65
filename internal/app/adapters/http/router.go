package http

import (
	"context"
	"errors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"longpollchat/internal/app/adapters/http/handlers"
	"longpollchat/internal/app/adapters/http/middlewares"
	"longpollchat/internal/app/infrastructure/config"
	"longpollchat/pkg/logger"
	"net/http"
	"time"
)

const adminUser = "admin"

type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log        logger.Logger
	manager    *config.Manager
	onShutdown []func()
}

func NewRouter(log logger.Logger, manager *config.Manager, h *handlers.Handlers) *Router {
	r := &Router{
		router:      gin.Default(),
		handlers:    h,
		middlewares: middlewares.New(),
		log:         log,
		manager:     manager,
	}
	cfg := manager.Get()

	r.router.Use(r.middlewares.Metrics())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r.router.Handle(method, "/join", r.handlers.Join)
		r.router.Handle(method, "/part", r.handlers.Part)
		r.router.Handle(method, "/send", r.handlers.Send)
	}
	r.router.GET("/recv", r.handlers.Recv)
	r.router.GET("/who", r.handlers.Who)
	r.router.GET("/stream", r.handlers.Stream)
	r.router.GET("/healthz", r.handlers.Health)

	if cfg.App.AuthToken == "" {
		log.Warn("app.auth_token is empty, /metrics, /stats and pprof are disabled")
		return r
	}

	admin := r.router.Group("/", gin.BasicAuthForRealm(gin.Accounts{
		adminUser: cfg.App.AuthToken,
	}, "admin"))
	pprof.Register(admin)
	admin.GET("/metrics", gin.WrapH(promhttp.Handler()))
	admin.GET("/stats", r.handlers.Stats)

	return r
}

func (r *Router) Handler() http.Handler {
	return r.router
}

// OnShutdown registers fn to run as soon as shutdown begins, before the
// server waits for in-flight requests.
func (r *Router) OnShutdown(fn func()) {
	r.onShutdown = append(r.onShutdown, fn)
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (r *Router) Run(ctx context.Context) error {
	cfg := r.manager.Get()

	srv := r.newServer(cfg.App.Addr, r.router, cfg)
	for _, fn := range r.onShutdown {
		srv.RegisterOnShutdown(fn)
	}

	errCh := make(chan error, 1)
	go func() {
		r.log.Info("HTTP server listening", "addr", cfg.App.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	r.log.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (r *Router) newServer(addr string, handler http.Handler, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Channel.CallbackTimeout + 10*time.Second, // long polls stay open up to callback_timeout
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}
