package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/janisto/gemini-chat-relay/internal/http/health"
	"github.com/janisto/gemini-chat-relay/internal/http/v1/routes"
	"github.com/janisto/gemini-chat-relay/internal/http/web"
	"github.com/janisto/gemini-chat-relay/internal/platform/config"
	applog "github.com/janisto/gemini-chat-relay/internal/platform/logging"
	"github.com/janisto/gemini-chat-relay/internal/platform/metrics"
	appmiddleware "github.com/janisto/gemini-chat-relay/internal/platform/middleware"
	"github.com/janisto/gemini-chat-relay/internal/platform/respond"
	"github.com/janisto/gemini-chat-relay/internal/service/gemini"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

// maxBodyBytes limits request bodies; chat messages are short text.
const maxBodyBytes = 1 << 20

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "config load failed", err)
		os.Exit(1)
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogWarn(ctx, "ignoring log level", zap.Error(err))
	}
	for _, w := range cfg.Warnings() {
		applog.LogWarn(ctx, w)
	}

	svc := newService(ctx, cfg)

	var gatherer prometheus.Gatherer
	if cfg.Metrics() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.Register(reg)
		metrics.SetBuildInfo(Version)
		gatherer = reg
	}

	srv := newHTTPServer(cfg, newRouter(cfg, svc, gatherer))

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.String("model", cfg.Gemini.Model),
			zap.String("version", Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		os.Exit(1)
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(ctx, "server exited")
}

// newService builds the Gemini client. Without usable credentials the server still
// starts and every chat request fails with the construction error.
func newService(ctx context.Context, cfg *config.Config) gemini.Service {
	client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey,
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
	)
	if err != nil {
		if !errors.Is(err, gemini.ErrMissingAPIKey) {
			applog.LogError(ctx, "gemini client init failed", err)
		}
		return gemini.Unavailable(err)
	}
	return client
}

// newRouter assembles middleware, the chat API, the index page, health and metrics.
// A nil gatherer leaves /metrics unmounted.
func newRouter(cfg *config.Config, svc gemini.Service, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security("/api-docs"),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.AllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxBodyBytes),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	api := routes.NewAPI(router, Version)
	routes.Register(api, svc)

	router.Get("/", web.IndexHandler())
	router.Get("/health", health.Handler())
	router.Head("/health", health.Handler())
	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}
	return router
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}
