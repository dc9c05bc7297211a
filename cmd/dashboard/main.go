package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sentinel/internal/actions"
	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/api"
	"github.com/your-org/sentinel/internal/api/ws"
	"github.com/your-org/sentinel/internal/auth"
	"github.com/your-org/sentinel/internal/backend"
	"github.com/your-org/sentinel/internal/config"
	"github.com/your-org/sentinel/internal/feed"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/internal/push"
	"github.com/your-org/sentinel/internal/reports"
	"github.com/your-org/sentinel/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting dashboard gateway", "port", cfg.Server.Port, "push", cfg.Push.Transport)

	// Backend client and service session
	client := backend.New(cfg.Backend)
	var session *auth.Session
	if cfg.Backend.Username != "" {
		session = auth.NewSession(client.Login, cfg.Backend.Username, cfg.Backend.Password, cfg.Backend.TokenRefreshSkew)
		client.SetTokenSource(session)
	}

	// The one alert store of the process
	store := alerts.NewStore()
	alertFeed := feed.New(client, store)

	// Push connection
	var transport push.Transport
	switch cfg.Push.Transport {
	case config.TransportNATS:
		transport = push.NewNATSTransport(cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.Consumer, cfg.Push.ReconnectWait)
	default:
		var tokens push.TokenSource
		if session != nil {
			tokens = session
		}
		transport = push.NewWebSocketTransport(cfg.Push.URL, tokens, cfg.Push.ReconnectWait)
	}
	// Summaries cached before a resync may count alerts that changed while
	// the push connection was down.
	reportSvc := reports.NewService(client, cfg.Reports.CacheTTL, cfg.Reports.MaxRange)
	alertFeed.OnHydrate(func(feed.HydrationReport) { reportSvc.Flush() })

	manager := push.NewManager(transport)
	if err := alertFeed.Attach(manager); err != nil {
		slog.Error("attach alert feed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connecting hydrates the store; it is retried on every reconnect.
	if err := manager.Connect(ctx); err != nil {
		slog.Error("connect push", "error", err)
		os.Exit(1)
	}

	// Clip storage is optional
	routerCfg := api.RouterConfig{
		APIKey:        cfg.Server.APIKey,
		Verifier:      auth.NewTokenVerifier(cfg.Server.JWTSecret),
		Store:         store,
		Dispatcher:    actions.NewDispatcher(client, store),
		Reports:       reportSvc,
		Backend:       client,
		Login:         client.Login,
		PushConnected: manager.Connected,
		Hydrated:      alertFeed.Hydrated,
	}
	if cfg.Clips.Endpoint != "" {
		clips, err := storage.NewClipStore(cfg.Clips)
		if err != nil {
			slog.Error("create clip store", "error", err)
			os.Exit(1)
		}
		routerCfg.Clips = clips
		routerCfg.ClipsPinger = clips
	} else {
		slog.Info("clip storage not configured; clip playback disabled")
	}

	// WebSocket hub
	hub := ws.NewHub(store)
	go hub.Run(ctx)
	routerCfg.Hub = hub

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(routerCfg)

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	manager.Disconnect()
	cancel()

	slog.Info("gateway stopped")
}
