package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptodash/internal/broadcast"
	"cryptodash/internal/cache"
	"cryptodash/internal/chat"
	"cryptodash/internal/config"
	"cryptodash/internal/dashboard"
	"cryptodash/internal/gateway"
	"cryptodash/internal/handlers"
	"cryptodash/internal/instrumentation"
	"cryptodash/internal/llm"
	"cryptodash/internal/prompts"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("dashboard_service_starting",
		"version", version,
		"port", cfg.Port,
		"model", cfg.Model,
		"refresh_interval_sec", cfg.RefreshIntervalSec,
		"flash_window_ms", cfg.FlashWindowMS,
		"redis_enabled", cfg.RedisEnabled(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalogue, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		logger.Error("failed to load prompts", "path", cfg.PromptsFile, "error", err)
		os.Exit(1)
	}

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)
	logger.Info("metrics_initialized")

	if cfg.PrometheusPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.PrometheusPort)
			logger.Info("metrics_server_starting", "port", cfg.PrometheusPort)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics_server_failed", "error", err)
			}
		}()
	}

	// Interface values stay nil when Redis is off so consumers can test for it.
	var detailCache gateway.DetailCache
	var publisher dashboard.SnapshotPublisher
	var store *cache.Store
	if cfg.RedisEnabled() {
		store, err = cache.New(cfg.RedisURL, cfg.RedisPassword, cfg.CacheTTL, logger)
		if err != nil {
			logger.Error("failed to create redis cache", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		detailCache = store
		publisher = store
		logger.Info("redis_cache_initialized", "ttl_sec", cfg.CacheTTLSec)
	}

	client, err := llm.New(ctx, cfg.APIKey, cfg.Model, logger)
	if err != nil {
		logger.Error("failed to create model client", "error", err)
		os.Exit(1)
	}

	gw, err := gateway.New(client, catalogue, detailCache, logger, metrics)
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub()

	dash := dashboard.New(dashboard.Config{
		RefreshInterval: cfg.RefreshInterval,
		FlashWindow:     cfg.FlashWindow,
	}, gw, gw, publisher, hub, logger, metrics)

	panel := chat.NewPanel(client, catalogue, hub, logger, metrics)

	mcpHandler, err := handlers.NewMCPInvokeHandler(dash, version, logger)
	if err != nil {
		logger.Error("failed to create mcp handler", "error", err)
		os.Exit(1)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Dashboard:       dash,
		Hub:             hub,
		Chat:            panel,
		MCP:             mcpHandler,
		Timeout:         cfg.Timeout(),
		ReadoutInterval: cfg.ReadoutInterval,
		Logger:          logger,
		Metrics:         metrics,
	})

	if store != nil {
		previous, err := store.LatestSnapshot(ctx)
		switch {
		case err != nil:
			logger.Warn("baseline_load_failed", "error", err)
		case previous != nil:
			dash.SeedBaseline(*previous)
		}
	}

	dash.Start(ctx)

	// No WriteTimeout: the event, websocket and chat streams are long-lived.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("dashboard_server_listening", "port", cfg.Port, "status", "healthy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("shutdown_signal_received", "signal", sig.String())

	// Cancelling the base context ends open streams so Shutdown can drain.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	dash.Stop()

	logger.Info("dashboard_service_stopped")
}
