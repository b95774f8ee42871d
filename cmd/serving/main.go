package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/api"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/catalog"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/clickhouse"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/telemetry"
)

func main() {
	// Initialize structured logger (JSON to stdout)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.Load()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// Load nested set definitions
	repo, err := catalog.Open(startupCtx, cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defs, err := repo.LoadSets(startupCtx)
	_ = repo.Close()
	if err != nil {
		slog.Error("failed to load nested sets", "error", err)
		os.Exit(1)
	}

	store, err := clickhouse.NewClient(clickhouse.Config{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
		Database: cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		slog.Error("failed to connect to clickhouse", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	registry, err := domain.BuildRegistry(startupCtx, defs, store)
	if err != nil {
		slog.Error("failed to build nested sets", "error", err)
		os.Exit(1)
	}
	slog.Info("nested sets loaded", "sets", len(defs))

	collector, err := telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Setup HTTP routes
	mux := http.NewServeMux()
	api.NewHandler(domain.NewService(registry, collector)).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
