package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/catalog"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/clickhouse"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/exitcode"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/sampling"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/storage"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/telemetry"
)

func main() {
	// Configure the global logger
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	// Parse CLI flags
	pointsPath := flag.String("points", "", "CSV file of particles: id,time,depth,lat,lon")
	varsStr := flag.String("variables", "", "Comma-separated nested set names to sample")
	dateStr := flag.String("date", time.Now().Format("2006-01-02"), "Report date (YYYY-MM-DD)")
	runID := flag.String("run-id", "", "Run identifier (UUIDv7 from orchestration)")
	flag.Parse()

	// Parse and validate flags
	vars, err := model.ParseVariables(*varsStr)
	if err != nil {
		slog.Error("invalid variables", "error", err)
		fmt.Fprintf(os.Stderr, "Usage: %v\n", err)
		os.Exit(exitcode.ConfigError)
	}
	date, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		slog.Error("invalid date format", "date", *dateStr, "error", err)
		fmt.Fprintf(os.Stderr, "Usage: date must be in YYYY-MM-DD format\n")
		os.Exit(exitcode.ConfigError)
	}
	if err := model.RunID(*runID).Validate(); err != nil {
		slog.Error("invalid run-id", "error", err)
		fmt.Fprintf(os.Stderr, "Usage: run-id must be a UUIDv7\n")
		os.Exit(exitcode.ConfigError)
	}
	if *pointsPath == "" {
		slog.Error("points is required")
		fmt.Fprintf(os.Stderr, "Usage: points must name a CSV file\n")
		os.Exit(exitcode.ConfigError)
	}

	// Ensure environment variables are loaded
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	// Load configuration
	cfg := config.Load()
	storageCfg, err := config.LoadStorage()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitcode.ConfigError)
	}

	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := os.Open(*pointsPath)
	if err != nil {
		slog.Error("failed to open points", "path", *pointsPath, "error", err)
		os.Exit(exitcode.DataError)
	}
	particles, err := sampling.ReadParticles(f)
	_ = f.Close()
	if err != nil {
		slog.Error("failed to read points", "path", *pointsPath, "error", err)
		os.Exit(exitcode.DataError)
	}

	repo, err := catalog.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(exitcode.CatalogError)
	}
	defs, err := repo.LoadSets(ctx)
	_ = repo.Close()
	if err != nil {
		slog.Error("failed to load nested sets", "error", err)
		os.Exit(exitcode.CatalogError)
	}

	store, err := clickhouse.NewClient(clickhouse.Config{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
		Database: cfg.ClickHouseDatabase,
	}, slog.Default())
	if err != nil {
		slog.Error("failed to connect to clickhouse", "error", err)
		os.Exit(exitcode.ConfigError)
	}
	defer store.Close()

	registry, err := domain.BuildRegistry(ctx, defs, store)
	if err != nil {
		slog.Error("failed to build nested sets", "error", err)
		os.Exit(exitcode.CatalogError)
	}

	// Initialize MinIO client
	minioClient, err := storage.NewMinIOClient(ctx, storage.MinIOConfig{
		Endpoint:  storageCfg.MinIOEndpoint,
		AccessKey: storageCfg.MinIOAccessKey,
		SecretKey: storageCfg.MinIOSecretKey,
		Bucket:    storageCfg.MinIOBucket,
		UseSSL:    storageCfg.MinIOUseSSL,
	})
	if err != nil {
		slog.Error("failed to initialize minio client", "error", err)
		os.Exit(exitcode.StorageError)
	}

	req := sampling.Request{Particles: particles, Variables: vars, Date: date}
	sampler := domain.NewService(registry, telemetry.Noop())

	if err := run(ctx, req, model.RunID(*runID), sampler, minioClient); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(exitCodeFor(err))
	}

	slog.Info("shutdown complete")
}

func run(ctx context.Context, req sampling.Request, runID model.RunID, sampler sampling.Sampler, objectStorage sampling.ObjectStorage) error {
	_, err := sampling.NewService(sampler, objectStorage).Run(ctx, req, runID)
	return err
}

// exitCodeFor maps a run error to an exit code.
func exitCodeFor(err error) int {
	var unknown *domain.ErrUnknownVariable
	switch {
	case errors.As(err, &unknown):
		return exitcode.ConfigError
	case errors.Is(err, sampling.ErrStore):
		return exitcode.StorageError
	case errors.Is(err, nested.ErrInvalidPoint):
		return exitcode.DataError
	default:
		return exitcode.SamplingError
	}
}
