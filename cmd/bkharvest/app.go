package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/bkharvest/harvester/config"
	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/infrastructure/bk"
	"github.com/bkharvest/harvester/internal/infrastructure/csvstore"
	"github.com/bkharvest/harvester/internal/infrastructure/postgres"
	"github.com/bkharvest/harvester/internal/infrastructure/sqlite"
	"github.com/bkharvest/harvester/internal/usecase"
)

func initSlog(environment string) {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

// app is the wired harvester shared by the CLI and the API server.
type app struct {
	client  *bk.Client
	files   *csvstore.Store
	rows    domain.RowStore
	harvest *usecase.HarvestService
}

// newApp wires the upstream client, the CSV store and, when withDB is set,
// the configured database. items may be nil.
func newApp(ctx context.Context, cfg *config.Config, withDB bool, items domain.ItemCache) (*app, error) {
	client := bk.NewClient(bk.ClientConfig{
		GatewayURL:        cfg.Upstream.GatewayURL,
		SanityURL:         cfg.Upstream.SanityURL,
		Timeout:           cfg.Upstream.Timeout,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		UserAgent:         cfg.Upstream.UserAgent,
	})
	files := csvstore.New(cfg.Harvest.OutputDir)

	a := &app{client: client, files: files}

	var uploader usecase.Uploader
	if withDB {
		rows, err := openRowStore(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.rows = rows
		uploader = usecase.NewUploadService(files, rows, cfg.Database.BatchSize)
	}

	a.harvest = usecase.NewHarvestService(client, files, uploader, items, usecase.HarvestServiceConfig{
		Concurrency:   cfg.Harvest.Concurrency,
		MenuBatchSize: cfg.Harvest.MenuBatchSize,
		SweepStep:     cfg.Harvest.SweepStep,
	})

	slog.Debug("harvester ready",
		"output_dir", files.Dir(),
		"concurrency", cfg.Harvest.Concurrency,
		"database", withDB,
	)
	return a, nil
}

func (a *app) Close() {
	if a.rows == nil {
		return
	}
	if err := a.rows.Close(); err != nil {
		slog.Warn("failed to close database", "err", err)
	}
}

type schemaStore interface {
	domain.RowStore
	EnsureSchema(ctx context.Context) error
}

// openRowStore connects to the configured database and creates the harvest
// tables if needed.
func openRowStore(ctx context.Context, cfg config.DatabaseConfig) (domain.RowStore, error) {
	var (
		store schemaStore
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		store, err = postgres.Open(ctx, cfg.DSN, 4)
	case "sqlite":
		store, err = sqlite.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	slog.Info("database connected", "driver", cfg.Driver)
	return store, nil
}
