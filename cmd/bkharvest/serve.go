package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkharvest/harvester/config"
	httpDelivery "github.com/bkharvest/harvester/internal/delivery/http"
	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/infrastructure/cache"
)

var serveDatabase bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lookup API and on-demand menu refreshes.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDatabase, "database", false, "connect the configured database so refreshes can upload")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	initSlog(cfg.Server.Environment)

	ctx := cmd.Context()

	items := cache.NewMemoryCache[domain.ItemInfo](cfg.Cache.Size, cfg.Cache.TTL)

	a, err := newApp(ctx, cfg, serveDatabase, items)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := httpDelivery.NewHandler(a.client, a.harvest, items, httpDelivery.HandlerConfig{
		Jobs:    ctx,
		Workers: cfg.Harvest.Concurrency,
	})
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "environment", cfg.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
