package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/webkeep/api"
	"github.com/use-agent/webkeep/cache"
	"github.com/use-agent/webkeep/metrics"
	"github.com/use-agent/webkeep/models"
	"github.com/use-agent/webkeep/webhook"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and form UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	slog.Info("webkeep starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"base_dir", cfg.Store.BaseDir,
		"multi_engine", cfg.Fetch.MultiEngine,
	)

	// ── 1. Build components ─────────────────────────────────────────
	if err := a.build(); err != nil {
		return err
	}
	metrics.Init()

	jobs := cache.New[*models.BatchJob](cfg.Batch.MaxJobs, cfg.Batch.JobTTL)
	defer jobs.Stop()

	// ── 2. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(api.Services{
		Archiver:     a.archiver,
		Destinations: a.store,
		Jobs:         jobs,
		Notifier:     webhook.New(nil),
	}, cfg, time.Now())

	// ── 3. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("webkeep stopped")
	return nil
}
