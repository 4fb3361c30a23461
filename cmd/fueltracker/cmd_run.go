package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-tracker/internal/http"
	"github.com/andygrunwald/fuel-tracker/internal/scheduler"
)

func runCmd() *cobra.Command {
	var syncHour int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous sync service",
		Long:  "Starts the fuel tracker with an internal scheduler that syncs prices daily at the configured hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cmd.Flags().Changed("sync-hour") {
				cfg.SyncHour = syncHour
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Str("dbDriver", cfg.Database.Driver).
				Int("syncHour", cfg.SyncHour).
				Int("products", len(cfg.Products)).
				Msg("starting fuel tracker")

			// Setup signal handling
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			metrics := http.NewMetrics(prometheus.DefaultRegisterer)
			ingestService := newIngestService(s, metrics, logger)
			sched := scheduler.New(ingestService, cfg.SyncHour, cfg.SyncInterval, logger)

			httpServer := http.NewServer(cfg.HTTPAddr, http.Dependencies{
				Ingest:    ingestService,
				Scheduler: sched,
				Prices:    newResolver(s, logger),
				Store:     s,
				Metrics:   metrics,
				Gatherer:  prometheus.DefaultGatherer,
			}, logger)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			go func() {
				if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}
			cancel()

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&syncHour, "sync-hour", cfg.SyncHour, "Hour of day (0-23) to sync prices")

	return cmd
}
