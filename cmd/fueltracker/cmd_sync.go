package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a one-time price sync",
		Long:  "Fetches the price list of every configured product once and stores new prices.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			logger.Info().Int("products", len(cfg.Products)).Msg("running one-time sync")

			summary, err := newIngestService(s, nil, logger).Sync(ctx)
			if err != nil {
				return fmt.Errorf("syncing: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, inserted %d, skipped %d\n",
				summary.Fetched, summary.Inserted, summary.Skipped)
			if len(summary.Failed) > 0 {
				return fmt.Errorf("sync failed for %s", strings.Join(summary.Failed, ", "))
			}
			return nil
		},
	}
}
