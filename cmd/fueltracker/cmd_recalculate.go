package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func recalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Recalculate fuel economy of all vehicles",
		Long:  "Recomputes driven distance, consumption and cost per km of every refueling record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := newGarage(s, logger).RecalculateAll(ctx)
			if err != nil {
				return fmt.Errorf("recalculating: %w", err)
			}

			logger.Info().Int("vehicles", n).Msg("recalculation completed")
			return nil
		},
	}
}
