package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

func pricesCmd() *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Show current and upcoming prices",
		Long:  "Prints the price in effect on a date and the next announced change for every fuel type.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			asOf := models.DateOf(time.Now())
			if dateStr != "" {
				parsed, err := time.Parse(models.DateLayout, dateStr)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
				asOf = parsed
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			board, err := newResolver(s, logger).Board(ctx, asOf)
			if err != nil {
				return fmt.Errorf("loading prices: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "FUEL\tPRODUCT\tPRICE\tSINCE\tUPCOMING\tFROM\tCHANGE\n")
			for _, e := range board {
				price, since, upcoming, from, change := "-", "-", "-", "-", "-"
				if e.Price != nil {
					price = e.Price.StringFixed(1)
					since = e.EffectiveDate.Format(models.DateLayout)
				}
				if e.Upcoming != nil {
					upcoming = e.Upcoming.StringFixed(1)
					from = e.UpcomingDate.Format(models.DateLayout)
				}
				if e.Difference != nil {
					change = e.Difference.StringFixed(1)
					if e.Difference.IsPositive() {
						change = "+" + change
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.FuelType, e.ProductName, price, since, upcoming, from, change)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "Date (YYYY-MM-DD, defaults to today)")
	cmd.AddCommand(pricesHistoryCmd())

	return cmd
}

func pricesHistoryCmd() *cobra.Command {
	var (
		fuelType string
		fromStr  string
		toStr    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the price history of a fuel type",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			var ft models.FuelType
			if err := ft.UnmarshalText([]byte(fuelType)); err != nil {
				return err
			}
			to := models.DateOf(time.Now())
			if toStr != "" {
				parsed, err := time.Parse(models.DateLayout, toStr)
				if err != nil {
					return fmt.Errorf("parsing --to: %w", err)
				}
				to = parsed
			}
			from := to.AddDate(-1, 0, 0)
			if fromStr != "" {
				parsed, err := time.Parse(models.DateLayout, fromStr)
				if err != nil {
					return fmt.Errorf("parsing --from: %w", err)
				}
				from = parsed
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			prices, err := newResolver(s, logger).History(ctx, ft, from, to)
			if err != nil {
				return fmt.Errorf("loading price history: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "DATE\tPRODUCT\tPRICE\n")
			for _, p := range prices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.EffectiveDate.Format(models.DateLayout), p.ProductName, p.Price.StringFixed(1))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&fuelType, "fuel-type", models.DefaultFuelType.Code(), "Fuel type (gas92, gas95, gas98, diesel)")
	cmd.Flags().StringVar(&fromStr, "from", "", "First date (YYYY-MM-DD, defaults to one year before --to)")
	cmd.Flags().StringVar(&toStr, "to", "", "Last date (YYYY-MM-DD, defaults to today)")

	return cmd
}
