package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-tracker/internal/economy"
	"github.com/andygrunwald/fuel-tracker/internal/garage"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

func vehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Manage vehicles",
	}
	cmd.AddCommand(vehicleListCmd(), vehicleAddCmd(), vehicleDeleteCmd(), vehicleSummaryCmd())
	return cmd
}

func vehicleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all vehicles",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			vehicles, err := newGarage(s, logger).Vehicles(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tNAME\tTYPE\tFUEL\n")
			for _, v := range vehicles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Type, v.DefaultFuelType)
			}
			return w.Flush()
		},
	}
}

func vehicleAddCmd() *cobra.Command {
	var (
		name        string
		vehicleType string
		fuelType    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			var in garage.VehicleInput
			in.Name = name
			if err := in.Type.UnmarshalText([]byte(vehicleType)); err != nil {
				return err
			}
			if err := in.DefaultFuelType.UnmarshalText([]byte(fuelType)); err != nil {
				return err
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := newGarage(s, logger).CreateVehicle(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Vehicle name")
	cmd.Flags().StringVar(&vehicleType, "type", models.DefaultVehicleType.String(), "Vehicle type (car, motorcycle)")
	cmd.Flags().StringVar(&fuelType, "fuel-type", models.DefaultFuelType.Code(), "Default fuel type (gas92, gas95, gas98, diesel)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func vehicleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vehicle-id>",
		Short: "Delete a vehicle and all its refueling records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing vehicle id: %w", err)
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			return newGarage(s, logger).DeleteVehicle(ctx, id)
		},
	}
}

func vehicleSummaryCmd() *cobra.Command {
	var sinceStr string

	cmd := &cobra.Command{
		Use:   "summary <vehicle-id>",
		Short: "Show fuel economy statistics of a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing vehicle id: %w", err)
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := newGarage(s, logger).Records(ctx, id)
			if err != nil {
				return err
			}
			if sinceStr != "" {
				since, err := time.Parse(models.DateLayout, sinceStr)
				if err != nil {
					return fmt.Errorf("parsing --since: %w", err)
				}
				records = economy.Since(records, since)
			}

			sum := economy.Summarize(records)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Records:\t%d\n", sum.Records)
			fmt.Fprintf(w, "Odometer:\t%.1f km\n", sum.CurrentOdometer)
			fmt.Fprintf(w, "Distance:\t%.1f km\n", sum.TotalDistance)
			fmt.Fprintf(w, "Fuel:\t%.2f L\n", sum.TotalFuel)
			fmt.Fprintf(w, "Cost:\t%.0f\n", sum.TotalCost)
			fmt.Fprintf(w, "Consumption:\t%.2f km/L (min %.2f, max %.2f)\n",
				sum.AverageConsumption, sum.MinConsumption, sum.MaxConsumption)
			fmt.Fprintln(w)

			fmt.Fprintf(w, "MONTH\tRECORDS\tDISTANCE\tFUEL\tCOST\tKM/L\n")
			for _, p := range economy.Monthly(records) {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%.2f\t%.0f\t%.2f\n",
					p.Month.Format("2006-01"), p.Records, p.Distance, p.Fuel, p.Cost, p.AverageConsumption)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sinceStr, "since", "", "Only include records on or after this date (YYYY-MM-DD)")

	return cmd
}
