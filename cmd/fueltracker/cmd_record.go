package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-tracker/internal/garage"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage refueling records",
	}
	cmd.AddCommand(recordListCmd(), recordAddCmd(), recordEditCmd(), recordDeleteCmd(), recordDraftCmd())
	return cmd
}

// recordFlags are shared by "record add" and "record edit".
type recordFlags struct {
	date       string
	odometer   float64
	fuelAmount float64
	cost       float64
	fuelType   string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Refueling date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().Float64Var(&f.odometer, "odometer", 0, "Odometer reading in km")
	cmd.Flags().Float64Var(&f.fuelAmount, "litres", 0, "Fuel amount in litres")
	cmd.Flags().Float64Var(&f.cost, "cost", 0, "Total cost")
	cmd.Flags().StringVar(&f.fuelType, "fuel-type", "", "Fuel type (defaults to the vehicle's default)")
	_ = cmd.MarkFlagRequired("odometer")
	_ = cmd.MarkFlagRequired("litres")
	_ = cmd.MarkFlagRequired("cost")
}

func (f *recordFlags) input(fallback models.FuelType) (garage.RecordInput, error) {
	in := garage.RecordInput{
		Date:       models.DateOf(time.Now()),
		Odometer:   f.odometer,
		FuelAmount: f.fuelAmount,
		Cost:       f.cost,
		FuelType:   fallback,
	}
	if f.date != "" {
		d, err := time.Parse(models.DateLayout, f.date)
		if err != nil {
			return in, fmt.Errorf("parsing --date: %w", err)
		}
		in.Date = d
	}
	if f.fuelType != "" {
		if err := in.FuelType.UnmarshalText([]byte(f.fuelType)); err != nil {
			return in, err
		}
	}
	return in, nil
}

func recordListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <vehicle-id>",
		Short: "List the refueling records of a vehicle",
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

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tDATE\tODOMETER\tLITRES\tCOST\tFUEL\tDISTANCE\tKM/L\tCOST/KM\n")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%.2f\t%.0f\t%s\t%.1f\t%.2f\t%.2f\n",
					r.ID, r.Date.Format(models.DateLayout), r.Odometer, r.FuelAmount, r.Cost, r.FuelType,
					r.DrivenDistance, r.AverageConsumption, r.CostPerDistance)
			}
			return w.Flush()
		},
	}
}

func recordAddCmd() *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "add <vehicle-id>",
		Short: "Add a refueling record",
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

			g := newGarage(s, logger)
			v, err := g.Vehicle(ctx, id)
			if err != nil {
				return err
			}
			in, err := flags.input(v.DefaultFuelType)
			if err != nil {
				return err
			}

			r, err := g.AddRecord(ctx, id, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func recordEditCmd() *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "edit <record-id>",
		Short: "Edit a refueling record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing record id: %w", err)
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			current, err := s.GetRecord(ctx, id)
			if err != nil {
				return err
			}
			in, err := flags.input(current.FuelType)
			if err != nil {
				return err
			}
			if flags.date == "" {
				in.Date = current.Date
			}

			_, err = newGarage(s, logger).EditRecord(ctx, id, in)
			return err
		},
	}
	flags.register(cmd)

	return cmd
}

func recordDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a refueling record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing record id: %w", err)
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			return newGarage(s, logger).DeleteRecord(ctx, id)
		},
	}
}

func recordDraftCmd() *cobra.Command {
	var (
		dateStr string
		litres  float64
	)

	cmd := &cobra.Command{
		Use:   "draft <vehicle-id>",
		Short: "Pre-fill a refueling with the estimated cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing vehicle id: %w", err)
			}
			date := models.DateOf(time.Now())
			if dateStr != "" {
				if date, err = time.Parse(models.DateLayout, dateStr); err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
			}

			s, err := openStore(ctx, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := newGarage(s, logger).Draft(ctx, id, date, litres)
			if err != nil {
				return err
			}

			cost := "unknown"
			if d.CostEstimated {
				cost = fmt.Sprintf("%.0f", d.Cost)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "date %s, fuel %s, %.2f L, estimated cost %s\n",
				d.Date.Format(models.DateLayout), d.FuelType, d.FuelAmount, cost)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "Refueling date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().Float64Var(&litres, "litres", 0, "Fuel amount in litres")

	return cmd
}
