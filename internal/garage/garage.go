// Package garage manages vehicles and their refueling records. Every
// mutation of a vehicle's history recalculates the derived economy fields of
// the whole history in the same store transaction.
package garage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuel-tracker/internal/economy"
	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// ErrInvalidInput is returned when a vehicle or record fails validation.
var ErrInvalidInput = errors.New("invalid input")

// CostEstimator pre-fills the cost of a refueling.
type CostEstimator interface {
	EstimateCost(ctx context.Context, ft models.FuelType, date time.Time, litres float64) (decimal.Decimal, bool, error)
}

// VehicleInput holds the user editable fields of a vehicle.
type VehicleInput struct {
	Name            string
	Type            models.VehicleType
	DefaultFuelType models.FuelType
}

// RecordInput holds the user editable fields of a refueling record.
type RecordInput struct {
	Date       time.Time
	Odometer   float64
	FuelAmount float64
	Cost       float64
	FuelType   models.FuelType
}

// RecordDraft is a pre-filled RecordInput for a new refueling.
type RecordDraft struct {
	RecordInput
	// CostEstimated is false when no price was available and Cost was left
	// blank.
	CostEstimated bool
}

// Service is the single entry point for changing vehicle data.
type Service struct {
	store     store.VehicleStore
	estimator CostEstimator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a garage service. estimator may be nil, in which case
// drafts never carry a cost.
func NewService(vehicles store.VehicleStore, estimator CostEstimator, logger zerolog.Logger) *Service {
	return &Service{
		store:     vehicles,
		estimator: estimator,
		logger:    logger.With().Str("component", "garage").Logger(),
		now:       time.Now,
	}
}

// Vehicles returns all vehicles.
func (s *Service) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.store.ListVehicles(ctx)
}

// Vehicle returns a single vehicle.
func (s *Service) Vehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	return s.store.GetVehicle(ctx, id)
}

// Records returns the history of a vehicle, oldest first.
func (s *Service) Records(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error) {
	if _, err := s.store.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.store.ListRecords(ctx, vehicleID)
}

// Summary returns the economy statistics of a vehicle.
func (s *Service) Summary(ctx context.Context, vehicleID uuid.UUID) (economy.Summary, error) {
	records, err := s.Records(ctx, vehicleID)
	if err != nil {
		return economy.Summary{}, err
	}
	return economy.Summarize(records), nil
}

// CreateVehicle adds a new vehicle.
func (s *Service) CreateVehicle(ctx context.Context, in VehicleInput) (models.Vehicle, error) {
	if err := in.validate(); err != nil {
		return models.Vehicle{}, err
	}
	v := models.Vehicle{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(in.Name),
		Type:            in.Type,
		DefaultFuelType: in.DefaultFuelType,
		CreatedAt:       s.now().UTC(),
	}
	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		return w.InsertVehicle(ctx, v)
	})
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("creating vehicle: %w", err)
	}
	s.logger.Info().Str("vehicle", v.ID.String()).Str("name", v.Name).Msg("vehicle created")
	return v, nil
}

// UpdateVehicle changes the editable fields of a vehicle.
func (s *Service) UpdateVehicle(ctx context.Context, id uuid.UUID, in VehicleInput) (models.Vehicle, error) {
	if err := in.validate(); err != nil {
		return models.Vehicle{}, err
	}
	var updated models.Vehicle
	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		v, err := w.GetVehicle(ctx, id)
		if err != nil {
			return err
		}
		v.Name = strings.TrimSpace(in.Name)
		v.Type = in.Type
		v.DefaultFuelType = in.DefaultFuelType
		updated = v
		return w.UpdateVehicle(ctx, v)
	})
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("updating vehicle: %w", err)
	}
	return updated, nil
}

// DeleteVehicle removes a vehicle and its whole history.
func (s *Service) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		return w.DeleteVehicle(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	s.logger.Info().Str("vehicle", id.String()).Msg("vehicle deleted")
	return nil
}

// Draft prepares a new record for vehicleID with the vehicle's default fuel
// type and, when a price is known, the estimated cost of litres.
func (s *Service) Draft(ctx context.Context, vehicleID uuid.UUID, date time.Time, litres float64) (RecordDraft, error) {
	v, err := s.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return RecordDraft{}, err
	}
	d := RecordDraft{RecordInput: RecordInput{
		Date:       date,
		FuelAmount: litres,
		FuelType:   v.DefaultFuelType,
	}}
	if s.estimator == nil || litres <= 0 {
		return d, nil
	}

	cost, ok, err := s.estimator.EstimateCost(ctx, v.DefaultFuelType, date, litres)
	if err != nil {
		// A missing estimate leaves the cost blank, it does not block the draft.
		s.logger.Warn().Err(err).Str("vehicle", vehicleID.String()).Msg("failed to estimate cost")
		return d, nil
	}
	if ok {
		d.Cost = cost.InexactFloat64()
		d.CostEstimated = true
	}
	return d, nil
}

// AddRecord appends a refueling to the history of vehicleID.
func (s *Service) AddRecord(ctx context.Context, vehicleID uuid.UUID, in RecordInput) (models.RefuelingRecord, error) {
	if err := in.validate(); err != nil {
		return models.RefuelingRecord{}, err
	}
	rec := models.RefuelingRecord{
		ID:        uuid.New(),
		VehicleID: vehicleID,
		CreatedAt: s.now().UTC(),
	}
	in.apply(&rec)

	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		if _, err := w.GetVehicle(ctx, vehicleID); err != nil {
			return err
		}
		existing, err := w.ListRecords(ctx, vehicleID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.Seq >= rec.Seq {
				rec.Seq = r.Seq + 1
			}
		}
		if rec.Seq == 0 {
			rec.Seq = 1
		}
		if err := w.InsertRecord(ctx, rec); err != nil {
			return err
		}
		return recalculate(ctx, w, vehicleID, &rec)
	})
	if err != nil {
		return models.RefuelingRecord{}, fmt.Errorf("adding record: %w", err)
	}
	s.logger.Info().
		Str("vehicle", vehicleID.String()).
		Str("record", rec.ID.String()).
		Float64("odometer", rec.Odometer).
		Msg("record added")
	return rec, nil
}

// EditRecord replaces the editable fields of a record.
func (s *Service) EditRecord(ctx context.Context, id uuid.UUID, in RecordInput) (models.RefuelingRecord, error) {
	if err := in.validate(); err != nil {
		return models.RefuelingRecord{}, err
	}
	var rec models.RefuelingRecord
	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		var err error
		rec, err = w.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		in.apply(&rec)
		if err := w.UpdateRecord(ctx, rec); err != nil {
			return err
		}
		return recalculate(ctx, w, rec.VehicleID, &rec)
	})
	if err != nil {
		return models.RefuelingRecord{}, fmt.Errorf("editing record: %w", err)
	}
	s.logger.Info().Str("vehicle", rec.VehicleID.String()).Str("record", id.String()).Msg("record edited")
	return rec, nil
}

// DeleteRecord removes a record from its vehicle's history.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
		rec, err := w.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := w.DeleteRecord(ctx, id); err != nil {
			return err
		}
		return recalculate(ctx, w, rec.VehicleID, nil)
	})
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	s.logger.Info().Str("record", id.String()).Msg("record deleted")
	return nil
}

// RecalculateAll recomputes the derived fields of every vehicle. It returns
// the number of vehicles processed.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	vehicles, err := s.store.ListVehicles(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing vehicles: %w", err)
	}
	for i, v := range vehicles {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		err := s.store.InVehicleTx(ctx, func(w store.VehicleWriter) error {
			return recalculate(ctx, w, v.ID, nil)
		})
		if err != nil {
			return i, fmt.Errorf("recalculating vehicle %s: %w", v.ID, err)
		}
		s.logger.Debug().Str("vehicle", v.ID.String()).Msg("vehicle recalculated")
	}
	return len(vehicles), nil
}

// recalculate recomputes the history of vehicleID and writes back every
// record whose derived fields changed. When target is set it receives the
// recalculated copy of the record with the same ID.
func recalculate(ctx context.Context, w store.VehicleWriter, vehicleID uuid.UUID, target *models.RefuelingRecord) error {
	records, err := w.ListRecords(ctx, vehicleID)
	if err != nil {
		return err
	}

	before := make(map[uuid.UUID][3]float64, len(records))
	for _, r := range records {
		before[r.ID] = derived(r)
	}

	economy.Recalculate(records)

	for _, r := range records {
		if target != nil && r.ID == target.ID {
			*target = *r
		}
		if before[r.ID] == derived(r) {
			continue
		}
		if err := w.UpdateRecord(ctx, *r); err != nil {
			return err
		}
	}
	return nil
}

func derived(r *models.RefuelingRecord) [3]float64 {
	return [3]float64{r.DrivenDistance, r.AverageConsumption, r.CostPerDistance}
}

func (in VehicleInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: vehicle name is required", ErrInvalidInput)
	}
	if in.Type != models.VehicleCar && in.Type != models.VehicleMotorcycle {
		return fmt.Errorf("%w: unknown vehicle type %d", ErrInvalidInput, in.Type)
	}
	if !in.DefaultFuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %d", ErrInvalidInput, in.DefaultFuelType)
	}
	return nil
}

func (in RecordInput) validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"odometer", in.Odometer},
		{"fuel amount", in.FuelAmount},
		{"cost", in.Cost},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidInput, f.name)
		}
	}
	if !in.FuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %d", ErrInvalidInput, in.FuelType)
	}
	return nil
}

func (in RecordInput) apply(r *models.RefuelingRecord) {
	r.Date = in.Date
	r.Odometer = in.Odometer
	r.FuelAmount = in.FuelAmount
	r.Cost = in.Cost
	r.FuelType = in.FuelType
}
