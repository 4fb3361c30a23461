// Package store declares the persistence contracts used by the fuel tracker.
// Implementations live in internal/database (SQL) and internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// PriceReader provides read access to stored price observations.
type PriceReader interface {
	// LatestEffectiveDate returns the most recent effective date stored for
	// any product. ok is false when no prices are stored.
	LatestEffectiveDate(ctx context.Context) (date time.Time, ok bool, err error)

	// CurrentPrice returns the observation for productName with the greatest
	// effective date on or before asOf.
	CurrentPrice(ctx context.Context, productName string, asOf time.Time) (models.PriceObservation, bool, error)

	// NextPrice returns the observation for productName with the smallest
	// effective date strictly after after.
	NextPrice(ctx context.Context, productName string, after time.Time) (models.PriceObservation, bool, error)

	// ListPrices returns all observations for productName with an effective
	// date within [from, to], oldest first.
	ListPrices(ctx context.Context, productName string, from, to time.Time) ([]models.PriceObservation, error)

	// CountPrices returns the total number of stored observations.
	CountPrices(ctx context.Context) (int64, error)
}

// PriceWriter is the write side of a price transaction.
type PriceWriter interface {
	ExistsForDate(ctx context.Context, productName string, date time.Time) (bool, error)
	InsertPrice(ctx context.Context, price models.PriceObservation) error
}

// PriceStore is what the ingestion service needs.
type PriceStore interface {
	PriceReader

	// InPriceTx runs fn in a transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise.
	InPriceTx(ctx context.Context, fn func(PriceWriter) error) error

	RecordSyncRun(ctx context.Context, run models.SyncRun) error
	LastSyncRun(ctx context.Context) (models.SyncRun, bool, error)
}

// VehicleReader provides read access to vehicles and their records.
type VehicleReader interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error)
	ListRecords(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (models.RefuelingRecord, error)
}

// VehicleWriter is the write side of a vehicle transaction.
type VehicleWriter interface {
	VehicleReader

	InsertVehicle(ctx context.Context, v models.Vehicle) error
	UpdateVehicle(ctx context.Context, v models.Vehicle) error
	// DeleteVehicle removes the vehicle together with all of its records.
	DeleteVehicle(ctx context.Context, id uuid.UUID) error

	InsertRecord(ctx context.Context, r models.RefuelingRecord) error
	// UpdateRecord overwrites every column, derived fields included.
	UpdateRecord(ctx context.Context, r models.RefuelingRecord) error
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

// VehicleStore is what the garage service needs.
type VehicleStore interface {
	VehicleReader

	// InVehicleTx runs fn in a transaction, see InPriceTx.
	InVehicleTx(ctx context.Context, fn func(VehicleWriter) error) error
}

// Store combines every contract with connection management.
type Store interface {
	PriceStore
	VehicleStore

	Ping(ctx context.Context) error
	Close() error
}
