package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

const (
	vehicleColumns = "id, name, vehicle_type, default_fuel_type, created_at"
	recordColumns  = "id, vehicle_id, seq, refueled_at, odometer, fuel_amount, cost, fuel_type, " +
		"driven_distance, average_consumption, cost_per_distance, created_at"
)

// ListVehicles returns all vehicles, oldest first.
func (d *DB) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return vehicleQueries{d.db, d.dialect}.ListVehicles(ctx)
}

// GetVehicle returns a single vehicle.
func (d *DB) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	return vehicleQueries{d.db, d.dialect}.GetVehicle(ctx, id)
}

// ListRecords returns the refueling records of a vehicle ordered by date
// and insertion sequence.
func (d *DB) ListRecords(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error) {
	return vehicleQueries{d.db, d.dialect}.ListRecords(ctx, vehicleID)
}

// GetRecord returns a single refueling record.
func (d *DB) GetRecord(ctx context.Context, id uuid.UUID) (models.RefuelingRecord, error) {
	return vehicleQueries{d.db, d.dialect}.GetRecord(ctx, id)
}

// InVehicleTx runs fn inside a database transaction.
func (d *DB) InVehicleTx(ctx context.Context, fn func(store.VehicleWriter) error) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return fn(vehicleQueries{tx, d.dialect})
	})
}

// vehicleQueries runs the vehicle statements against a connection or a
// transaction.
type vehicleQueries struct {
	q       queryer
	dialect dialect
}

func (v vehicleQueries) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := v.q.QueryContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying vehicles: %w", err)
	}
	defer rows.Close()

	var out []models.Vehicle
	for rows.Next() {
		veh, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, veh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vehicles: %w", err)
	}
	return out, nil
}

func (v vehicleQueries) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	query := rebind(v.dialect, "SELECT "+vehicleColumns+" FROM vehicles WHERE id = ?")
	veh, err := scanVehicle(v.q.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, store.ErrNotFound)
	}
	return veh, err
}

func (v vehicleQueries) ListRecords(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error) {
	query := rebind(v.dialect, `
		SELECT `+recordColumns+`
		FROM refueling_records
		WHERE vehicle_id = ?
		ORDER BY refueled_at, seq
	`)
	rows, err := v.q.QueryContext(ctx, query, vehicleID.String())
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []*models.RefuelingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

func (v vehicleQueries) GetRecord(ctx context.Context, id uuid.UUID) (models.RefuelingRecord, error) {
	query := rebind(v.dialect, "SELECT "+recordColumns+" FROM refueling_records WHERE id = ?")
	r, err := scanRecord(v.q.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.RefuelingRecord{}, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return r, err
}

func (v vehicleQueries) InsertVehicle(ctx context.Context, veh models.Vehicle) error {
	query := rebind(v.dialect, "INSERT INTO vehicles ("+vehicleColumns+") VALUES (?, ?, ?, ?, ?)")
	_, err := v.q.ExecContext(ctx, query,
		veh.ID.String(), veh.Name, veh.Type.String(), veh.DefaultFuelType.StoredValue(), veh.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}
	return nil
}

func (v vehicleQueries) UpdateVehicle(ctx context.Context, veh models.Vehicle) error {
	query := rebind(v.dialect, `
		UPDATE vehicles SET name = ?, vehicle_type = ?, default_fuel_type = ?
		WHERE id = ?
	`)
	res, err := v.q.ExecContext(ctx, query,
		veh.Name, veh.Type.String(), veh.DefaultFuelType.StoredValue(), veh.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating vehicle: %w", err)
	}
	return expectRow(res, "vehicle", veh.ID)
}

func (v vehicleQueries) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	// Records are removed explicitly so the cascade does not depend on the
	// engine enforcing foreign keys.
	if _, err := v.q.ExecContext(ctx, rebind(v.dialect, "DELETE FROM refueling_records WHERE vehicle_id = ?"), id.String()); err != nil {
		return fmt.Errorf("deleting records of vehicle: %w", err)
	}
	res, err := v.q.ExecContext(ctx, rebind(v.dialect, "DELETE FROM vehicles WHERE id = ?"), id.String())
	if err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	return expectRow(res, "vehicle", id)
}

func (v vehicleQueries) InsertRecord(ctx context.Context, r models.RefuelingRecord) error {
	query := rebind(v.dialect, `
		INSERT INTO refueling_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := v.q.ExecContext(ctx, query,
		r.ID.String(), r.VehicleID.String(), r.Seq, r.Date.UTC(),
		r.Odometer, r.FuelAmount, r.Cost, r.FuelType.StoredValue(),
		r.DrivenDistance, r.AverageConsumption, r.CostPerDistance, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

func (v vehicleQueries) UpdateRecord(ctx context.Context, r models.RefuelingRecord) error {
	query := rebind(v.dialect, `
		UPDATE refueling_records SET
			refueled_at = ?, odometer = ?, fuel_amount = ?, cost = ?, fuel_type = ?,
			driven_distance = ?, average_consumption = ?, cost_per_distance = ?
		WHERE id = ?
	`)
	res, err := v.q.ExecContext(ctx, query,
		r.Date.UTC(), r.Odometer, r.FuelAmount, r.Cost, r.FuelType.StoredValue(),
		r.DrivenDistance, r.AverageConsumption, r.CostPerDistance, r.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return expectRow(res, "record", r.ID)
}

func (v vehicleQueries) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	res, err := v.q.ExecContext(ctx, rebind(v.dialect, "DELETE FROM refueling_records WHERE id = ?"), id.String())
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return expectRow(res, "record", id)
}

func scanVehicle(row rowScanner) (models.Vehicle, error) {
	var veh models.Vehicle
	err := row.Scan(&veh.ID, &veh.Name, &veh.Type, &veh.DefaultFuelType, &veh.CreatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return veh, fmt.Errorf("scanning vehicle: %w", err)
	}
	return veh, err
}

func scanRecord(row rowScanner) (models.RefuelingRecord, error) {
	var r models.RefuelingRecord
	err := row.Scan(
		&r.ID, &r.VehicleID, &r.Seq, &r.Date,
		&r.Odometer, &r.FuelAmount, &r.Cost, &r.FuelType,
		&r.DrivenDistance, &r.AverageConsumption, &r.CostPerDistance, &r.CreatedAt,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("scanning record: %w", err)
	}
	return r, err
}

// expectRow maps "zero rows affected" to store.ErrNotFound. On MySQL this
// relies on clientFoundRows, see prepareMySQLDSN.
func expectRow(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}
