package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// ListVehicles implements store.VehicleReader.
func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listVehicles(s.vehicles), nil
}

// GetVehicle implements store.VehicleReader.
func (s *Store) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVehicle(s.vehicles, id)
}

// ListRecords implements store.VehicleReader.
func (s *Store) ListRecords(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(s.records, vehicleID), nil
}

// GetRecord implements store.VehicleReader.
func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (models.RefuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRecord(s.records, id)
}

// InVehicleTx implements store.VehicleStore. The transaction works on copies
// of the vehicle and record tables which replace the originals on commit.
func (s *Store) InVehicleTx(ctx context.Context, fn func(store.VehicleWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &vehicleTx{
		vehicles: maps.Clone(s.vehicles),
		records:  maps.Clone(s.records),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.vehicles = tx.vehicles
	s.records = tx.records
	return nil
}

type vehicleTx struct {
	vehicles map[uuid.UUID]models.Vehicle
	records  map[uuid.UUID]models.RefuelingRecord
}

func (tx *vehicleTx) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return listVehicles(tx.vehicles), nil
}

func (tx *vehicleTx) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	return getVehicle(tx.vehicles, id)
}

func (tx *vehicleTx) ListRecords(ctx context.Context, vehicleID uuid.UUID) ([]*models.RefuelingRecord, error) {
	return listRecords(tx.records, vehicleID), nil
}

func (tx *vehicleTx) GetRecord(ctx context.Context, id uuid.UUID) (models.RefuelingRecord, error) {
	return getRecord(tx.records, id)
}

func (tx *vehicleTx) InsertVehicle(ctx context.Context, v models.Vehicle) error {
	if _, ok := tx.vehicles[v.ID]; ok {
		return fmt.Errorf("inserting vehicle %s: duplicate id", v.ID)
	}
	tx.vehicles[v.ID] = v
	return nil
}

func (tx *vehicleTx) UpdateVehicle(ctx context.Context, v models.Vehicle) error {
	if _, ok := tx.vehicles[v.ID]; !ok {
		return fmt.Errorf("vehicle %s: %w", v.ID, store.ErrNotFound)
	}
	tx.vehicles[v.ID] = v
	return nil
}

func (tx *vehicleTx) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	if _, ok := tx.vehicles[id]; !ok {
		return fmt.Errorf("vehicle %s: %w", id, store.ErrNotFound)
	}
	delete(tx.vehicles, id)
	for rid, r := range tx.records {
		if r.VehicleID == id {
			delete(tx.records, rid)
		}
	}
	return nil
}

func (tx *vehicleTx) InsertRecord(ctx context.Context, r models.RefuelingRecord) error {
	if _, ok := tx.vehicles[r.VehicleID]; !ok {
		return fmt.Errorf("vehicle %s: %w", r.VehicleID, store.ErrNotFound)
	}
	if _, ok := tx.records[r.ID]; ok {
		return fmt.Errorf("inserting record %s: duplicate id", r.ID)
	}
	tx.records[r.ID] = r
	return nil
}

func (tx *vehicleTx) UpdateRecord(ctx context.Context, r models.RefuelingRecord) error {
	if _, ok := tx.records[r.ID]; !ok {
		return fmt.Errorf("record %s: %w", r.ID, store.ErrNotFound)
	}
	tx.records[r.ID] = r
	return nil
}

func (tx *vehicleTx) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if _, ok := tx.records[id]; !ok {
		return fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	delete(tx.records, id)
	return nil
}

func listVehicles(vehicles map[uuid.UUID]models.Vehicle) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func getVehicle(vehicles map[uuid.UUID]models.Vehicle, id uuid.UUID) (models.Vehicle, error) {
	v, ok := vehicles[id]
	if !ok {
		return models.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, store.ErrNotFound)
	}
	return v, nil
}

// listRecords returns copies ordered by date and insertion sequence.
func listRecords(records map[uuid.UUID]models.RefuelingRecord, vehicleID uuid.UUID) []*models.RefuelingRecord {
	var out []*models.RefuelingRecord
	for _, r := range records {
		if r.VehicleID != vehicleID {
			continue
		}
		rec := r
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func getRecord(records map[uuid.UUID]models.RefuelingRecord, id uuid.UUID) (models.RefuelingRecord, error) {
	r, ok := records[id]
	if !ok {
		return models.RefuelingRecord{}, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return r, nil
}
