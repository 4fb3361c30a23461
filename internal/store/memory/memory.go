// Package memory provides an in-process implementation of the store
// contracts. It is used by tests and by the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// Store keeps all data in memory. Transactions take the write lock for
// their whole duration, so fn passed to InPriceTx or InVehicleTx must only
// use the writer it is handed.
type Store struct {
	mu       sync.RWMutex
	prices   []models.PriceObservation
	runs     []models.SyncRun
	vehicles map[uuid.UUID]models.Vehicle
	records  map[uuid.UUID]models.RefuelingRecord
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		vehicles: make(map[uuid.UUID]models.Vehicle),
		records:  make(map[uuid.UUID]models.RefuelingRecord),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// LatestEffectiveDate implements store.PriceReader.
func (s *Store) LatestEffectiveDate(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, p := range s.prices {
		if p.EffectiveDate.After(latest) {
			latest = p.EffectiveDate
		}
	}
	return latest, len(s.prices) > 0, nil
}

// CurrentPrice implements store.PriceReader.
func (s *Store) CurrentPrice(ctx context.Context, productName string, asOf time.Time) (models.PriceObservation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := models.DateOf(asOf)
	var (
		best  models.PriceObservation
		found bool
	)
	for _, p := range s.prices {
		if p.ProductName != productName || p.EffectiveDate.After(day) {
			continue
		}
		if !found || p.EffectiveDate.After(best.EffectiveDate) {
			best, found = p, true
		}
	}
	return best, found, nil
}

// NextPrice implements store.PriceReader.
func (s *Store) NextPrice(ctx context.Context, productName string, after time.Time) (models.PriceObservation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := models.DateOf(after)
	var (
		best  models.PriceObservation
		found bool
	)
	for _, p := range s.prices {
		if p.ProductName != productName || !p.EffectiveDate.After(day) {
			continue
		}
		if !found || p.EffectiveDate.Before(best.EffectiveDate) {
			best, found = p, true
		}
	}
	return best, found, nil
}

// ListPrices implements store.PriceReader.
func (s *Store) ListPrices(ctx context.Context, productName string, from, to time.Time) ([]models.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := models.DateOf(from), models.DateOf(to)
	var out []models.PriceObservation
	for _, p := range s.prices {
		if p.ProductName != productName || p.EffectiveDate.Before(lo) || p.EffectiveDate.After(hi) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out, nil
}

// CountPrices implements store.PriceReader.
func (s *Store) CountPrices(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.prices)), nil
}

// InPriceTx implements store.PriceStore.
func (s *Store) InPriceTx(ctx context.Context, fn func(store.PriceWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &priceTx{committed: s.prices}
	if err := fn(tx); err != nil {
		return err
	}
	s.prices = append(s.prices, tx.staged...)
	return nil
}

// RecordSyncRun implements store.PriceStore.
func (s *Store) RecordSyncRun(ctx context.Context, run models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// LastSyncRun implements store.PriceStore.
func (s *Store) LastSyncRun(ctx context.Context) (models.SyncRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		last  models.SyncRun
		found bool
	)
	for _, r := range s.runs {
		if !found || r.FinishedAt.After(last.FinishedAt) {
			last, found = r, true
		}
	}
	return last, found, nil
}

type priceTx struct {
	committed []models.PriceObservation
	staged    []models.PriceObservation
}

func (tx *priceTx) ExistsForDate(ctx context.Context, productName string, date time.Time) (bool, error) {
	day := models.DateOf(date)
	for _, list := range [][]models.PriceObservation{tx.committed, tx.staged} {
		for _, p := range list {
			if p.ProductName == productName && p.EffectiveDate.Equal(day) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (tx *priceTx) InsertPrice(ctx context.Context, price models.PriceObservation) error {
	if price.ID == uuid.Nil {
		return fmt.Errorf("inserting price: missing id")
	}
	price.EffectiveDate = models.DateOf(price.EffectiveDate)
	tx.staged = append(tx.staged, price)
	return nil
}
