// Package economy derives fuel-economy figures from a vehicle's refueling
// history.
//
// Every record carries three derived fields that depend on the record and its
// chronological successor: the distance driven until the next refueling, the
// average consumption over that distance and the cost per distance unit. The
// most recent record has no successor and keeps all three at zero.
package economy

import (
	"sort"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// Recalculate recomputes the derived fields of records in place. Records are
// processed in ascending (Date, Seq) order; the order of the given slice is
// left untouched.
func Recalculate(records []*models.RefuelingRecord) {
	if len(records) == 0 {
		return
	}

	sorted := Sorted(records)
	for i, rec := range sorted {
		if i == len(sorted)-1 {
			rec.ResetDerived()
			continue
		}
		next := sorted[i+1]

		distance := next.Odometer - rec.Odometer
		if distance < 0 {
			// An odometer reset or a typo, not negative driving.
			distance = 0
		}
		rec.DrivenDistance = distance

		if rec.FuelAmount > 0 {
			rec.AverageConsumption = distance / rec.FuelAmount
		} else {
			rec.AverageConsumption = 0
		}

		if distance > 0 {
			rec.CostPerDistance = rec.Cost / distance
		} else {
			rec.CostPerDistance = 0
		}
	}
}

// Sorted returns a copy of records ordered by Date, ties broken by Seq.
// The pointers are shared with the input.
func Sorted(records []*models.RefuelingRecord) []*models.RefuelingRecord {
	sorted := make([]*models.RefuelingRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Date.Equal(b.Date) {
			return a.Seq < b.Seq
		}
		return a.Date.Before(b.Date)
	})
	return sorted
}
