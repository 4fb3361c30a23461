package economy

import (
	"math"
	"testing"
	"time"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(seq int64, date time.Time, odometer, fuel, cost float64) *models.RefuelingRecord {
	return &models.RefuelingRecord{
		Seq:        seq,
		Date:       date,
		Odometer:   odometer,
		FuelAmount: fuel,
		Cost:       cost,
		FuelType:   models.FuelGas95,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertDerived(t *testing.T, r *models.RefuelingRecord, distance, consumption, costPerDistance float64) {
	t.Helper()
	if !almostEqual(r.DrivenDistance, distance) {
		t.Errorf("DrivenDistance = %v, want %v", r.DrivenDistance, distance)
	}
	if !almostEqual(r.AverageConsumption, consumption) {
		t.Errorf("AverageConsumption = %v, want %v", r.AverageConsumption, consumption)
	}
	if !almostEqual(r.CostPerDistance, costPerDistance) {
		t.Errorf("CostPerDistance = %v, want %v", r.CostPerDistance, costPerDistance)
	}
}

func TestRecalculateTwoRecords(t *testing.T) {
	first := record(1, day(2025, 1, 1), 1000, 20, 600)
	second := record(2, day(2025, 1, 10), 1300, 20, 620)

	// Passed in reverse order on purpose.
	Recalculate([]*models.RefuelingRecord{second, first})

	assertDerived(t, first, 300, 15, 2)
	assertDerived(t, second, 0, 0, 0)
}

func TestRecalculateUsesOwnCost(t *testing.T) {
	first := record(1, day(2025, 1, 1), 1000, 20, 800)
	second := record(2, day(2025, 1, 8), 1400, 20, 900)

	Recalculate([]*models.RefuelingRecord{first, second})

	// 800 / 400, the successor's 900 does not matter.
	assertDerived(t, first, 400, 20, 2)
	assertDerived(t, second, 0, 0, 0)
}

func TestRecalculateOdometerRegression(t *testing.T) {
	first := record(1, day(2025, 1, 1), 5000, 30, 900)
	second := record(2, day(2025, 1, 5), 100, 30, 900)

	Recalculate([]*models.RefuelingRecord{first, second})

	assertDerived(t, first, 0, 0, 0)
}

func TestRecalculateZeroFuelAmount(t *testing.T) {
	first := record(1, day(2025, 1, 1), 1000, 0, 300)
	second := record(2, day(2025, 1, 2), 1150, 10, 300)

	Recalculate([]*models.RefuelingRecord{first, second})

	assertDerived(t, first, 150, 0, 2)
}

func TestRecalculateEmptyAndSingle(t *testing.T) {
	Recalculate(nil)

	only := record(1, day(2025, 1, 1), 1000, 20, 600)
	only.DrivenDistance, only.AverageConsumption, only.CostPerDistance = 1, 2, 3
	Recalculate([]*models.RefuelingRecord{only})

	assertDerived(t, only, 0, 0, 0)
}

func TestRecalculateSameDateUsesSeq(t *testing.T) {
	d := day(2025, 3, 1)
	later := record(7, d, 1200, 10, 300)
	earlier := record(3, d, 1000, 10, 300)

	Recalculate([]*models.RefuelingRecord{later, earlier})

	assertDerived(t, earlier, 200, 20, 1.5)
	assertDerived(t, later, 0, 0, 0)
}

func TestRecalculateAfterDelete(t *testing.T) {
	a := record(1, day(2025, 1, 1), 1000, 20, 600)
	b := record(2, day(2025, 1, 10), 1300, 20, 600)
	c := record(3, day(2025, 1, 20), 1500, 20, 600)

	Recalculate([]*models.RefuelingRecord{a, b, c})
	assertDerived(t, a, 300, 15, 2)

	// Dropping the middle record makes c the successor of a.
	Recalculate([]*models.RefuelingRecord{a, c})
	assertDerived(t, a, 500, 25, 1.2)
	assertDerived(t, c, 0, 0, 0)
}

func TestRecalculateKeepsInputOrder(t *testing.T) {
	a := record(1, day(2025, 1, 10), 1300, 20, 600)
	b := record(2, day(2025, 1, 1), 1000, 20, 600)
	in := []*models.RefuelingRecord{a, b}

	Recalculate(in)

	if in[0] != a || in[1] != b {
		t.Error("expected the input slice order to be preserved")
	}
}

func TestSummarizeCurrentOdometerIsLatestReading(t *testing.T) {
	// Odometer replaced between the second and third refueling.
	records := []*models.RefuelingRecord{
		record(3, day(2025, 3, 1), 200, 10, 300),
		record(1, day(2025, 1, 1), 1000, 20, 600),
		record(2, day(2025, 2, 1), 1300, 20, 600),
	}

	s := Summarize(records)
	if s.CurrentOdometer != 200 {
		t.Errorf("CurrentOdometer = %v, want 200", s.CurrentOdometer)
	}
	if got := Summarize(nil).CurrentOdometer; got != 0 {
		t.Errorf("empty CurrentOdometer = %v, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	records := []*models.RefuelingRecord{
		record(1, day(2025, 1, 1), 1000, 20, 600),
		record(2, day(2025, 1, 10), 1300, 20, 600),
		record(3, day(2025, 2, 1), 1500, 10, 300),
	}
	Recalculate(records)

	s := Summarize(records)
	if s.Records != 3 {
		t.Errorf("Records = %d, want 3", s.Records)
	}
	if s.CurrentOdometer != 1500 {
		t.Errorf("CurrentOdometer = %v, want 1500", s.CurrentOdometer)
	}
	if !almostEqual(s.TotalDistance, 500) || !almostEqual(s.TotalFuel, 50) || !almostEqual(s.TotalCost, 1500) {
		t.Errorf("unexpected totals: %+v", s)
	}
	if !almostEqual(s.AverageConsumption, 10) {
		t.Errorf("AverageConsumption = %v, want 10", s.AverageConsumption)
	}
	if !almostEqual(s.MaxConsumption, 15) || !almostEqual(s.MinConsumption, 10) {
		t.Errorf("max/min = %v/%v, want 15/10", s.MaxConsumption, s.MinConsumption)
	}

	if empty := Summarize(nil); empty != (Summary{}) {
		t.Errorf("expected zero summary for no records, got %+v", empty)
	}
}

func TestMonthly(t *testing.T) {
	records := []*models.RefuelingRecord{
		record(3, day(2025, 2, 1), 1500, 10, 300),
		record(1, day(2025, 1, 1), 1000, 20, 600),
		record(2, day(2025, 1, 10), 1300, 20, 600),
	}
	Recalculate(records)

	periods := Monthly(records)
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}

	jan := periods[0]
	if !jan.Month.Equal(day(2025, 1, 1)) || jan.Records != 2 {
		t.Errorf("unexpected first period: %+v", jan)
	}
	if !almostEqual(jan.Distance, 500) || !almostEqual(jan.AverageConsumption, 12.5) {
		t.Errorf("january distance/consumption = %v/%v, want 500/12.5", jan.Distance, jan.AverageConsumption)
	}
	if !periods[1].Month.Equal(day(2025, 2, 1)) || periods[1].AverageConsumption != 0 {
		t.Errorf("unexpected second period: %+v", periods[1])
	}
}

func TestSince(t *testing.T) {
	records := []*models.RefuelingRecord{
		record(1, day(2025, 1, 1), 1000, 20, 600),
		record(2, day(2025, 2, 1), 1300, 20, 600),
	}
	got := Since(records, day(2025, 2, 1))
	if len(got) != 1 || got[0].Seq != 2 {
		t.Errorf("expected only the february record, got %d records", len(got))
	}
}
