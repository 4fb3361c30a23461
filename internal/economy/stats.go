package economy

import (
	"time"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// Summary aggregates a set of refueling records.
type Summary struct {
	Records         int     `json:"records"`
	CurrentOdometer float64 `json:"current_odometer"`
	TotalDistance   float64 `json:"total_distance"`
	TotalFuel       float64 `json:"total_fuel"`
	TotalCost       float64 `json:"total_cost"`
	// AverageConsumption is total distance over total fuel, not the mean of
	// the per-record values.
	AverageConsumption float64 `json:"average_consumption"`
	MaxConsumption     float64 `json:"max_consumption"`
	MinConsumption     float64 `json:"min_consumption"`
}

// Period is the aggregate of one calendar month.
type Period struct {
	Month              time.Time `json:"month"`
	Records            int       `json:"records"`
	Distance           float64   `json:"distance"`
	Fuel               float64   `json:"fuel"`
	Cost               float64   `json:"cost"`
	AverageConsumption float64   `json:"average_consumption"`
}

// Summarize computes totals over records. Max and min consumption only look
// at records with a non-zero consumption, so the latest record does not drag
// the minimum to zero. CurrentOdometer is the reading of the latest record,
// which need not be the highest one.
func Summarize(records []*models.RefuelingRecord) Summary {
	var (
		s     Summary
		first = true
	)
	for _, r := range records {
		s.Records++
		s.TotalDistance += r.DrivenDistance
		s.TotalFuel += r.FuelAmount
		s.TotalCost += r.Cost

		if r.AverageConsumption <= 0 {
			continue
		}
		if first || r.AverageConsumption > s.MaxConsumption {
			s.MaxConsumption = r.AverageConsumption
		}
		if first || r.AverageConsumption < s.MinConsumption {
			s.MinConsumption = r.AverageConsumption
		}
		first = false
	}
	if sorted := Sorted(records); len(sorted) > 0 {
		s.CurrentOdometer = sorted[len(sorted)-1].Odometer
	}
	s.AverageConsumption = ratio(s.TotalDistance, s.TotalFuel)
	return s
}

// Monthly groups records by the calendar month of their date, oldest first.
func Monthly(records []*models.RefuelingRecord) []Period {
	var (
		periods []Period
		index   = make(map[time.Time]int)
	)
	for _, r := range Sorted(records) {
		month := time.Date(r.Date.Year(), r.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		i, ok := index[month]
		if !ok {
			i = len(periods)
			index[month] = i
			periods = append(periods, Period{Month: month})
		}
		p := &periods[i]
		p.Records++
		p.Distance += r.DrivenDistance
		p.Fuel += r.FuelAmount
		p.Cost += r.Cost
	}
	for i := range periods {
		periods[i].AverageConsumption = ratio(periods[i].Distance, periods[i].Fuel)
	}
	return periods
}

// Since returns the records dated on or after from.
func Since(records []*models.RefuelingRecord, from time.Time) []*models.RefuelingRecord {
	var out []*models.RefuelingRecord
	for _, r := range records {
		if !r.Date.Before(from) {
			out = append(out, r)
		}
	}
	return out
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
