// Package pricing answers "what does fuel cost on a given day" from the
// stored price observations.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// DefaultProductNames maps each fuel type to the product name used by the
// CPC feed.
var DefaultProductNames = map[models.FuelType]string{
	models.FuelGas92:  "無鉛汽油92",
	models.FuelGas95:  "無鉛汽油95",
	models.FuelGas98:  "無鉛汽油98",
	models.FuelDiesel: "超級柴油",
}

// Upcoming is a price that becomes effective in the future.
type Upcoming struct {
	Observation models.PriceObservation
	// Difference is the upcoming price minus the current one. Only set when
	// HasCurrent is true.
	Difference decimal.Decimal
	HasCurrent bool
}

// BoardEntry is one line of the price board.
type BoardEntry struct {
	FuelType      models.FuelType  `json:"fuel_type"`
	ProductName   string           `json:"product_name"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	EffectiveDate *time.Time       `json:"effective_date,omitempty"`
	Upcoming      *decimal.Decimal `json:"upcoming_price,omitempty"`
	UpcomingDate  *time.Time       `json:"upcoming_date,omitempty"`
	Difference    *decimal.Decimal `json:"difference,omitempty"`
}

// Resolver looks up prices by fuel type. It only reads from the store and
// is safe for concurrent use.
type Resolver struct {
	store    store.PriceReader
	products map[models.FuelType]string
	logger   zerolog.Logger
}

// NewResolver creates a resolver. A nil products map uses DefaultProductNames.
func NewResolver(prices store.PriceReader, products map[models.FuelType]string, logger zerolog.Logger) *Resolver {
	if products == nil {
		products = DefaultProductNames
	}
	return &Resolver{
		store:    prices,
		products: products,
		logger:   logger.With().Str("component", "pricing").Logger(),
	}
}

// ProductName returns the feed product name for ft.
func (r *Resolver) ProductName(ft models.FuelType) (string, bool) {
	name, ok := r.products[ft]
	return name, ok && name != ""
}

// CurrentPrice returns the price in effect for ft on the calendar date of
// asOf. ok is false when the fuel type is not mapped or nothing is stored.
func (r *Resolver) CurrentPrice(ctx context.Context, ft models.FuelType, asOf time.Time) (models.PriceObservation, bool, error) {
	name, ok := r.ProductName(ft)
	if !ok {
		return models.PriceObservation{}, false, nil
	}
	p, found, err := r.store.CurrentPrice(ctx, name, models.DateOf(asOf))
	if err != nil {
		return models.PriceObservation{}, false, fmt.Errorf("resolving current price of %s: %w", ft, err)
	}
	return p, found, nil
}

// NextFuturePrice returns the first price for ft that becomes effective
// after the calendar date of after.
func (r *Resolver) NextFuturePrice(ctx context.Context, ft models.FuelType, after time.Time) (Upcoming, bool, error) {
	name, ok := r.ProductName(ft)
	if !ok {
		return Upcoming{}, false, nil
	}
	next, found, err := r.store.NextPrice(ctx, name, models.DateOf(after))
	if err != nil {
		return Upcoming{}, false, fmt.Errorf("resolving upcoming price of %s: %w", ft, err)
	}
	if !found {
		return Upcoming{}, false, nil
	}

	up := Upcoming{Observation: next}
	current, hasCurrent, err := r.CurrentPrice(ctx, ft, after)
	if err != nil {
		return Upcoming{}, false, err
	}
	if hasCurrent {
		up.HasCurrent = true
		up.Difference = next.Price.Sub(current.Price)
	}
	return up, true, nil
}

// History returns the prices of ft effective between from and to, oldest
// first. An unmapped fuel type has no history.
func (r *Resolver) History(ctx context.Context, ft models.FuelType, from, to time.Time) ([]models.PriceObservation, error) {
	name, ok := r.ProductName(ft)
	if !ok {
		return nil, nil
	}
	prices, err := r.store.ListPrices(ctx, name, models.DateOf(from), models.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("listing prices of %s: %w", ft, err)
	}
	return prices, nil
}

// EstimateCost returns the price of litres of ft on date, rounded to whole
// currency units.
func (r *Resolver) EstimateCost(ctx context.Context, ft models.FuelType, date time.Time, litres float64) (decimal.Decimal, bool, error) {
	p, ok, err := r.CurrentPrice(ctx, ft, date)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return p.Price.Mul(decimal.NewFromFloat(litres)).Round(0), true, nil
}

// Board returns the current and upcoming price of every fuel type.
func (r *Resolver) Board(ctx context.Context, asOf time.Time) ([]BoardEntry, error) {
	entries := make([]BoardEntry, 0, len(models.AllFuelTypes))
	for _, ft := range models.AllFuelTypes {
		name, ok := r.ProductName(ft)
		if !ok {
			continue
		}
		entry := BoardEntry{FuelType: ft, ProductName: name}

		current, ok, err := r.CurrentPrice(ctx, ft, asOf)
		if err != nil {
			return nil, err
		}
		if ok {
			entry.Price = &current.Price
			entry.EffectiveDate = &current.EffectiveDate
		}

		up, ok, err := r.NextFuturePrice(ctx, ft, asOf)
		if err != nil {
			return nil, err
		}
		if ok {
			entry.Upcoming = &up.Observation.Price
			entry.UpcomingDate = &up.Observation.EffectiveDate
			if up.HasCurrent {
				entry.Difference = &up.Difference
			}
		}
		entries = append(entries, entry)
	}
	r.logger.Debug().Int("count", len(entries)).Time("as_of", asOf).Msg("built price board")
	return entries, nil
}
