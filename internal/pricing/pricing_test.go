package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
	"github.com/andygrunwald/fuel-tracker/internal/store/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, prices ...models.PriceObservation) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	err := s.InPriceTx(ctx, func(w store.PriceWriter) error {
		for _, p := range prices {
			if err := w.InsertPrice(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding prices: %v", err)
	}
	return s
}

func obs(product string, date time.Time, price string) models.PriceObservation {
	return models.PriceObservation{
		ID:            uuid.New(),
		ProductName:   product,
		Price:         decimal.RequireFromString(price),
		EffectiveDate: date,
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	s := seed(t,
		obs("無鉛汽油95", day(2025, 1, 1), "30.0"),
		obs("無鉛汽油95", day(2025, 2, 1), "31.5"),
	)
	r := NewResolver(s, nil, zerolog.Nop())

	tests := []struct {
		name        string
		asOf        time.Time
		wantCurrent string
		wantNext    string
		wantDiff    string
	}{
		{name: "between", asOf: day(2025, 1, 15), wantCurrent: "30", wantNext: "31.5", wantDiff: "1.5"},
		{name: "on effective date", asOf: day(2025, 2, 1), wantCurrent: "31.5"},
		{name: "before any price", asOf: day(2024, 12, 31), wantNext: "30"},
		{name: "time of day ignored", asOf: time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC), wantCurrent: "30", wantNext: "31.5", wantDiff: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, ok, err := r.CurrentPrice(ctx, models.FuelGas95, tt.asOf)
			if err != nil {
				t.Fatalf("CurrentPrice: %v", err)
			}
			if ok != (tt.wantCurrent != "") {
				t.Fatalf("CurrentPrice ok = %v, want %v", ok, tt.wantCurrent != "")
			}
			if ok && !cur.Price.Equal(decimal.RequireFromString(tt.wantCurrent)) {
				t.Errorf("current = %s, want %s", cur.Price, tt.wantCurrent)
			}

			up, ok, err := r.NextFuturePrice(ctx, models.FuelGas95, tt.asOf)
			if err != nil {
				t.Fatalf("NextFuturePrice: %v", err)
			}
			if ok != (tt.wantNext != "") {
				t.Fatalf("NextFuturePrice ok = %v, want %v", ok, tt.wantNext != "")
			}
			if !ok {
				return
			}
			if !up.Observation.Price.Equal(decimal.RequireFromString(tt.wantNext)) {
				t.Errorf("next = %s, want %s", up.Observation.Price, tt.wantNext)
			}
			if up.HasCurrent != (tt.wantDiff != "") {
				t.Fatalf("HasCurrent = %v, want %v", up.HasCurrent, tt.wantDiff != "")
			}
			if up.HasCurrent && !up.Difference.Equal(decimal.RequireFromString(tt.wantDiff)) {
				t.Errorf("difference = %s, want %s", up.Difference, tt.wantDiff)
			}
		})
	}
}

func TestResolverUnmappedFuelType(t *testing.T) {
	s := seed(t, obs("無鉛汽油95", day(2025, 1, 1), "30.0"))
	r := NewResolver(s, map[models.FuelType]string{models.FuelGas95: "無鉛汽油95"}, zerolog.Nop())

	_, ok, err := r.CurrentPrice(context.Background(), models.FuelDiesel, day(2025, 1, 2))
	if err != nil || ok {
		t.Errorf("expected no price and no error, got ok=%v err=%v", ok, err)
	}
}

func TestEstimateCost(t *testing.T) {
	s := seed(t, obs("無鉛汽油95", day(2025, 1, 1), "30.7"))
	r := NewResolver(s, nil, zerolog.Nop())

	cost, ok, err := r.EstimateCost(context.Background(), models.FuelGas95, day(2025, 1, 3), 20.5)
	if err != nil || !ok {
		t.Fatalf("EstimateCost: ok=%v err=%v", ok, err)
	}
	// 30.7 * 20.5 = 629.35
	if !cost.Equal(decimal.NewFromInt(629)) {
		t.Errorf("cost = %s, want 629", cost)
	}

	if _, ok, _ := r.EstimateCost(context.Background(), models.FuelGas98, day(2025, 1, 3), 10); ok {
		t.Error("expected no estimate without a stored price")
	}
}

func TestBoard(t *testing.T) {
	s := seed(t,
		obs("無鉛汽油95", day(2025, 1, 1), "30.0"),
		obs("無鉛汽油95", day(2025, 2, 1), "31.5"),
		obs("超級柴油", day(2025, 1, 1), "27.1"),
	)
	r := NewResolver(s, nil, zerolog.Nop())

	board, err := r.Board(context.Background(), day(2025, 1, 20))
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(board) != len(models.AllFuelTypes) {
		t.Fatalf("expected %d entries, got %d", len(models.AllFuelTypes), len(board))
	}

	byType := make(map[models.FuelType]BoardEntry)
	for _, e := range board {
		byType[e.FuelType] = e
	}
	gas95 := byType[models.FuelGas95]
	if gas95.Price == nil || gas95.Upcoming == nil || gas95.Difference == nil {
		t.Fatalf("expected full gas95 entry, got %+v", gas95)
	}
	if !gas95.Difference.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("difference = %s, want 1.5", gas95.Difference)
	}
	if diesel := byType[models.FuelDiesel]; diesel.Price == nil || diesel.Upcoming != nil {
		t.Errorf("expected diesel with current price only, got %+v", diesel)
	}
	if gas92 := byType[models.FuelGas92]; gas92.Price != nil {
		t.Errorf("expected no gas92 price, got %s", gas92.Price)
	}
}

type failingReader struct {
	store.PriceReader
}

func (failingReader) CurrentPrice(context.Context, string, time.Time) (models.PriceObservation, bool, error) {
	return models.PriceObservation{}, false, errors.New("connection reset")
}

func TestResolverPropagatesStoreErrors(t *testing.T) {
	r := NewResolver(failingReader{}, nil, zerolog.Nop())
	if _, _, err := r.CurrentPrice(context.Background(), models.FuelGas95, day(2025, 1, 1)); err == nil {
		t.Error("expected store error to be returned")
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := seed(t,
		obs("無鉛汽油95", day(2025, 3, 1), "32.0"),
		obs("無鉛汽油95", day(2025, 1, 1), "30.0"),
		obs("無鉛汽油95", day(2025, 2, 1), "31.5"),
		obs("超級柴油", day(2025, 2, 1), "27.0"),
	)
	r := NewResolver(s, nil, zerolog.Nop())

	got, err := r.History(ctx, models.FuelGas95, day(2025, 1, 1), time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(got))
	}
	if !got[0].Price.Equal(decimal.RequireFromString("30")) || !got[1].Price.Equal(decimal.RequireFromString("31.5")) {
		t.Errorf("expected oldest first, got %s then %s", got[0].Price, got[1].Price)
	}

	r = NewResolver(s, map[models.FuelType]string{models.FuelGas95: "無鉛汽油95"}, zerolog.Nop())
	got, err = r.History(ctx, models.FuelDiesel, day(2025, 1, 1), day(2025, 12, 31))
	if err != nil || got != nil {
		t.Errorf("expected no history for unmapped fuel type, got %v, %v", got, err)
	}
}
