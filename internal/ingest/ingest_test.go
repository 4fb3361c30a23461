package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
	"github.com/andygrunwald/fuel-tracker/internal/store/memory"
)

var testProducts = []Product{
	{Code: "1", FuelType: models.FuelGas92, Name: "無鉛汽油92"},
	{Code: "2", FuelType: models.FuelGas95, Name: "無鉛汽油95"},
	{Code: "4", FuelType: models.FuelDiesel, Name: "超級柴油"},
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(product string, date time.Time, price string) models.PriceObservation {
	return models.PriceObservation{
		ProductName:   product,
		Price:         decimal.RequireFromString(price),
		EffectiveDate: date,
	}
}

type fakeProvider struct {
	mu    sync.Mutex
	feeds map[string][]models.PriceObservation
	errs  map[string]error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchPrices(ctx context.Context, code string) ([]models.PriceObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	out := make([]models.PriceObservation, len(f.feeds[code]))
	copy(out, f.feeds[code])
	return out, nil
}

func defaultFeeds() map[string][]models.PriceObservation {
	return map[string][]models.PriceObservation{
		"1": {obs("無鉛汽油92", day(2025, 2, 1), "29.5"), obs("無鉛汽油92", day(2025, 1, 1), "28.0")},
		"2": {obs("無鉛汽油95", day(2025, 2, 1), "31.5"), obs("無鉛汽油95", day(2025, 1, 1), "30.0")},
		"4": {obs("超級柴油", day(2025, 1, 20), "27.1")},
	}
}

func newService(prices store.PriceStore, provider *fakeProvider) *Service {
	return New(prices, provider, testProducts, zerolog.Nop(), Options{})
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, &fakeProvider{feeds: defaultFeeds()})

	first, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Inserted != 5 || first.Fetched != 5 || len(first.Failed) != 0 {
		t.Errorf("unexpected first summary: %+v", first)
	}

	second, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 5 {
		t.Errorf("expected nothing new on second sync, got %+v", second)
	}

	n, _ := s.CountPrices(ctx)
	if n != 5 {
		t.Errorf("expected 5 stored prices, got %d", n)
	}
}

func TestSyncDropsDuplicatesInsideFeed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	feeds := map[string][]models.PriceObservation{
		"2": {
			obs("無鉛汽油95", day(2025, 2, 1), "31.5"),
			obs("無鉛汽油95", day(2025, 2, 1), "99.9"),
		},
	}
	svc := newService(s, &fakeProvider{feeds: feeds})

	summary, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 1 || summary.Skipped != 1 {
		t.Errorf("expected 1 inserted and 1 skipped, got %+v", summary)
	}

	p, ok, _ := s.CurrentPrice(ctx, "無鉛汽油95", day(2025, 2, 1))
	if !ok || !p.Price.Equal(decimal.RequireFromString("31.5")) {
		t.Errorf("expected the first observation in document order to win, got %s", p.Price)
	}
}

func TestSyncContinuesAfterFetchFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	provider := &fakeProvider{
		feeds: defaultFeeds(),
		errs:  map[string]error{"1": errors.New("connection refused")},
	}
	svc := newService(s, provider)

	summary, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != "無鉛汽油92" {
		t.Errorf("expected gas92 to fail, got %v", summary.Failed)
	}
	if summary.Inserted != 3 {
		t.Errorf("expected later products to be stored, got %+v", summary)
	}
	if provider.calls != len(testProducts) {
		t.Errorf("expected every product to be fetched, got %d calls", provider.calls)
	}

	m := svc.GetMetrics("無鉛汽油92").GetSnapshot()
	if m.TotalErrors != 1 || m.LastError == nil || m.LastFetchSuccess {
		t.Errorf("unexpected metrics for failed product: %+v", m)
	}
	ok := svc.GetMetrics("無鉛汽油95").GetSnapshot()
	if !ok.LastFetchSuccess || ok.LastPrice == nil || *ok.LastPrice != "31.5" || ok.LastInserted != 2 {
		t.Errorf("unexpected metrics for successful product: %+v", ok)
	}
}

// failingStore fails every insert for one product after the first row.
type failingStore struct {
	*memory.Store
	product string
}

func (f *failingStore) InPriceTx(ctx context.Context, fn func(store.PriceWriter) error) error {
	return f.Store.InPriceTx(ctx, func(w store.PriceWriter) error {
		return fn(&failingWriter{PriceWriter: w, product: f.product})
	})
}

type failingWriter struct {
	store.PriceWriter
	product  string
	inserted int
}

func (w *failingWriter) InsertPrice(ctx context.Context, p models.PriceObservation) error {
	if p.ProductName == w.product && w.inserted > 0 {
		return errors.New("disk full")
	}
	w.inserted++
	return w.PriceWriter.InsertPrice(ctx, p)
}

func TestSyncRollsBackOnlyFailingProduct(t *testing.T) {
	ctx := context.Background()
	s := &failingStore{Store: memory.New(), product: "無鉛汽油95"}
	svc := newService(s, &fakeProvider{feeds: defaultFeeds()})

	summary, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != "無鉛汽油95" {
		t.Errorf("expected gas95 to fail, got %v", summary.Failed)
	}
	if summary.Inserted != 3 {
		t.Errorf("expected gas92 and diesel rows, got %+v", summary)
	}

	if _, ok, _ := s.CurrentPrice(ctx, "無鉛汽油95", day(2025, 3, 1)); ok {
		t.Error("expected the failing product's batch to be rolled back entirely")
	}
	if _, ok, _ := s.CurrentPrice(ctx, "超級柴油", day(2025, 3, 1)); !ok {
		t.Error("expected the product after the failure to be stored")
	}
}

func TestSyncSnapshotsLatestDateOncePerCycle(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	provider := &fakeProvider{feeds: defaultFeeds()}
	svc := newService(s, provider)

	// Diesel's newest date is older than gas92's. It is still stored on the
	// first cycle because the latest date is read before any insert.
	if _, err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, ok, _ := s.CurrentPrice(ctx, "超級柴油", day(2025, 1, 20)); !ok {
		t.Fatal("expected diesel to be stored on the first cycle")
	}

	// A later diesel price that is still before the global latest date is
	// not picked up.
	provider.mu.Lock()
	provider.feeds["4"] = append(provider.feeds["4"], obs("超級柴油", day(2025, 1, 27), "27.4"))
	provider.mu.Unlock()

	summary, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 0 {
		t.Errorf("expected the product to be short-circuited, got %+v", summary)
	}
}

func TestSyncRecordsRun(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, &fakeProvider{feeds: defaultFeeds()})

	if _, ok, _ := svc.LastSync(ctx); ok {
		t.Fatal("expected no sync run before the first cycle")
	}
	if _, err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	run, ok, err := svc.LastSync(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSync: ok=%v err=%v", ok, err)
	}
	if run.Inserted != 5 || run.Failed != 0 || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("unexpected sync run: %+v", run)
	}
}

func TestSyncConcurrentFetch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := New(s, &fakeProvider{feeds: defaultFeeds()}, testProducts, zerolog.Nop(), Options{Concurrency: 3})

	summary, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 5 {
		t.Errorf("expected 5 inserted, got %+v", summary)
	}
}

func TestSyncCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newService(memory.New(), &fakeProvider{feeds: defaultFeeds()})
	if _, err := svc.Sync(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type brokenLatest struct {
	*memory.Store
}

func (brokenLatest) LatestEffectiveDate(context.Context) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("connection reset")
}

func TestSyncFailsWhenLatestDateUnavailable(t *testing.T) {
	provider := &fakeProvider{feeds: defaultFeeds()}
	svc := newService(brokenLatest{memory.New()}, provider)

	if _, err := svc.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 0 {
		t.Errorf("expected no fetches, got %d", provider.calls)
	}
}
