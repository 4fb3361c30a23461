// Package ingest keeps the local price store in sync with the remote price
// feed.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andygrunwald/fuel-tracker/internal/api"
	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// Product is one tracked feed product.
type Product struct {
	// Code is the value posted as prodid to the feed.
	Code     string
	FuelType models.FuelType
	// Name is the product name the feed reports, e.g. "無鉛汽油95".
	Name string
}

// Summary is the outcome of one ingestion cycle.
type Summary struct {
	// Fetched counts observations parsed from all feeds.
	Fetched int `json:"fetched"`
	// Inserted counts new rows written to the store.
	Inserted int `json:"inserted"`
	// Skipped counts observations that were already known.
	Skipped int `json:"skipped"`
	// Failed lists the products whose fetch or write failed.
	Failed []string `json:"failed,omitempty"`
}

// Options configures the ingestion service.
type Options struct {
	// Concurrency bounds the number of parallel feed requests. Values below
	// one mean sequential fetching.
	Concurrency int
	// Recorder receives metrics events. Nil disables export.
	Recorder Recorder
}

// Service fetches every configured product and stores new observations.
type Service struct {
	store       store.PriceStore
	provider    api.Provider
	products    []Product
	metrics     map[string]*Metrics
	recorder    Recorder
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time

	// mu serializes Sync so the existence check and the insert of a key
	// cannot interleave between two cycles.
	mu sync.Mutex
}

// New creates a new ingestion service.
func New(prices store.PriceStore, provider api.Provider, products []Product, logger zerolog.Logger, opts Options) *Service {
	metrics := make(map[string]*Metrics, len(products))
	for _, p := range products {
		metrics[p.Name] = &Metrics{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		store:       prices,
		provider:    provider,
		products:    products,
		metrics:     metrics,
		recorder:    recorder,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "ingest").Logger(),
		now:         time.Now,
	}
}

// Products returns the tracked products in polling order.
func (s *Service) Products() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// GetMetrics returns the metrics for a product name.
func (s *Service) GetMetrics(productName string) *Metrics {
	return s.metrics[productName]
}

// LastSync returns the most recent recorded ingestion cycle.
func (s *Service) LastSync(ctx context.Context) (models.SyncRun, bool, error) {
	return s.store.LastSyncRun(ctx)
}

type fetchResult struct {
	observations []models.PriceObservation
	err          error
}

// Sync runs one ingestion cycle. Failures of single products are logged and
// reported in the summary. An error is only returned when the cycle could
// not start or ctx was cancelled.
func (s *Service) Sync(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	var summary Summary

	// Snapshot once per cycle, a per-product read would see this cycle's
	// own inserts.
	latest, hasLatest, err := s.store.LatestEffectiveDate(ctx)
	if err != nil {
		s.recorder.RecordDBOperation("latest_date", "error")
		return summary, fmt.Errorf("reading latest effective date: %w", err)
	}

	s.logger.Info().
		Int("products", len(s.products)).
		Bool("has_latest", hasLatest).
		Str("latest", latest.Format(models.DateLayout)).
		Msg("starting sync")

	results := s.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	for i, product := range s.products {
		res := results[i]
		if res.err != nil {
			summary.Failed = append(summary.Failed, product.Name)
			continue
		}
		summary.Fetched += len(res.observations)

		if len(res.observations) == 0 {
			s.logger.Info().Str("product", product.Name).Msg("feed returned no prices, skipping")
			continue
		}

		if hasLatest && !maxEffectiveDate(res.observations).After(latest) {
			summary.Skipped += len(res.observations)
			s.logger.Info().
				Str("product", product.Name).
				Str("latest", latest.Format(models.DateLayout)).
				Msg("no new prices, skipping")
			continue
		}

		inserted, err := s.reconcile(ctx, product, res.observations)
		s.metrics[product.Name].recordInserted(inserted, err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.Failed = append(summary.Failed, product.Name)
			s.logger.Error().
				Err(err).
				Str("product", product.Name).
				Msg("failed to store prices")
			continue
		}
		summary.Inserted += inserted
		summary.Skipped += len(res.observations) - inserted
		s.recorder.RecordPricesInserted(product.Name, inserted)
	}

	finished := s.now()
	run := models.SyncRun{
		ID:         uuid.New(),
		StartedAt:  started,
		FinishedAt: finished,
		Fetched:    summary.Fetched,
		Inserted:   summary.Inserted,
		Skipped:    summary.Skipped,
		Failed:     len(summary.Failed),
	}
	if err := s.store.RecordSyncRun(ctx, run); err != nil {
		s.recorder.RecordDBOperation("record_sync", "error")
		s.logger.Error().Err(err).Msg("failed to record sync run")
	} else {
		s.recorder.RecordDBOperation("record_sync", "success")
	}
	s.recorder.RecordSync(finished)

	s.logger.Info().
		Int("fetched", summary.Fetched).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("failed", len(summary.Failed)).
		Dur("duration", finished.Sub(started)).
		Msg("sync completed")

	return summary, nil
}

// fetchAll fetches every product, at most s.concurrency at a time. Results
// are indexed like s.products.
func (s *Service) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(s.products))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, product := range s.products {
		g.Go(func() error {
			results[i] = s.fetch(ctx, product)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) fetch(ctx context.Context, product Product) fetchResult {
	if err := ctx.Err(); err != nil {
		return fetchResult{err: err}
	}

	s.logger.Debug().Str("product", product.Name).Str("code", product.Code).Msg("fetching feed")

	start := s.now()
	observations, err := s.provider.FetchPrices(ctx, product.Code)
	duration := s.now().Sub(start)

	var latestPrice *string
	if err == nil && len(observations) > 0 {
		latest := latestObservation(observations)
		str := latest.Price.String()
		latestPrice = &str
		s.recorder.RecordLatestPrice(product.Name, latest.Price.InexactFloat64())
	}
	s.metrics[product.Name].recordFetch(start, duration, latestPrice, err)

	if err != nil {
		s.recorder.RecordFeedRequest(product.Name, "error", duration.Seconds())
		s.logger.Error().
			Err(err).
			Str("product", product.Name).
			Dur("duration", duration).
			Msg("failed to fetch prices")
		return fetchResult{err: err}
	}

	s.recorder.RecordFeedRequest(product.Name, "success", duration.Seconds())
	s.logger.Info().
		Str("product", product.Name).
		Int("count", len(observations)).
		Dur("duration", duration).
		Msg("fetched prices")
	return fetchResult{observations: observations}
}

// reconcile inserts the observations that are not stored yet, in document
// order, inside a single transaction.
func (s *Service) reconcile(ctx context.Context, product Product, observations []models.PriceObservation) (int, error) {
	inserted := 0
	err := s.store.InPriceTx(ctx, func(w store.PriceWriter) error {
		for _, obs := range observations {
			date := obs.EffectiveDate.Format(models.DateLayout)

			exists, err := w.ExistsForDate(ctx, obs.ProductName, obs.EffectiveDate)
			if err != nil {
				return fmt.Errorf("checking %s on %s: %w", obs.ProductName, date, err)
			}
			if exists {
				s.logger.Debug().
					Str("product", obs.ProductName).
					Str("date", date).
					Msg("price already exists, skipping")
				continue
			}

			obs.ID = uuid.New()
			if err := w.InsertPrice(ctx, obs); err != nil {
				return fmt.Errorf("inserting %s on %s: %w", obs.ProductName, date, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		s.recorder.RecordDBOperation("insert_prices", "error")
		return 0, err
	}
	s.recorder.RecordDBOperation("insert_prices", "success")
	return inserted, nil
}

func maxEffectiveDate(observations []models.PriceObservation) time.Time {
	var latest time.Time
	for _, obs := range observations {
		if obs.EffectiveDate.After(latest) {
			latest = obs.EffectiveDate
		}
	}
	return latest
}

func latestObservation(observations []models.PriceObservation) models.PriceObservation {
	latest := observations[0]
	for _, obs := range observations[1:] {
		if obs.EffectiveDate.After(latest.EffectiveDate) {
			latest = obs
		}
	}
	return latest
}
