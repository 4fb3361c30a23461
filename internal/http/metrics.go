// Package http provides the status, price and metrics endpoints of the fuel
// tracker.
package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the fuel tracker. It implements
// ingest.Recorder.
type Metrics struct {
	// Feed request metrics
	FeedRequestsTotal   *prometheus.CounterVec
	FeedRequestDuration *prometheus.HistogramVec

	// Sync metrics
	LastSyncTimestamp prometheus.Gauge
	LatestPrice       *prometheus.GaugeVec
	PricesInserted    *prometheus.CounterVec

	// Database metrics
	DBOperationsTotal *prometheus.CounterVec
	PricesStoredTotal prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FeedRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fueltracker_feed_requests_total",
				Help: "Total number of price feed requests by product and status",
			},
			[]string{"product", "status"},
		),
		FeedRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fueltracker_feed_request_duration_seconds",
				Help:    "Price feed request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"product"},
		),
		LastSyncTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fueltracker_last_sync_timestamp",
				Help: "Timestamp of the last completed sync",
			},
		),
		LatestPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fueltracker_latest_price",
				Help: "Most recent reference price per litre reported by the feed",
			},
			[]string{"product"},
		),
		PricesInserted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fueltracker_prices_inserted_total",
				Help: "Total number of price observations inserted by product",
			},
			[]string{"product"},
		),
		DBOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fueltracker_db_operations_total",
				Help: "Total number of database operations by type and status",
			},
			[]string{"operation", "status"},
		),
		PricesStoredTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fueltracker_prices_stored_total",
				Help: "Total number of price observations stored in the database",
			},
		),
	}
}

// RecordFeedRequest records a feed request metric.
func (m *Metrics) RecordFeedRequest(product, status string, seconds float64) {
	m.FeedRequestsTotal.WithLabelValues(product, status).Inc()
	m.FeedRequestDuration.WithLabelValues(product).Observe(seconds)
}

// RecordLatestPrice records the newest price of a product.
func (m *Metrics) RecordLatestPrice(product string, price float64) {
	m.LatestPrice.WithLabelValues(product).Set(price)
}

// RecordPricesInserted adds inserted rows of a product.
func (m *Metrics) RecordPricesInserted(product string, count int) {
	m.PricesInserted.WithLabelValues(product).Add(float64(count))
}

// RecordDBOperation records a database operation metric.
func (m *Metrics) RecordDBOperation(operation, status string) {
	m.DBOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSync records the completion time of a sync.
func (m *Metrics) RecordSync(finishedAt time.Time) {
	m.LastSyncTimestamp.Set(float64(finishedAt.Unix()))
}

// RecordPricesStored records the total number of stored prices.
func (m *Metrics) RecordPricesStored(count int64) {
	m.PricesStoredTotal.Set(float64(count))
}
