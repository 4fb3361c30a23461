package ingest

import (
	"sync"
	"time"
)

// Metrics holds fetch metrics for one product.
type Metrics struct {
	mu               sync.RWMutex
	TotalRequests    int64
	TotalErrors      int64
	LastFetchAt      *time.Time
	LastFetchSuccess bool
	LastResponseTime time.Duration
	LastPrice        *string
	LastInserted     int
	LastError        *string
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalRequests:    m.TotalRequests,
		TotalErrors:      m.TotalErrors,
		LastFetchAt:      m.LastFetchAt,
		LastFetchSuccess: m.LastFetchSuccess,
		LastResponseTime: m.LastResponseTime,
		LastPrice:        m.LastPrice,
		LastInserted:     m.LastInserted,
		LastError:        m.LastError,
	}
}

// MetricsSnapshot is a thread-safe copy of Metrics data.
type MetricsSnapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	LastFetchAt      *time.Time
	LastFetchSuccess bool
	LastResponseTime time.Duration
	LastPrice        *string
	LastInserted     int
	LastError        *string
}

func (m *Metrics) recordFetch(at time.Time, duration time.Duration, latestPrice *string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRequests++
	m.LastFetchAt = &at
	m.LastResponseTime = duration
	if err != nil {
		m.TotalErrors++
		m.LastFetchSuccess = false
		errStr := err.Error()
		m.LastError = &errStr
		return
	}
	m.LastFetchSuccess = true
	m.LastError = nil
	if latestPrice != nil {
		m.LastPrice = latestPrice
	}
}

func (m *Metrics) recordInserted(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastInserted = n
	if err != nil {
		m.TotalErrors++
		errStr := err.Error()
		m.LastError = &errStr
	}
}

// Recorder receives ingestion events for export, e.g. to Prometheus.
type Recorder interface {
	RecordFeedRequest(product, status string, seconds float64)
	RecordLatestPrice(product string, price float64)
	RecordPricesInserted(product string, count int)
	RecordDBOperation(operation, status string)
	RecordSync(finishedAt time.Time)
}

type nopRecorder struct{}

func (nopRecorder) RecordFeedRequest(string, string, float64) {}
func (nopRecorder) RecordLatestPrice(string, float64)         {}
func (nopRecorder) RecordPricesInserted(string, int)          {}
func (nopRecorder) RecordDBOperation(string, string)          {}
func (nopRecorder) RecordSync(time.Time)                      {}
