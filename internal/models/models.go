// Package models provides shared data types for the fuel tracker.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout used for date-only values in storage and APIs.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The calendar date is taken in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceObservation is one official list price as published by the feed.
type PriceObservation struct {
	ID uuid.UUID `json:"id"`
	// ProductName is the feed's own label for the grade (e.g. "無鉛汽油95").
	ProductName string `json:"product_name"`
	// Price is the price per litre.
	Price decimal.Decimal `json:"price"`
	// EffectiveDate is the calendar date from which the price applies.
	EffectiveDate time.Time `json:"effective_date"`
	// FetchedAt is when the feed document was fetched.
	FetchedAt time.Time `json:"fetched_at"`
}

// PriceKey identifies a price observation for deduplication.
type PriceKey struct {
	ProductName string
	Date        string
}

// Key returns the deduplication key of the observation.
func (p PriceObservation) Key() PriceKey {
	return PriceKey{ProductName: p.ProductName, Date: p.EffectiveDate.Format(DateLayout)}
}

// SyncRun records the outcome of one ingestion cycle.
type SyncRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// ProductStatus holds the operational status of a polled feed product.
type ProductStatus struct {
	FuelType           string     `json:"fuel_type"`
	ProductName        string     `json:"product_name"`
	LastFetchAt        *time.Time `json:"last_fetch_at"`
	LastFetchSuccess   bool       `json:"last_fetch_success"`
	LastResponseTimeMs int64      `json:"last_response_time_ms"`
	LastPrice          *string    `json:"last_price"`
	LastInserted       int        `json:"last_inserted"`
	LastError          *string    `json:"last_error"`
	TotalRequests      int64      `json:"total_requests"`
	TotalErrors        int64      `json:"total_errors"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status            string                   `json:"status"`
	UptimeSeconds     int64                    `json:"uptime_seconds"`
	SchedulerRunning  bool                     `json:"scheduler_running"`
	NextSyncAt        *time.Time               `json:"next_sync_at,omitempty"`
	LastScheduledSync *time.Time               `json:"last_scheduled_sync_at,omitempty"`
	LastSyncRun       *SyncRun                 `json:"last_sync_run,omitempty"`
	Products          map[string]ProductStatus `json:"products"`
	Database          DatabaseStatus           `json:"database"`
}

// DatabaseStatus holds the database connection status.
type DatabaseStatus struct {
	Connected         bool  `json:"connected"`
	TotalPricesStored int64 `json:"total_prices_stored"`
}
