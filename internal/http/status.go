package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	ingest    *ingest.Service
	scheduler SchedulerStatus
	store     StoreStatus
	metrics   *Metrics
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(deps Dependencies) *StatusHandler {
	return &StatusHandler{
		ingest:    deps.Ingest,
		scheduler: deps.Scheduler,
		store:     deps.Store,
		metrics:   deps.Metrics,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Products:      make(map[string]models.ProductStatus),
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastScheduledSync = h.scheduler.LastSyncAt()
		nextSync := h.scheduler.NextSyncAt()
		if !nextSync.IsZero() {
			response.NextSyncAt = &nextSync
		}
	}

	if h.ingest != nil {
		for _, product := range h.ingest.Products() {
			metrics := h.ingest.GetMetrics(product.Name)
			if metrics == nil {
				continue
			}

			snapshot := metrics.GetSnapshot()
			response.Products[product.FuelType.Code()] = models.ProductStatus{
				FuelType:           product.FuelType.Code(),
				ProductName:        product.Name,
				LastFetchAt:        snapshot.LastFetchAt,
				LastFetchSuccess:   snapshot.LastFetchSuccess,
				LastResponseTimeMs: snapshot.LastResponseTime.Milliseconds(),
				LastPrice:          snapshot.LastPrice,
				LastInserted:       snapshot.LastInserted,
				LastError:          snapshot.LastError,
				TotalRequests:      snapshot.TotalRequests,
				TotalErrors:        snapshot.TotalErrors,
			}
		}

		if run, ok, err := h.ingest.LastSync(ctx); err == nil && ok {
			response.LastSyncRun = &run
		}
	}

	response.Database = h.getDatabaseStatus(ctx)
	if !response.Database.Connected {
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{
		Connected: false,
	}

	if h.store == nil {
		return status
	}

	if err := h.store.Ping(ctx); err != nil {
		return status
	}
	status.Connected = true

	count, err := h.store.CountPrices(ctx)
	if err == nil {
		status.TotalPricesStored = count
		if h.metrics != nil {
			h.metrics.RecordPricesStored(count)
		}
	}

	return status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
