package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/pricing"
)

// SchedulerStatus is the read side of the scheduler.
type SchedulerStatus interface {
	IsRunning() bool
	NextSyncAt() time.Time
	LastSyncAt() *time.Time
}

// PriceBoard serves the current and upcoming prices and the price history.
type PriceBoard interface {
	Board(ctx context.Context, asOf time.Time) ([]pricing.BoardEntry, error)
	History(ctx context.Context, ft models.FuelType, from, to time.Time) ([]models.PriceObservation, error)
}

// StoreStatus reports database health.
type StoreStatus interface {
	Ping(ctx context.Context) error
	CountPrices(ctx context.Context) (int64, error)
}

// Dependencies are the components the server reports on. Scheduler may be
// nil.
type Dependencies struct {
	Ingest    *ingest.Service
	Scheduler SchedulerStatus
	Prices    PriceBoard
	Store     StoreStatus
	Metrics   *Metrics
	Gatherer  prometheus.Gatherer
}

// Server represents the HTTP server for metrics and status endpoints.
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(addr string, deps Dependencies, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "http").Logger()

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      NewHandler(deps, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler returns the routing handler of the server.
func NewHandler(deps Dependencies, logger zerolog.Logger) http.Handler {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/status", NewStatusHandler(deps))
	mux.Handle("/prices", NewPricesHandler(deps.Prices, logger))
	mux.Handle("/prices/history", NewHistoryHandler(deps.Prices, logger))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Debug().Err(err).Msg("failed to write health response")
		}
	})
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
