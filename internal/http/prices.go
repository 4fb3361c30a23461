package http

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/pricing"
)

// PricesResponse is the response for the /prices endpoint.
type PricesResponse struct {
	Date   string               `json:"date"`
	Prices []pricing.BoardEntry `json:"prices"`
}

// PricesHandler handles the /prices endpoint. The optional date query
// parameter (YYYY-MM-DD) selects the day, default is today.
type PricesHandler struct {
	board  PriceBoard
	logger zerolog.Logger
	now    func() time.Time
}

// NewPricesHandler creates a new PricesHandler.
func NewPricesHandler(board PriceBoard, logger zerolog.Logger) *PricesHandler {
	return &PricesHandler{board: board, logger: logger, now: time.Now}
}

// ServeHTTP implements the http.Handler interface.
func (h *PricesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.board == nil {
		http.Error(w, "prices unavailable", http.StatusServiceUnavailable)
		return
	}

	asOf := models.DateOf(h.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	board, err := h.board.Board(r.Context(), asOf)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build price board")
		http.Error(w, "failed to load prices", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PricesResponse{
		Date:   asOf.Format(models.DateLayout),
		Prices: board,
	})
}

// HistoryResponse is the response for the /prices/history endpoint.
type HistoryResponse struct {
	FuelType models.FuelType           `json:"fuel_type"`
	From     string                    `json:"from"`
	To       string                    `json:"to"`
	Prices   []models.PriceObservation `json:"prices"`
}

// HistoryHandler handles the /prices/history endpoint. fuel_type is
// required, from and to (YYYY-MM-DD) default to the year up to today.
type HistoryHandler struct {
	board  PriceBoard
	logger zerolog.Logger
	now    func() time.Time
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(board PriceBoard, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{board: board, logger: logger, now: time.Now}
}

// ServeHTTP implements the http.Handler interface.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.board == nil {
		http.Error(w, "prices unavailable", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	var ft models.FuelType
	if err := ft.UnmarshalText([]byte(q.Get("fuel_type"))); err != nil {
		http.Error(w, "invalid fuel_type, expected gas92, gas95, gas98 or diesel", http.StatusBadRequest)
		return
	}

	to := models.DateOf(h.now())
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			http.Error(w, "invalid to, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = parsed
	}
	from := to.AddDate(-1, 0, 0)
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			http.Error(w, "invalid from, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if from.After(to) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return
	}

	prices, err := h.board.History(r.Context(), ft, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("fuel_type", ft.Code()).Msg("failed to load price history")
		http.Error(w, "failed to load prices", http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []models.PriceObservation{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		FuelType: ft,
		From:     from.Format(models.DateLayout),
		To:       to.Format(models.DateLayout),
		Prices:   prices,
	})
}
