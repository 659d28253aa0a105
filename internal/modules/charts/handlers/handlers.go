// Package handlers provides HTTP handlers for chart series.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/modules/charts"
	"github.com/rs/zerolog"
)

// Handler serves generated chart series
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetChart handles GET /api/charts/{symbol}?timeframe=1D&indicators=14.
// Without a symbol (GET /api/charts/) the series is anchored at the default base.
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	tf, err := charts.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.service.ForSymbol(symbol, tf)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownSymbol):
			h.writeError(w, http.StatusNotFound, err.Error())
		case domain.IsValidation(err):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to generate chart")
			h.writeError(w, http.StatusInternalServerError, "Failed to generate chart")
		}
		return
	}

	response := map[string]interface{}{
		"symbol":  symbol,
		"series":  series,
		"points":  series.Points(),
		"summary": charts.Summarize(series),
	}

	if raw := r.URL.Query().Get("indicators"); raw != "" {
		period, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "indicators must be an integer period")
			return
		}
		overlay, err := charts.Indicators(series, period)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		response["indicators"] = overlay
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
