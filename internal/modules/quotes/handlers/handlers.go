// Package handlers provides HTTP handlers for live quotes.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/rs/zerolog"
)

// Handler serves quote snapshots and the live quote stream
type Handler struct {
	store     *quotes.Store
	simulator *quotes.Simulator
	log       zerolog.Logger
}

// NewHandler creates a new quotes handler
func NewHandler(store *quotes.Store, simulator *quotes.Simulator, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		simulator: simulator,
		log:       log.With().Str("handler", "quotes").Logger(),
	}
}

// HandleGetQuotes handles GET /api/quotes
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Snapshot()

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		q = strings.ToLower(q)
		filtered := snapshot[:0]
		for _, inst := range snapshot {
			if strings.Contains(strings.ToLower(inst.Symbol), q) ||
				strings.Contains(strings.ToLower(inst.FullName), q) {
				filtered = append(filtered, inst)
			}
		}
		snapshot = filtered
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": snapshot,
		"count":  len(snapshot),
		"tick":   h.simulator.Ticks(),
	})
}

// HandleGetQuote handles GET /api/quotes/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, ok := h.store.Get(symbol)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown symbol: "+symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, inst)
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
