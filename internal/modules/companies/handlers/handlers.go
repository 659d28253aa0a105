// Package handlers provides HTTP handlers for company profiles.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/modules/companies"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/rs/zerolog"
)

// Handler serves company profiles
type Handler struct {
	directory *companies.Directory
	quotes    *quotes.Store
	log       zerolog.Logger
}

// NewHandler creates a new companies handler
func NewHandler(directory *companies.Directory, quoteStore *quotes.Store, log zerolog.Logger) *Handler {
	return &Handler{
		directory: directory,
		quotes:    quoteStore,
		log:       log.With().Str("handler", "companies").Logger(),
	}
}

// HandleGetCompany handles GET /api/companies/{symbol}.
// Only instruments in the quote store have a profile.
func (h *Handler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, ok := h.quotes.Get(symbol)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown symbol: "+symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile": h.directory.Lookup(inst.Symbol, inst.FullName),
		"quote":   inst,
	})
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
