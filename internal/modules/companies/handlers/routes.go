package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all company routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/companies/{symbol}", h.HandleGetCompany)
}
