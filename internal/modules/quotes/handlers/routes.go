package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all quote routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", h.HandleGetQuotes)
		r.Get("/stream", h.HandleStream) // WebSocket
		r.Get("/{symbol}", h.HandleGetQuote)
	})
}
