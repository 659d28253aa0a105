package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers wallet routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/wallet", func(r chi.Router) {
		r.Get("/", h.HandleGetWallet)
		r.Post("/add", h.HandleAddFunds)
		r.Post("/withdraw", h.HandleWithdraw)
	})
}
