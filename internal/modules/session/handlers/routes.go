package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session and wishlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.HandleGetSession)
		r.Get("/capabilities", h.HandleGetCapabilities)
		r.Post("/login", h.HandleLogin)
		r.Post("/otp", h.HandleSendOTP)
		r.Post("/logout", h.HandleLogout)
		r.Patch("/user", h.HandleUpdateUser)
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Get("/", h.HandleGetWishlist)
		r.Post("/", h.HandleAddToWishlist)
		r.Delete("/{symbol}", h.HandleRemoveFromWishlist)
	})
}
