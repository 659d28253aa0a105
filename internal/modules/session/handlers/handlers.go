// Package handlers provides HTTP handlers for the session and wishlist.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/rs/zerolog"
)

// Authenticator signs users in against the backend
type Authenticator interface {
	LoginEmail(ctx context.Context, email, password string) (*backend.Login, error)
	VerifyMobileLogin(ctx context.Context, mobile, otp string) (*backend.Login, error)
	SendLoginOTP(ctx context.Context, mobile string) error
	SuperAdminLogin(ctx context.Context, email, password string) (*backend.Login, error)
}

// Handler handles session and wishlist HTTP requests
type Handler struct {
	store        *session.Store
	quotes       session.QuoteSource
	auth         Authenticator
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new session handler. eventManager may be nil.
func NewHandler(
	store *session.Store,
	quotes session.QuoteSource,
	auth Authenticator,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		store:        store,
		quotes:       quotes,
		auth:         auth,
		eventManager: eventManager,
		log:          log.With().Str("handler", "session").Logger(),
	}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Mobile     string `json:"mobile"`
	OTP        string `json:"otp"`
	SuperAdmin bool   `json:"superadmin"`
}

// HandleGetSession handles GET /api/session
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated":    snap.Authenticated,
		"user":             snap.User,
		"role":             snap.Role,
		"redirectsToAdmin": snap.Role.RedirectsToAdmin(),
		"positions":        len(snap.Portfolio),
		"transactions":     len(snap.Transactions),
		"wishlist":         len(snap.Wishlist),
	})
}

// HandleGetCapabilities handles GET /api/session/capabilities
func (h *Handler) HandleGetCapabilities(w http.ResponseWriter, r *http.Request) {
	role := h.store.Role()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":             role,
		"capabilities":     role.Capabilities(),
		"redirectsToAdmin": role.RedirectsToAdmin(),
	})
}

// HandleLogin handles POST /api/session/login. Email/password, mobile/OTP
// and superadmin sign-in share the endpoint.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		login *backend.Login
		err   error
	)
	switch {
	case req.SuperAdmin && req.Email != "":
		login, err = h.auth.SuperAdminLogin(r.Context(), req.Email, req.Password)
	case req.Email != "":
		login, err = h.auth.LoginEmail(r.Context(), req.Email, req.Password)
	case req.Mobile != "" && req.OTP != "":
		login, err = h.auth.VerifyMobileLogin(r.Context(), req.Mobile, req.OTP)
	default:
		h.writeError(w, http.StatusBadRequest, "email/password or mobile/otp required")
		return
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.store.Login(login.Token, login.User)
	user := h.store.User()
	h.emitSession("login", user)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":             user,
		"role":             user.Role,
		"redirectsToAdmin": user.Role.RedirectsToAdmin(),
	})
}

// HandleSendOTP handles POST /api/session/otp
func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Mobile) == "" {
		h.writeError(w, http.StatusBadRequest, "mobile required")
		return
	}
	if err := h.auth.SendLoginOTP(r.Context(), req.Mobile); err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// HandleLogout handles POST /api/session/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := h.store.User()
	h.store.Logout()
	h.emitSession("logout", user)
	h.writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

// HandleUpdateUser handles PATCH /api/session/user
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.UpdateUser(patch)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.emitSession("update", &user)
	h.writeJSON(w, http.StatusOK, user)
}

// HandleGetWishlist handles GET /api/wishlist
func (h *Handler) HandleGetWishlist(w http.ResponseWriter, r *http.Request) {
	items := h.store.LiveWishlist(h.quotes)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// HandleAddToWishlist handles POST /api/wishlist
func (h *Handler) HandleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inst, ok := h.quotes.Get(req.Symbol)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown symbol: "+req.Symbol)
		return
	}

	added := h.store.AddToWishlist(domain.WishlistItemFrom(inst))
	if added {
		h.emitWishlist(inst.Symbol, "added")
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": inst.Symbol,
		"added":  added,
	})
}

// HandleRemoveFromWishlist handles DELETE /api/wishlist/{symbol}
func (h *Handler) HandleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	removed := h.store.RemoveFromWishlist(symbol)
	if removed {
		h.emitWishlist(symbol, "removed")
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"removed": removed,
	})
}

func (h *Handler) emitSession(action string, user *domain.User) {
	if h.eventManager == nil {
		return
	}
	data := &events.SessionChangedData{Action: action}
	if user != nil {
		data.UserID = user.ID
		data.Role = string(user.Role)
	}
	h.eventManager.EmitTyped("session", data)
}

func (h *Handler) emitWishlist(symbol, action string) {
	if h.eventManager == nil {
		return
	}
	h.eventManager.EmitTyped("session", &events.WishlistChangedData{
		Symbol: symbol,
		Action: action,
		Count:  len(h.store.Wishlist()),
	})
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		h.writeError(w, http.StatusUnauthorized, apiErr.Message)
		return
	}
	h.log.Error().Err(err).Msg("Sign-in failed")
	h.writeError(w, http.StatusBadGateway, "Authentication service unavailable")
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
