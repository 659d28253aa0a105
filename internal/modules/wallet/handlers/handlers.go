// Package handlers provides HTTP handlers for the wallet.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/modules/wallet"
	"github.com/rs/zerolog"
)

// Handler handles wallet HTTP requests
type Handler struct {
	service *wallet.Service
	log     zerolog.Logger
}

// NewHandler creates a new wallet handler
func NewHandler(service *wallet.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "wallet").Logger(),
	}
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// HandleGetWallet handles GET /api/wallet. When the backend is unreachable
// the local balance is served with synced=false.
func (h *Handler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Balance()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"balance":      balance,
		"transactions": []backend.WalletTransaction{},
		"synced":       false,
	}
	if history, err := h.service.History(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Serving local wallet balance")
	} else {
		resp["balance"] = history.Balance
		resp["synced"] = true
		if history.Transactions != nil {
			resp["transactions"] = history.Transactions
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleAddFunds handles POST /api/wallet/add
func (h *Handler) HandleAddFunds(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, h.service.AddFunds)
}

// HandleWithdraw handles POST /api/wallet/withdraw
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, h.service.Withdraw)
}

func (h *Handler) handleChange(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, amount float64) (domain.Transaction, error),
) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := op(r.Context(), req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	balance, _ := h.service.Balance()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":     balance,
		"transaction": tx,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, domain.ErrNoSession):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		h.writeError(w, http.StatusBadGateway, apiErr.Message)
	default:
		h.log.Error().Err(err).Msg("Wallet operation failed")
		h.writeError(w, http.StatusBadGateway, err.Error())
	}
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
