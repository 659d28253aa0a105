// Package handlers provides HTTP handlers for trade execution.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/modules/trading"
	"github.com/rs/zerolog"
)

// TradingHandlers contains HTTP handlers for trading API
type TradingHandlers struct {
	executor *trading.Executor
	store    *session.Store
	log      zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(executor *trading.Executor, store *session.Store, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		executor: executor,
		store:    store,
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

// orderRequest is the body of execute and validate. Orders fill at the live
// quote; a price, when given, must be within the tick band of it.
type orderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

func (req orderRequest) order() (domain.Order, error) {
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		return domain.Order{}, domain.ErrInvalidSide
	}
	return domain.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	}, nil
}

// HandleExecuteTrade handles POST /api/trades/execute
func (h *TradingHandlers) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	tx, err := h.executor.Execute(r.Context(), order)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	var balance float64
	if u := h.store.User(); u != nil {
		balance = u.WalletBalance
	}
	position, held := h.store.Position(tx.StockSymbol)

	resp := map[string]interface{}{
		"success":     true,
		"transaction": tx,
		"balance":     balance,
	}
	if held {
		resp["position"] = position
	} else {
		resp["position"] = nil
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// HandleValidateTrade handles POST /api/trades/validate
func (h *TradingHandlers) HandleValidateTrade(w http.ResponseWriter, r *http.Request) {
	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	prepared, err := h.executor.Validate(order)
	resp := map[string]interface{}{
		"valid": err == nil,
		"order": prepared,
		"total": prepared.Total(),
	}
	if err != nil {
		resp["reason"] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetTrades handles GET /api/trades
func (h *TradingHandlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	log := h.store.Transactions()
	total := len(log)
	if len(log) > limit {
		log = log[:limit]
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": log,
		"count":  len(log),
		"total":  total,
	})
}

func (h *TradingHandlers) decodeOrder(w http.ResponseWriter, r *http.Request) (domain.Order, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return domain.Order{}, false
	}
	order, err := req.order()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return domain.Order{}, false
	}
	return order, true
}

func (h *TradingHandlers) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrUnknownSymbol):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrInsufficientShares):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStalePrice):
		h.writeError(w, http.StatusConflict, err.Error())
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Trade execution failed")
		h.writeError(w, http.StatusInternalServerError, "Trade execution failed")
	}
}

// writeJSON writes a JSON response
func (h *TradingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *TradingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
