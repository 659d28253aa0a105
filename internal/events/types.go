// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Market events
	PriceUpdated EventType = "PRICE_UPDATED"

	// Ledger events
	TradeExecuted    EventType = "TRADE_EXECUTED"
	PortfolioChanged EventType = "PORTFOLIO_CHANGED"
	PortfolioValued  EventType = "PORTFOLIO_VALUED"
	WalletUpdated    EventType = "WALLET_UPDATED"
	WishlistChanged  EventType = "WISHLIST_CHANGED"

	// Session events
	SessionChanged EventType = "SESSION_CHANGED"

	// System events
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in a stable order
func AllTypes() []EventType {
	return []EventType{
		PriceUpdated,
		TradeExecuted,
		PortfolioChanged,
		PortfolioValued,
		WalletUpdated,
		WishlistChanged,
		SessionChanged,
		SystemStatusChanged,
		ErrorOccurred,
	}
}

// Event represents a system event as delivered to bus subscribers
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}
