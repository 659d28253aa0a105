package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	Instruments int `json:"instruments"`
	Tick        int `json:"tick"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TransactionID string  `json:"transaction_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	Amount        float64 `json:"amount"`
	Balance       float64 `json:"balance"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// PortfolioChangedData contains data for PortfolioChanged events
type PortfolioChangedData struct {
	Symbol    string `json:"symbol"`
	Quantity  int    `json:"quantity"`
	Positions int    `json:"positions"`
}

// EventType returns the event type for PortfolioChangedData
func (d *PortfolioChangedData) EventType() EventType {
	return PortfolioChanged
}

// PortfolioValuedData contains data for PortfolioValued events
type PortfolioValuedData struct {
	TotalInvestment float64 `json:"total_investment"`
	CurrentValue    float64 `json:"current_value"`
	TotalPnL        float64 `json:"total_pnl"`
	PnLPercent      float64 `json:"pnl_percent"`
	Positions       int     `json:"positions"`
}

// EventType returns the event type for PortfolioValuedData
func (d *PortfolioValuedData) EventType() EventType {
	return PortfolioValued
}

// WalletUpdatedData contains data for WalletUpdated events
type WalletUpdatedData struct {
	Action  string  `json:"action"` // add_funds, withdraw, sync
	Amount  float64 `json:"amount,omitempty"`
	Balance float64 `json:"balance"`
}

// EventType returns the event type for WalletUpdatedData
func (d *WalletUpdatedData) EventType() EventType {
	return WalletUpdated
}

// WishlistChangedData contains data for WishlistChanged events
type WishlistChangedData struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"` // added, removed
	Count  int    `json:"count"`
}

// EventType returns the event type for WishlistChangedData
func (d *WishlistChangedData) EventType() EventType {
	return WishlistChanged
}

// SessionChangedData contains data for SessionChanged events
type SessionChangedData struct {
	Action string `json:"action"` // login, logout, update
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// EventType returns the event type for SessionChangedData
func (d *SessionChangedData) EventType() EventType {
	return SessionChanged
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
