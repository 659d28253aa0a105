package trading

import (
	"strings"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// QuoteSource provides the live quote for a symbol
type QuoteSource interface {
	Get(symbol string) (domain.Instrument, bool)
}

// TradeSafetyService checks an order against the session before it is applied.
// The session store re-checks balance and holdings under its lock, so a
// passing check is advisory until ApplyTrade commits.
type TradeSafetyService struct {
	store  *session.Store
	quotes QuoteSource
	log    zerolog.Logger
}

// NewTradeSafetyService creates a new trade safety service
func NewTradeSafetyService(store *session.Store, quotes QuoteSource, log zerolog.Logger) *TradeSafetyService {
	return &TradeSafetyService{
		store:  store,
		quotes: quotes,
		log:    log.With().Str("service", "trade_safety").Logger(),
	}
}

// ValidateTrade runs all validation layers and returns a *domain.TradeError
// for the first one that fails
func (s *TradeSafetyService) ValidateTrade(order domain.Order) error {
	order.Symbol = strings.ToUpper(strings.TrimSpace(order.Symbol))

	// Layer 0: an active session allowed to trade
	user := s.store.User()
	if user == nil || !user.Can(domain.CapTrade) {
		return s.reject(order, domain.ErrNoSession, 0, 0)
	}

	// Layer 1: the symbol is listed
	if _, ok := s.quotes.Get(order.Symbol); !ok {
		return s.reject(order, domain.ErrUnknownSymbol, 0, 0)
	}

	// Layer 2: order shape
	if err := order.Validate(); err != nil {
		return s.reject(order, err, 0, 0)
	}

	switch order.Side {
	case domain.SideBuy:
		// Layer 3: wallet covers the total
		total := decimal.NewFromInt(int64(order.Quantity)).Mul(decimal.NewFromFloat(order.Price))
		if total.GreaterThan(decimal.NewFromFloat(user.WalletBalance)) {
			return s.reject(order, domain.ErrInsufficientBalance, total.InexactFloat64(), user.WalletBalance)
		}
	case domain.SideSell:
		// Layer 4: enough shares held
		pos, _ := s.store.Position(order.Symbol)
		if order.Quantity > pos.Quantity {
			return s.reject(order, domain.ErrInsufficientShares, float64(order.Quantity), float64(pos.Quantity))
		}
	}

	return nil
}

func (s *TradeSafetyService) reject(order domain.Order, reason error, need, have float64) error {
	s.log.Debug().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Int("quantity", order.Quantity).
		Str("reason", reason.Error()).
		Msg("Trade rejected by safety validations")
	return &domain.TradeError{Order: order, Reason: reason, Need: need, Have: have}
}
