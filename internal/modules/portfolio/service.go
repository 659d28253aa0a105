package portfolio

import (
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/rs/zerolog"
)

// PortfolioService values the session's positions against the quote store
type PortfolioService struct {
	store        *session.Store
	quotes       *quotes.Store
	simulator    *quotes.Simulator
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewPortfolioService creates a new portfolio service. eventManager may be nil.
func NewPortfolioService(
	store *session.Store,
	quoteStore *quotes.Store,
	simulator *quotes.Simulator,
	eventManager *events.Manager,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		store:        store,
		quotes:       quoteStore,
		simulator:    simulator,
		eventManager: eventManager,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// Current values the portfolio at the latest quotes
func (s *PortfolioService) Current() Summary {
	return Valuate(s.store.Portfolio(), s.quotes.Prices())
}

// Watch calls fn with a fresh valuation after every price tick, including
// empty ones once the last position is sold. PORTFOLIO_VALUED is emitted
// while positions are held and once more when the portfolio empties. The
// returned func stops watching and releases the simulator subscription.
func (s *PortfolioService) Watch(fn func(Summary)) (stop func()) {
	// Ticks are serialized by the simulator
	held := false

	return s.simulator.Subscribe(func(snapshot []domain.Instrument) {
		prices := make(map[string]float64, len(snapshot))
		for _, inst := range snapshot {
			prices[inst.Symbol] = inst.Price
		}
		summary := Valuate(s.store.Portfolio(), prices)

		holding := len(summary.Positions) > 0
		if s.eventManager != nil && (holding || held) {
			s.eventManager.EmitTyped("portfolio", &events.PortfolioValuedData{
				TotalInvestment: summary.TotalInvestment,
				CurrentValue:    summary.CurrentValue,
				TotalPnL:        summary.TotalPnL,
				PnLPercent:      summary.PnLPercent,
				Positions:       len(summary.Positions),
			})
		}
		held = holding

		fn(summary)
	})
}
