package charts

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// PriceSource resolves the live price of an instrument
type PriceSource interface {
	Price(symbol string) (float64, bool)
}

// Service generates chart series anchored at live prices
type Service struct {
	prices PriceSource
	now    func() time.Time
	log    zerolog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewService creates a new charts service. A nil rng gets a randomly seeded source.
func NewService(prices PriceSource, rng *rand.Rand, log zerolog.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{
		prices: prices,
		now:    time.Now,
		rng:    rng,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// ForSymbol generates a series for symbol based at its live price.
// An empty symbol uses DefaultBasePrice.
func (s *Service) ForSymbol(symbol string, tf Timeframe) (Series, error) {
	base := DefaultBasePrice
	if symbol != "" {
		price, ok := s.prices.Price(symbol)
		if !ok {
			return Series{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
		}
		base = price
	}

	s.mu.Lock()
	series, err := Generate(tf, base, s.now(), s.rng)
	s.mu.Unlock()
	if err != nil {
		return Series{}, err
	}

	s.log.Debug().
		Str("symbol", symbol).
		Str("timeframe", string(tf)).
		Float64("base", base).
		Msg("Generated chart series")

	return series, nil
}
