// Package portfolio values open positions against live quotes.
package portfolio

import (
	"math"

	"github.com/niftybulk/papertrade/internal/domain"
)

// Holding is one valued position
type Holding struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"currentValue"`
	PnL          float64 `json:"pnl"`
	PnLPercent   float64 `json:"pnlPercent"`
	LivePrice    bool    `json:"livePrice"`
}

// Summary is the valuation of a whole portfolio
type Summary struct {
	TotalInvestment float64   `json:"totalInvestment"`
	CurrentValue    float64   `json:"currentValue"`
	TotalPnL        float64   `json:"totalPnL"`
	PnLPercent      float64   `json:"pnlPercent"`
	Positions       []Holding `json:"positions"`
}

// Valuate prices every position at the live quote in prices, falling back
// to the position's last-known price. It has no side effects.
func Valuate(positions []domain.Position, prices map[string]float64) Summary {
	s := Summary{Positions: make([]Holding, 0, len(positions))}

	for _, p := range positions {
		price, live := prices[p.Symbol]
		if !live {
			price = p.CurrentPrice
		}

		qty := float64(p.Quantity)
		h := Holding{
			Symbol:       p.Symbol,
			Name:         p.Name,
			Quantity:     p.Quantity,
			AvgPrice:     p.AvgPrice,
			CurrentPrice: price,
			Invested:     p.AvgPrice * qty,
			CurrentValue: price * qty,
			LivePrice:    live,
		}
		h.PnL = h.CurrentValue - h.Invested
		h.PnLPercent = percent(h.PnL, h.Invested)

		s.TotalInvestment += h.Invested
		s.CurrentValue += h.CurrentValue
		s.Positions = append(s.Positions, h)
	}

	// P&L comes from the rounded totals so the reported figures add up
	s.TotalInvestment = round(s.TotalInvestment, 2)
	s.CurrentValue = round(s.CurrentValue, 2)
	s.TotalPnL = s.CurrentValue - s.TotalInvestment
	s.PnLPercent = round(percent(s.TotalPnL, s.TotalInvestment), 2)
	return s
}

// percent is part/whole*100, or 0 when whole is 0
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
