// Package charts generates synthetic intraday, weekly and monthly price series.
package charts

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
)

// Timeframe selects the span and resolution of a series
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
)

// DefaultBasePrice is used when no instrument anchors the series
const DefaultBasePrice = 2400.0

// floorRatio keeps a generated series above this fraction of its base
const floorRatio = 0.8

type timeframeSpec struct {
	points     int
	volatility float64
	label      func(i int, now time.Time) string
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

var timeframes = map[Timeframe]timeframeSpec{
	// Five-minute bars from the 09:00 open
	Timeframe1D: {points: 78, volatility: 0.002, label: func(i int, now time.Time) string {
		open := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
		return open.Add(time.Duration(i) * 5 * time.Minute).Format("15:04")
	}},
	// Seven half-hour slots per weekday
	Timeframe1W: {points: 35, volatility: 0.01, label: func(i int, _ time.Time) string {
		slot := i % 7
		return fmt.Sprintf("%s %02d:%02d", weekdays[i/7], 9+slot/2, (slot%2)*30)
	}},
	// One point per calendar day ending yesterday
	Timeframe1M: {points: 30, volatility: 0.03, label: func(i int, now time.Time) string {
		return now.AddDate(0, 0, -(30 - i)).Format("02 Jan")
	}},
}

// ParseTimeframe accepts 1D/1W/1M in any case; empty means 1D
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return Timeframe1D, nil
	}
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := timeframes[tf]; !ok {
		return "", domain.ErrInvalidTimeframe
	}
	return tf, nil
}

// Points returns how many samples a timeframe produces
func (tf Timeframe) Points() int {
	return timeframes[tf].points
}

// Volatility returns the per-step volatility for a timeframe
func (tf Timeframe) Volatility() float64 {
	return timeframes[tf].volatility
}

// Series is a labelled price path
type Series struct {
	Timeframe Timeframe `json:"timeframe"`
	BasePrice float64   `json:"basePrice"`
	Labels    []string  `json:"labels"`
	Prices    []float64 `json:"prices"`
}

// Point is one labelled sample
type Point struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// Points zips labels and prices
func (s Series) Points() []Point {
	points := make([]Point, len(s.Prices))
	for i := range s.Prices {
		points[i] = Point{Time: s.Labels[i], Price: s.Prices[i]}
	}
	return points
}

// Generate builds a random walk with a sinusoidal drift around basePrice.
// Prices never fall below 80% of basePrice and are rounded to paise.
func Generate(tf Timeframe, basePrice float64, now time.Time, rng *rand.Rand) (Series, error) {
	spec, ok := timeframes[tf]
	if !ok {
		return Series{}, domain.ErrInvalidTimeframe
	}
	if basePrice <= 0 || math.IsNaN(basePrice) || math.IsInf(basePrice, 0) {
		return Series{}, domain.ErrInvalidPrice
	}

	n := spec.points
	series := Series{
		Timeframe: tf,
		BasePrice: basePrice,
		Labels:    make([]string, n),
		Prices:    make([]float64, n),
	}

	floor := basePrice * floorRatio
	price := basePrice
	for i := 0; i < n; i++ {
		walk := (rng.Float64() - 0.5) * 2
		trend := math.Sin(float64(i)/float64(n)*2*math.Pi) * 0.3
		price = math.Max(price+(walk+trend)*spec.volatility*price, floor)

		series.Labels[i] = spec.label(i, now)
		series.Prices[i] = round2(price)
	}

	return series, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
