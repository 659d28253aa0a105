package charts

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidPeriod is returned when an indicator period does not fit the series
var ErrInvalidPeriod = errors.New("indicator period must be at least 2 and shorter than the series")

// Summary describes a series at a glance
type Summary struct {
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`
	ChangePct float64 `json:"changePct"`
}

// Summarize computes open/close/range and dispersion of the series
func Summarize(s Series) Summary {
	if len(s.Prices) == 0 {
		return Summary{}
	}

	summary := Summary{
		Open:  s.Prices[0],
		Close: s.Prices[len(s.Prices)-1],
		High:  floats.Max(s.Prices),
		Low:   floats.Min(s.Prices),
		Mean:  stat.Mean(s.Prices, nil),
	}
	if len(s.Prices) > 1 {
		summary.StdDev = stat.StdDev(s.Prices, nil)
	}
	if summary.Open > 0 {
		summary.ChangePct = (summary.Close - summary.Open) / summary.Open * 100
	}
	return summary
}

// Overlay holds indicator lines aligned with the series; warm-up samples are nil
type Overlay struct {
	Period int        `json:"period"`
	SMA    []*float64 `json:"sma"`
	EMA    []*float64 `json:"ema"`
	RSI    []*float64 `json:"rsi"`
}

// Indicators computes SMA, EMA and RSI over the series
func Indicators(s Series, period int) (Overlay, error) {
	if period < 2 || period >= len(s.Prices) {
		return Overlay{}, ErrInvalidPeriod
	}

	return Overlay{
		Period: period,
		SMA:    mask(talib.Sma(s.Prices, period), period-1),
		EMA:    mask(talib.Ema(s.Prices, period), period-1),
		RSI:    mask(talib.Rsi(s.Prices, period), period),
	}, nil
}

// mask drops the first lookback samples, which carry no signal
func mask(values []float64, lookback int) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if i < lookback || math.IsNaN(values[i]) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}
