package quotes

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/niftybulk/papertrade/internal/domain"
)

const (
	// MaxTickMove bounds a single tick to ±0.5% of the current price
	MaxTickMove = 0.005

	volumeJitter = 0.1
	minVolume    = 0.1
)

// Tick advances one instrument by a bounded random step. The session change
// accumulates the move and changePercent is re-derived against the implied
// reference price (price - change).
func Tick(inst domain.Instrument, rng *rand.Rand) domain.Instrument {
	maxChange := inst.Price * MaxTickMove
	delta := (rng.Float64()*2 - 1) * maxChange

	newPrice := math.Max(inst.Price+delta, domain.MinPrice)
	inst.Change += newPrice - inst.Price
	inst.Price = newPrice

	if inst.ReferencePrice() < domain.MinPrice {
		inst.Change = newPrice - domain.MinPrice
	}
	inst.ChangePercent = inst.Change / inst.ReferencePrice() * 100

	inst.Volume = perturbVolume(inst.Volume, rng)
	return inst
}

func perturbVolume(volume string, rng *rand.Rand) string {
	v := parseVolume(volume)
	v = math.Max(v+(rng.Float64()-0.5)*volumeJitter, minVolume)
	return formatVolume(v)
}

// parseVolume reads "6.4M" as 6.4; anything unparseable is 0
func parseVolume(volume string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(volume), "M"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func formatVolume(v float64) string {
	return fmt.Sprintf("%.1fM", v)
}
