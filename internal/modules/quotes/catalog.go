// Package quotes holds the live quote store and the price simulator that drives it.
package quotes

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/niftybulk/papertrade/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// DefaultCatalog returns the embedded Nifty 50 seed, normalized
func DefaultCatalog() ([]domain.Instrument, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a YAML instrument list. Every entry is normalized
// so the price floor and the changePercent relation hold from the first read.
func ParseCatalog(data []byte) ([]domain.Instrument, error) {
	var instruments []domain.Instrument
	if err := yaml.Unmarshal(data, &instruments); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(instruments))
	for i := range instruments {
		inst := &instruments[i]
		inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
		if inst.Symbol == "" {
			return nil, fmt.Errorf("catalog entry %d has no symbol", i)
		}
		if seen[inst.Symbol] {
			return nil, fmt.Errorf("duplicate catalog symbol %s", inst.Symbol)
		}
		seen[inst.Symbol] = true

		if inst.Volume == "" {
			inst.Volume = formatVolume(minVolume)
		}
		inst.Normalize()
	}

	return instruments, nil
}
