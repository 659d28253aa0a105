// Package companies serves static company fundamentals for the instrument detail view.
package companies

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Performance is trailing price performance in percent
type Performance struct {
	OneWeek     float64 `json:"oneWeek" yaml:"one_week"`
	OneMonth    float64 `json:"oneMonth" yaml:"one_month"`
	ThreeMonths float64 `json:"threeMonths" yaml:"three_months"`
	OneYear     float64 `json:"oneYear" yaml:"one_year"`
}

// Profile holds company fundamentals
type Profile struct {
	Symbol       string      `json:"symbol" yaml:"-"`
	Name         string      `json:"name" yaml:"name"`
	Industry     string      `json:"industry" yaml:"industry"`
	Founded      int         `json:"founded" yaml:"founded"`
	Employees    string      `json:"employees" yaml:"employees"`
	Headquarters string      `json:"headquarters" yaml:"headquarters"`
	Description  string      `json:"description" yaml:"description"`
	Revenue      string      `json:"revenue" yaml:"revenue"`
	NetProfit    string      `json:"netProfit" yaml:"net_profit"`
	ROE          string      `json:"roe" yaml:"roe"`
	DebtToEquity string      `json:"debtToEquity" yaml:"debt_to_equity"`
	MarketCap    string      `json:"marketCap" yaml:"market_cap"`
	Performance  Performance `json:"performance" yaml:"performance"`
	Default      bool        `json:"isDefault" yaml:"-"`
}

// Directory looks up company profiles
type Directory struct {
	profiles map[string]Profile
}

// NewDirectory loads the embedded profiles
func NewDirectory() (*Directory, error) {
	return ParseDirectory(profilesYAML)
}

// ParseDirectory decodes a symbol-keyed YAML profile table
func ParseDirectory(data []byte) (*Directory, error) {
	var raw map[string]Profile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse company profiles: %w", err)
	}

	profiles := make(map[string]Profile, len(raw))
	for symbol, p := range raw {
		symbol = strings.ToUpper(symbol)
		p.Symbol = symbol
		profiles[symbol] = p
	}

	return &Directory{profiles: profiles}, nil
}

// Lookup returns the profile for symbol, falling back to a generic profile
// built from name
func (d *Directory) Lookup(symbol, name string) Profile {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if p, ok := d.profiles[symbol]; ok {
		return p
	}
	return defaultProfile(symbol, name)
}

// Has reports whether symbol has a curated profile
func (d *Directory) Has(symbol string) bool {
	_, ok := d.profiles[strings.ToUpper(symbol)]
	return ok
}

// Len returns the number of curated profiles
func (d *Directory) Len() int {
	return len(d.profiles)
}

func defaultProfile(symbol, name string) Profile {
	if name == "" {
		name = symbol
	}
	return Profile{
		Symbol:       symbol,
		Name:         name,
		Industry:     "Diversified Business",
		Founded:      1980,
		Employees:    "25,000+",
		Headquarters: "Mumbai, India",
		Description: name + " is a leading company in the Indian stock market and part of the Nifty 50 index. " +
			"It has a record of consistent performance and is widely held by long-term investors.",
		Revenue:      "₹45,000 Cr",
		NetProfit:    "₹8,500 Cr",
		ROE:          "15.5%",
		DebtToEquity: "0.45",
		MarketCap:    "₹3,50,000 Cr",
		Performance:  Performance{OneWeek: 1.2, OneMonth: 3.5, ThreeMonths: 8.7, OneYear: 16.3},
		Default:      true,
	}
}
