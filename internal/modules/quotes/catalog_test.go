package quotes

import (
	"testing"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	instruments, err := DefaultCatalog()
	require.NoError(t, err)
	require.Len(t, instruments, 50)

	assert.Equal(t, "RELIANCE", instruments[0].Symbol)
	assert.Equal(t, "TCS", instruments[1].Symbol)

	seen := map[string]bool{}
	for _, inst := range instruments {
		assert.False(t, seen[inst.Symbol], "duplicate %s", inst.Symbol)
		seen[inst.Symbol] = true

		assert.Equal(t, inst.Symbol, inst.Name)
		assert.NotEmpty(t, inst.FullName)
		assert.NotEmpty(t, inst.Description)
		assert.GreaterOrEqual(t, inst.Price, domain.MinPrice, inst.Symbol)
		assert.GreaterOrEqual(t, inst.ReferencePrice(), domain.MinPrice, inst.Symbol)
		assert.True(t, inst.ConsistentChangePercent(1e-9), inst.Symbol)
		assert.Regexp(t, `^\d+\.\dM$`, inst.Volume)
	}

	for _, symbol := range []string{"M&M", "BAJAJ-AUTO", "HINDUNILVR", "ITC"} {
		assert.True(t, seen[symbol], symbol)
	}
}

func TestDefaultCatalog_NormalizesBelowFloorSeed(t *testing.T) {
	instruments, err := DefaultCatalog()
	require.NoError(t, err)

	reliance := instruments[0]
	assert.Equal(t, domain.MinPrice, reliance.Price)
	assert.Equal(t, 0.0, reliance.Change)
	assert.Equal(t, 0.0, reliance.ChangePercent)

	tcs := instruments[1]
	assert.Equal(t, 3890.75, tcs.Price)
	assert.Equal(t, -23.45, tcs.Change)
	assert.InDelta(t, -23.45/3914.2*100, tcs.ChangePercent, 1e-9)
}

func TestParseCatalog(t *testing.T) {
	t.Run("uppercases symbols and defaults volume", func(t *testing.T) {
		got, err := ParseCatalog([]byte("- symbol: infy\n  price: 100\n  change: 10\n"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "INFY", got[0].Symbol)
		assert.Equal(t, "0.1M", got[0].Volume)
		assert.InDelta(t, 10/90.0*100, got[0].ChangePercent, 1e-9)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := ParseCatalog([]byte("- symbol: TCS\n  price: 1\n- symbol: tcs\n  price: 2\n"))
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("rejects missing symbol", func(t *testing.T) {
		_, err := ParseCatalog([]byte("- price: 1\n"))
		assert.ErrorContains(t, err, "no symbol")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := ParseCatalog([]byte("{not: [a list"))
		assert.Error(t, err)
	})
}
