package api

import (
	"math/rand"
	"testing"

	"standoff-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func showcaseCandidate(id uint, name, price string) models.Item {
	return models.Item{ID: id, Name: name, CurrentPrice: decimal.RequireFromString(price)}
}

func oldPrices(prices map[uint]string) func(uint) (decimal.Decimal, bool) {
	return func(itemID uint) (decimal.Decimal, bool) {
		s, ok := prices[itemID]
		if !ok {
			return decimal.Zero, false
		}
		return decimal.RequireFromString(s), true
	}
}

func TestPickShowcaseReturnsAtMostTwoGrowers(t *testing.T) {
	candidates := []models.Item{
		showcaseCandidate(1, "Karambit", "2000.00"),
		showcaseCandidate(2, "Butterfly", "3000.00"),
		showcaseCandidate(3, "M9 Bayonet", "4000.00"),
	}
	old := oldPrices(map[uint]string{1: "1500.00", 2: "2500.00", 3: "3500.00"})

	picked := pickShowcase(candidates, old, rand.New(rand.NewSource(1)))
	require.Len(t, picked, 2)
	for _, item := range picked {
		assert.Greater(t, item.GrowthPercent, 0.0)
	}
}

func TestPickShowcaseSkipsItemsWithoutGrowth(t *testing.T) {
	candidates := []models.Item{
		showcaseCandidate(1, "Karambit", "2000.00"),
		showcaseCandidate(2, "Butterfly", "3000.00"),
	}
	// Item 1 fell, item 2 grew.
	old := oldPrices(map[uint]string{1: "2500.00", 2: "2000.00"})

	picked := pickShowcase(candidates, old, rand.New(rand.NewSource(1)))
	require.NotEmpty(t, picked)
	assert.Equal(t, "Butterfly", picked[0].Name)
	assert.InDelta(t, 50.0, picked[0].GrowthPercent, 0.01)
}

func TestPickShowcaseFallsBackToMostExpensive(t *testing.T) {
	candidates := []models.Item{
		showcaseCandidate(1, "Karambit", "2000.00"),
		showcaseCandidate(2, "Butterfly", "5000.00"),
		showcaseCandidate(3, "M9 Bayonet", "3000.00"),
	}
	// Nothing grew over the window.
	old := oldPrices(map[uint]string{1: "2500.00", 2: "6000.00", 3: "3000.00"})

	picked := pickShowcase(candidates, old, rand.New(rand.NewSource(1)))
	require.Len(t, picked, 2)
	assert.Equal(t, "Butterfly", picked[0].Name)
	assert.Equal(t, "M9 Bayonet", picked[1].Name)
	assert.Equal(t, 0.0, picked[0].GrowthPercent)
}

func TestPickShowcaseEmptyCandidates(t *testing.T) {
	picked := pickShowcase(nil, oldPrices(nil), rand.New(rand.NewSource(1)))
	assert.Empty(t, picked)
}

func TestPickShowcaseDoesNotDuplicateInFallback(t *testing.T) {
	candidates := []models.Item{
		showcaseCandidate(1, "Karambit", "9000.00"),
		showcaseCandidate(2, "Butterfly", "2000.00"),
	}
	// Only the most expensive item grew; the fallback must pick the other one.
	old := oldPrices(map[uint]string{1: "8000.00", 2: "2500.00"})

	picked := pickShowcase(candidates, old, rand.New(rand.NewSource(1)))
	require.Len(t, picked, 2)
	assert.NotEqual(t, picked[0].Name, picked[1].Name)
}
