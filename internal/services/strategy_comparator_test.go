package services

import (
	"context"
	"testing"

	"sweep-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComparatorFixture() (*StrategyComparatorService, *fakeAggregator) {
	planner, agg, _ := newTestPlanner()
	return NewStrategyComparatorService(planner, agg), agg
}

func TestCompareStrategiesDirectWins(t *testing.T) {
	comparator, agg := newComparatorFixture()
	agg.quotes[routeKey("base", "arbitrum")] = testQuote(models.BridgeProviderLiFi, 39_500_000, 120, false)
	agg.quotes[routeKey("bsc", "arbitrum")] = testQuote(models.BridgeProviderDeBridge, 24_600_000, 600, true)
	// hub legs exist but the final hop bleeds value
	agg.quotes[routeKey("base", "ethereum")] = testQuote(models.BridgeProviderLiFi, 39_000_000, 120, false)
	agg.quotes[routeKey("bsc", "ethereum")] = testQuote(models.BridgeProviderDeBridge, 24_000_000, 600, true)
	agg.quotes[routeKey("ethereum", "arbitrum")] = testQuote(models.BridgeProviderLiFi, 50_000_000, 300, false)

	comparison, err := comparator.CompareStrategies(context.Background(), sweepRequest())
	require.NoError(t, err)

	require.NotEmpty(t, comparison.Strategies)
	assert.Equal(t, "Direct Bridge", comparison.Strategies[0].Name)
	assert.Equal(t, "Direct bridging provides the best output value", comparison.Reason)
	require.NotNil(t, comparison.Recommended)
	assert.Equal(t, comparison.Strategies[0].Plan.ID, comparison.Recommended.ID)

	// candidates come back ranked by expected output
	for i := 1; i < len(comparison.Strategies); i++ {
		assert.GreaterOrEqual(t,
			comparison.Strategies[i-1].CostAnalysis.ExpectedOutputValueUsd,
			comparison.Strategies[i].CostAnalysis.ExpectedOutputValueUsd)
	}
}

func TestCompareStrategiesHubWins(t *testing.T) {
	comparator, agg := newComparatorFixture()
	agg.quotes[routeKey("base", "arbitrum")] = testQuote(models.BridgeProviderLiFi, 36_000_000, 120, false)
	agg.quotes[routeKey("bsc", "arbitrum")] = testQuote(models.BridgeProviderDeBridge, 22_000_000, 600, true)
	agg.quotes[routeKey("base", "ethereum")] = testQuote(models.BridgeProviderLiFi, 39_500_000, 120, false)
	agg.quotes[routeKey("bsc", "ethereum")] = testQuote(models.BridgeProviderDeBridge, 24_600_000, 600, true)
	// consolidated hop keeps nearly all the value
	agg.quotes[routeKey("ethereum", "arbitrum")] = testQuote(models.BridgeProviderLiFi, 73_500_000, 300, false)

	comparison, err := comparator.CompareStrategies(context.Background(), sweepRequest())
	require.NoError(t, err)

	assert.Equal(t, "Via ethereum", comparison.Strategies[0].Name)
	assert.Contains(t, comparison.Reason, "Routing via ethereum")

	// the recommended plan ends with the hub-to-destination leg
	legs := comparison.Recommended.Bridges
	require.NotEmpty(t, legs)
	final := legs[len(legs)-1]
	assert.Equal(t, "ethereum", final.SourceChain)
	assert.Equal(t, "arbitrum", final.DestinationChain)
	assert.Zero(t, final.Priority)
}

func TestCompareStrategiesWithoutHubQuotes(t *testing.T) {
	comparator, agg := newComparatorFixture()
	agg.quotes[routeKey("base", "arbitrum")] = testQuote(models.BridgeProviderLiFi, 39_500_000, 120, false)
	agg.quotes[routeKey("bsc", "arbitrum")] = testQuote(models.BridgeProviderDeBridge, 24_600_000, 600, true)
	// no quotes through any hub: comparison still returns the direct plan

	comparison, err := comparator.CompareStrategies(context.Background(), sweepRequest())
	require.NoError(t, err)

	assert.Len(t, comparison.Strategies, 1)
	assert.Equal(t, "Direct Bridge", comparison.Strategies[0].Name)
}
