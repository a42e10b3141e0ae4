package services

import (
	"context"
	"testing"
	"time"

	"sweep-backend/internal/cache"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringQuote(provider models.BridgeProvider, input, output int64, estimatedTime int, fastFill bool) *models.BridgeQuote {
	return &models.BridgeQuote{
		Provider:      provider,
		InputAmount:   usdc(input),
		OutputAmount:  usdc(output),
		Fees:          models.BridgeFees{BridgeFee: usdc(input - output)},
		EstimatedTime: estimatedTime,
		IsFastFill:    fastFill,
	}
}

func TestScoreQuote(t *testing.T) {
	initTestConfig()
	svc := &BridgeAggregatorService{}

	// better output ratio wins when everything else matches
	efficient := scoringQuote(models.BridgeProviderLiFi, 10_000_000, 9_900_000, 300, false)
	lossy := scoringQuote(models.BridgeProviderLiFi, 10_000_000, 9_000_000, 300, false)
	assert.Greater(t, svc.scoreQuote(efficient), svc.scoreQuote(lossy))

	// a fast fill beats a slow quote of equal efficiency
	fast := scoringQuote(models.BridgeProviderDeBridge, 10_000_000, 9_900_000, 30, true)
	slow := scoringQuote(models.BridgeProviderDeBridge, 10_000_000, 9_900_000, 3000, false)
	assert.Greater(t, svc.scoreQuote(fast), svc.scoreQuote(slow))

	// provider reliability breaks exact ties
	lifi := scoringQuote(models.BridgeProviderLiFi, 10_000_000, 9_900_000, 300, false)
	debridge := scoringQuote(models.BridgeProviderDeBridge, 10_000_000, 9_900_000, 300, false)
	assert.Greater(t, svc.scoreQuote(lifi), svc.scoreQuote(debridge))

	// degenerate quotes score but never panic
	empty := &models.BridgeQuote{Provider: "unknown"}
	assert.Greater(t, svc.scoreQuote(empty), 0.0)
}

func TestBuildTransactionRejectsExpiredQuote(t *testing.T) {
	initTestConfig()
	svc := NewBridgeAggregatorService(nil, nil, cache.NewMemoryPlanStore())

	quote := scoringQuote(models.BridgeProviderLiFi, 10_000_000, 9_900_000, 300, false)
	quote.QuoteID = "quote-expired"
	quote.ExpiresAt = time.Now().Add(-time.Second).UnixMilli()

	_, err := svc.BuildTransaction(context.Background(), quote, "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.True(t, sweeperrors.HasCode(err, sweeperrors.CodeQuoteExpired))
}
