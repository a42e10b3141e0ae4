package services

import (
	"context"
	"testing"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/config"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/models"
	"sweep-backend/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerFixture struct {
	tracker  *StatusTrackerService
	planner  *SweepPlannerService
	agg      *fakeAggregator
	store    *cache.MemoryPlanStore
	producer *fakeProducer
	history  *fakeHistory
	notifier *fakeNotifier
}

func newTrackerFixture(t *testing.T) (*trackerFixture, *queue.BridgeTrackJob) {
	t.Helper()
	initTestConfig()

	agg := newFakeAggregator()
	store := cache.NewMemoryPlanStore()
	planner := NewSweepPlannerService(agg, store, staticGas{})
	producer := &fakeProducer{}
	history := newFakeHistory()
	notifier := &fakeNotifier{}

	now := time.Now()
	plan := &models.SweepPlan{
		ID:               "plan-track-1",
		UserID:           "user-1",
		DestinationChain: "arbitrum",
		Bridges: []models.PlannedBridge{
			{ID: "plan-track-1-base", SourceChain: "base", DestinationChain: "arbitrum", Amount: usdc(39_880_000), Status: models.BridgeLegStatusBridging, CompletedTxHash: "0xhash-base"},
		},
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(3 * time.Minute).UnixMilli(),
	}
	require.NoError(t, store.SavePlan(context.Background(), plan, 3*time.Minute))

	job := &queue.BridgeTrackJob{
		PlanID:           "plan-track-1",
		BridgeID:         "plan-track-1-base",
		UserID:           "user-1",
		SourceTxHash:     "0xhash-base",
		SourceChain:      "base",
		DestinationChain: "arbitrum",
		Provider:         models.BridgeProviderLiFi,
	}

	return &trackerFixture{
		tracker:  NewStatusTrackerService(planner, agg, store, producer, history, notifier),
		planner:  planner,
		agg:      agg,
		store:    store,
		producer: producer,
		history:  history,
		notifier: notifier,
	}, job
}

func TestTrackBridgeCompleted(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.receipts["0xhash-base"] = &models.BridgeReceipt{
		Provider:          models.BridgeProviderLiFi,
		Status:            models.BridgeLegStatusCompleted,
		SourceTxHash:      "0xhash-base",
		DestinationTxHash: "0xdest",
		SourceChain:       "base",
		DestinationChain:  "arbitrum",
		InputAmount:       usdc(39_880_000),
		OutputAmount:      usdc(39_500_000),
	}

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.BridgeLegStatusCompleted, result.Status)
	assert.Equal(t, "0xdest", result.DestinationTxHash)
	assert.NotZero(t, result.CompletedAt)

	// terminal legs never reschedule
	assert.Empty(t, f.producer.jobs())

	// the plan's leg carries the terminal status
	plan, err := f.store.GetPlan(context.Background(), job.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.BridgeLegStatusCompleted, plan.FindBridge("base").Status)

	// exactly one history entry, keyed by the leg id
	entry, err := f.history.GetByID(context.Background(), job.BridgeID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.BridgeLegStatusCompleted, entry.Status)
	assert.Equal(t, "39500000", entry.OutputAmount)
	require.NotNil(t, entry.CompletedAt)

	// the receipt is retrievable from the cache
	var receipt models.BridgeReceipt
	found, err := f.store.GetJSON(context.Background(), cache.ReceiptKey(job.BridgeID), &receipt)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.BridgeLegStatusCompleted, receipt.Status)

	assert.Len(t, f.notifier.byType("bridge_completed"), 1)
}

func TestTrackBridgeInFlightReschedules(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.receipts["0xhash-base"] = &models.BridgeReceipt{
		Provider:     models.BridgeProviderLiFi,
		Status:       models.BridgeLegStatusBridging,
		SourceTxHash: "0xhash-base",
	}

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.BridgeLegStatusBridging, result.Status)

	jobs := f.producer.jobs()
	require.Len(t, jobs, 1)
	next := jobs[0].payload.(*queue.BridgeTrackJob)
	assert.Equal(t, 1, next.Attempt)
	assert.Equal(t, config.AppConfig.Bridge.StatusCheckInterval(), jobs[0].delay)

	// nothing terminal happened
	assert.Nil(t, f.history.entries[job.BridgeID])
	assert.Empty(t, f.notifier.events)
}

func TestTrackBridgeAttemptBudgetForcesFailure(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.receipts["0xhash-base"] = &models.BridgeReceipt{
		Provider:     models.BridgeProviderLiFi,
		Status:       models.BridgeLegStatusBridging,
		SourceTxHash: "0xhash-base",
	}
	job.Attempt = config.AppConfig.Bridge.MaxStatusChecks - 1

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.BridgeLegStatusFailed, result.Status)
	assert.Contains(t, result.Error, "LEG_TRACKING_TIMEOUT")
	assert.Empty(t, f.producer.jobs())

	entry, err := f.history.GetByID(context.Background(), job.BridgeID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.BridgeLegStatusFailed, entry.Status)
	assert.Nil(t, entry.CompletedAt)

	assert.Len(t, f.notifier.byType("bridge_failed"), 1)
}

func TestTrackBridgeTransientErrorRetries(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.statusErrs["0xhash-base"] = sweeperrors.New(sweeperrors.CodeProviderTransient, "lifi status request failed")

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)

	// not terminal, the transfer may still land
	assert.Equal(t, models.BridgeLegStatusPending, result.Status)
	assert.Contains(t, result.Error, "lifi status request failed")

	// retried on a doubled delay with its own counter
	jobs := f.producer.jobs()
	require.Len(t, jobs, 1)
	next := jobs[0].payload.(*queue.BridgeTrackJob)
	assert.Equal(t, 1, next.ErrorRetries)
	assert.Equal(t, 0, next.Attempt)
	assert.Equal(t, 2*config.AppConfig.Bridge.StatusCheckInterval(), jobs[0].delay)

	assert.Nil(t, f.history.entries[job.BridgeID])
}

func TestTrackBridgeTransientBudgetExhausted(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.statusErrs["0xhash-base"] = sweeperrors.New(sweeperrors.CodeProviderTransient, "lifi status request failed")
	job.ErrorRetries = config.AppConfig.Bridge.TransientRetryLimit - 1

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.BridgeLegStatusPending, result.Status)
	// out of budget, no further polling is scheduled
	assert.Empty(t, f.producer.jobs())
}

func TestTrackBridgeRefunded(t *testing.T) {
	f, job := newTrackerFixture(t)
	f.agg.receipts["0xhash-base"] = &models.BridgeReceipt{
		Provider:     models.BridgeProviderLiFi,
		Status:       models.BridgeLegStatusRefunded,
		SourceTxHash: "0xhash-base",
		InputAmount:  usdc(39_880_000),
	}

	result, err := f.tracker.TrackBridge(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.BridgeLegStatusRefunded, result.Status)
	assert.Zero(t, result.CompletedAt)

	entry, err := f.history.GetByID(context.Background(), job.BridgeID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.BridgeLegStatusRefunded, entry.Status)

	assert.Len(t, f.notifier.byType("bridge_refunded"), 1)
}
