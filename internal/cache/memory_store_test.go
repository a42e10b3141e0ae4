package cache

import (
	"context"
	"testing"
	"time"

	"sweep-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRoundTrip(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	amount, err := models.NewBigIntFromString("123456789012345678901234567890")
	require.NoError(t, err)

	plan := &models.SweepPlan{
		ID:               "plan-rt-1",
		UserID:           "user-1",
		DestinationChain: "arbitrum",
		Bridges: []models.PlannedBridge{
			{ID: "plan-rt-1-base", SourceChain: "base", Amount: amount, Status: models.BridgeLegStatusPending},
		},
		ExpectedOutputValueUsd: 74.07,
	}
	require.NoError(t, store.SavePlan(ctx, plan, time.Minute))

	back, err := store.GetPlan(ctx, "plan-rt-1")
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, plan.ExpectedOutputValueUsd, back.ExpectedOutputValueUsd)

	// big amounts survive the JSON round trip digit for digit
	require.Len(t, back.Bridges, 1)
	assert.Equal(t, "123456789012345678901234567890", back.Bridges[0].Amount.String())
}

func TestGetPlanMiss(t *testing.T) {
	store := NewMemoryPlanStore()

	plan, err := store.GetPlan(context.Background(), "plan-unknown")
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestEntryExpiry(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	plan := &models.SweepPlan{ID: "plan-ttl-1"}
	require.NoError(t, store.SavePlan(ctx, plan, 3*time.Minute))

	back, err := store.GetPlan(ctx, "plan-ttl-1")
	require.NoError(t, err)
	require.NotNil(t, back)

	// one second past the TTL the plan is gone
	now = now.Add(3*time.Minute + time.Second)
	back, err = store.GetPlan(ctx, "plan-ttl-1")
	require.NoError(t, err)
	assert.Nil(t, back)
}

func TestSetJSONNoTTL(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.SetJSON(ctx, "some:key", map[string]int{"n": 1}, 0))

	now = now.Add(365 * 24 * time.Hour)
	var out map[string]int
	found, err := store.GetJSON(ctx, "some:key", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out["n"])
}

func TestDelete(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "some:key", "value", time.Minute))
	require.NoError(t, store.Delete(ctx, "some:key"))

	var out string
	found, err := store.GetJSON(ctx, "some:key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "sweep:plan:plan-1", PlanKey("plan-1"))
	assert.Equal(t, "bridge:quote:q-1", QuoteKey("q-1"))
	assert.Equal(t, "bridge:receipt:b-1", ReceiptKey("b-1"))
}
