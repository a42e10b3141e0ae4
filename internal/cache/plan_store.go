package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sweep-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// PlanStore key-value cache with per-entry TTL. It is the single source of
// truth for plan state between asynchronous pipeline steps; planner,
// coordinator and tracker all read and write plans through it.
type PlanStore interface {
	// GetPlan returns (nil, nil) when the plan is missing or expired
	GetPlan(ctx context.Context, planID string) (*models.SweepPlan, error)
	// SavePlan writes the whole plan document with the given TTL
	SavePlan(ctx context.Context, plan *models.SweepPlan, ttl time.Duration) error
	// GetJSON unmarshals the value at key into dest; found=false on miss
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	// SetJSON marshals value and stores it with the given TTL
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes a key; missing keys are not an error
	Delete(ctx context.Context, key string) error
}

const planKeyPrefix = "sweep:plan:"

// PlanKey cache key for a plan id
func PlanKey(planID string) string {
	return planKeyPrefix + planID
}

// QuoteKey cache key for a quote id
func QuoteKey(quoteID string) string {
	return "bridge:quote:" + quoteID
}

// ReceiptKey cache key for a leg receipt
func ReceiptKey(bridgeID string) string {
	return "bridge:receipt:" + bridgeID
}

// RedisPlanStore redis-backed plan store
type RedisPlanStore struct {
	client *redis.Client
}

// NewRedisPlanStore creates a plan store on an existing redis client
func NewRedisPlanStore(client *redis.Client) *RedisPlanStore {
	return &RedisPlanStore{client: client}
}

// GetPlan reads and unmarshals a plan document
func (s *RedisPlanStore) GetPlan(ctx context.Context, planID string) (*models.SweepPlan, error) {
	var plan models.SweepPlan
	found, err := s.GetJSON(ctx, PlanKey(planID), &plan)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &plan, nil
}

// SavePlan writes a plan document with TTL
func (s *RedisPlanStore) SavePlan(ctx context.Context, plan *models.SweepPlan, ttl time.Duration) error {
	return s.SetJSON(ctx, PlanKey(plan.ID), plan, ttl)
}

// GetJSON reads a JSON value
func (s *RedisPlanStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value at %s: %w", key, err)
	}
	return true, nil
}

// SetJSON writes a JSON value with TTL
func (s *RedisPlanStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *RedisPlanStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s failed: %w", key, err)
	}
	return nil
}
