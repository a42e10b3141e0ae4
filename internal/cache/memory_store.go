package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sweep-backend/internal/models"
)

// MemoryPlanStore in-process plan store with per-entry expiry. Used by tests
// and redis-less development; semantics match RedisPlanStore.
type MemoryPlanStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryPlanStore creates an empty in-memory store
func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source, for expiry tests
func (s *MemoryPlanStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// GetPlan reads a plan document, (nil, nil) on miss or expiry
func (s *MemoryPlanStore) GetPlan(ctx context.Context, planID string) (*models.SweepPlan, error) {
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
func (s *MemoryPlanStore) SavePlan(ctx context.Context, plan *models.SweepPlan, ttl time.Duration) error {
	return s.SetJSON(ctx, PlanKey(plan.ID), plan, ttl)
}

// GetJSON reads a JSON value, dropping expired entries lazily
func (s *MemoryPlanStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value at %s: %w", key, err)
	}
	return true, nil
}

// SetJSON writes a JSON value with TTL; ttl<=0 means no expiry
func (s *MemoryPlanStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes a key
func (s *MemoryPlanStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
