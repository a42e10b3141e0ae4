package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectJobs(t *testing.T, q *MemoryJobQueue, jobType string, want int, timeout time.Duration) [][]byte {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got [][]byte
	done := make(chan struct{})

	go func() {
		_ = q.Consume(ctx, jobType, 2, 0, func(_ context.Context, payload []byte) error {
			mu.Lock()
			got = append(got, payload)
			if len(got) == want {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %d jobs", want)
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestEnqueueImmediate(t *testing.T) {
	q := NewMemoryJobQueue()
	ctx := context.Background()

	job := &SweepExecuteJob{PlanID: "plan-1", UserID: "user-1"}
	require.NoError(t, q.Enqueue(ctx, JobTypeSweepExecute, job, 0))

	payloads := collectJobs(t, q, JobTypeSweepExecute, 1, 2*time.Second)
	var back SweepExecuteJob
	require.NoError(t, json.Unmarshal(payloads[0], &back))
	assert.Equal(t, "plan-1", back.PlanID)
}

func TestEnqueueDelayed(t *testing.T) {
	q := NewMemoryJobQueue()
	ctx := context.Background()

	job := &BridgeTrackJob{PlanID: "plan-1", BridgeID: "plan-1-base", Attempt: 3}
	started := time.Now()
	require.NoError(t, q.Enqueue(ctx, JobTypeBridgeTrack, job, 150*time.Millisecond))

	payloads := collectJobs(t, q, JobTypeBridgeTrack, 1, 3*time.Second)
	assert.GreaterOrEqual(t, time.Since(started), 150*time.Millisecond)

	// counters survive the trip through the queue
	var back BridgeTrackJob
	require.NoError(t, json.Unmarshal(payloads[0], &back))
	assert.Equal(t, 3, back.Attempt)
}

func TestJobTypeIsolation(t *testing.T) {
	q := NewMemoryJobQueue()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, JobTypeSweepExecute, &SweepExecuteJob{PlanID: "plan-a"}, 0))
	require.NoError(t, q.Enqueue(ctx, JobTypeBridgeTrack, &BridgeTrackJob{PlanID: "plan-b"}, 0))

	payloads := collectJobs(t, q, JobTypeBridgeTrack, 1, 2*time.Second)
	var back BridgeTrackJob
	require.NoError(t, json.Unmarshal(payloads[0], &back))
	assert.Equal(t, "plan-b", back.PlanID)
}

func TestHandlerErrorDoesNotRequeue(t *testing.T) {
	q := NewMemoryJobQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, JobTypeSweepExecute, &SweepExecuteJob{PlanID: "plan-err"}, 0))

	var mu sync.Mutex
	calls := 0
	go func() {
		_ = q.Consume(ctx, JobTypeSweepExecute, 1, 0, func(context.Context, []byte) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return assert.AnError
		})
	}()

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	// handlers own their retries; the queue drops the payload either way
	assert.Equal(t, 1, calls)
}
