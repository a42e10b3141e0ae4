package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryJobQueue in-process queue with the same semantics as the redis
// one, used by tests and single-node development
type MemoryJobQueue struct {
	mu     sync.Mutex
	ready  map[string]chan []byte
	closed bool
}

// NewMemoryJobQueue creates an empty in-process queue
func NewMemoryJobQueue() *MemoryJobQueue {
	return &MemoryJobQueue{ready: make(map[string]chan []byte)}
}

func (q *MemoryJobQueue) channel(jobType string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.ready[jobType]
	if !ok {
		ch = make(chan []byte, 1024)
		q.ready[jobType] = ch
	}
	return ch
}

// Enqueue pushes a job, delayed jobs are held by a timer goroutine
func (q *MemoryJobQueue) Enqueue(ctx context.Context, jobType string, payload interface{}, delay time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", jobType, err)
	}

	ch := q.channel(jobType)
	if delay <= 0 {
		select {
		case ch <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			ch <- data
		case <-ctx.Done():
		}
	}()
	return nil
}

// Consume runs the worker pool until ctx is cancelled
func (q *MemoryJobQueue) Consume(ctx context.Context, jobType string, workers int, ratePerSec float64, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	ch := q.channel(jobType)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload := <-ch:
					if limiter != nil {
						if err := limiter.Wait(ctx); err != nil {
							return
						}
					}
					if err := handler(ctx, payload); err != nil {
						log.Printf("⚠️ [JobQueue] %s handler failed: %v", jobType, err)
					}
				}
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}

// Close marks the queue closed
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
