package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	readyKeyPrefix   = "sweep:queue:ready:"
	delayedKeyPrefix = "sweep:queue:delayed:"

	moverInterval = 500 * time.Millisecond
	popTimeout    = 2 * time.Second
)

// RedisJobQueue backs the pipeline with a ready list per job type plus a
// delayed ZSET scored by due time. A mover goroutine promotes due jobs
// onto the ready list; workers BRPOP from it.
type RedisJobQueue struct {
	client *redis.Client
}

// NewRedisJobQueue creates a queue on an existing redis client
func NewRedisJobQueue(client *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{client: client}
}

// Enqueue pushes a job, delayed jobs go to the ZSET until due
func (q *RedisJobQueue) Enqueue(ctx context.Context, jobType string, payload interface{}, delay time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", jobType, err)
	}

	if delay <= 0 {
		if err := q.client.LPush(ctx, readyKeyPrefix+jobType, data).Err(); err != nil {
			return fmt.Errorf("enqueue %s job: %w", jobType, err)
		}
		return nil
	}

	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, delayedKeyPrefix+jobType, redis.Z{Score: due, Member: data}).Err(); err != nil {
		return fmt.Errorf("enqueue delayed %s job: %w", jobType, err)
	}
	return nil
}

// Consume starts the delayed-job mover plus the worker pool and blocks
// until ctx is cancelled
func (q *RedisJobQueue) Consume(ctx context.Context, jobType string, workers int, ratePerSec float64, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	go q.moveDue(ctx, jobType)

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	for i := 0; i < workers; i++ {
		go q.worker(ctx, jobType, limiter, handler)
	}

	<-ctx.Done()
	return ctx.Err()
}

// moveDue promotes due delayed jobs onto the ready list
func (q *RedisJobQueue) moveDue(ctx context.Context, jobType string) {
	ticker := time.NewTicker(moverInterval)
	defer ticker.Stop()

	delayedKey := delayedKeyPrefix + jobType
	readyKey := readyKeyPrefix + jobType

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
			Min: "-inf", Max: now, Count: 100,
		}).Result()
		if err != nil || len(members) == 0 {
			continue
		}

		for _, m := range members {
			// remove first so a concurrent mover cannot double-deliver
			removed, err := q.client.ZRem(ctx, delayedKey, m).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := q.client.LPush(ctx, readyKey, m).Err(); err != nil {
				log.Printf("❌ [JobQueue] Failed to promote delayed %s job: %v", jobType, err)
			}
		}
	}
}

func (q *RedisJobQueue) worker(ctx context.Context, jobType string, limiter *rate.Limiter, handler Handler) {
	readyKey := readyKeyPrefix + jobType

	for {
		if ctx.Err() != nil {
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		res, err := q.client.BRPop(ctx, popTimeout, readyKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ [JobQueue] Pop %s failed: %v", jobType, err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		if err := handler(ctx, []byte(res[1])); err != nil {
			// handlers own their retry policy and re-enqueue with
			// counters, the queue only reports the failure
			log.Printf("⚠️ [JobQueue] %s handler failed: %v", jobType, err)
		}
	}
}

// Close is a no-op, the underlying redis client is shared and closed by
// its owner
func (q *RedisJobQueue) Close() error { return nil }
