package queue

import (
	"context"
	"time"

	"sweep-backend/internal/models"
)

// Job type names for the sweep pipeline
const (
	JobTypeSweepExecute = "sweep.execute"
	JobTypeBridgeTrack  = "bridge.track"
)

// SweepExecuteJob payload handed to the execution coordinator
type SweepExecuteJob struct {
	PlanID        string `json:"planId"`
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}

// BridgeTrackJob payload for one status-tracking step of one leg. The
// attempt counters travel with the job so re-scheduling stays bounded
// instead of recursing forever.
type BridgeTrackJob struct {
	PlanID           string                `json:"planId"`
	BridgeID         string                `json:"bridgeId"`
	UserID           string                `json:"userId"`
	SourceTxHash     string                `json:"sourceTxHash"`
	SourceChain      string                `json:"sourceChain"`
	DestinationChain string                `json:"destinationChain"`
	Provider         models.BridgeProvider `json:"provider"`
	Attempt          int                   `json:"attempt"`      // status checks performed so far
	ErrorRetries     int                   `json:"errorRetries"` // transient query failures so far
}

// Handler processes one job payload. Handlers own their retry policy and
// re-enqueue themselves with counters, a returned error is only logged.
type Handler func(ctx context.Context, payload []byte) error

// Producer enqueues jobs, optionally delayed
type Producer interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}, delay time.Duration) error
}

// Consumer runs handlers against a job type with bounded concurrency and a
// submission rate limit
type Consumer interface {
	// Consume blocks until ctx is cancelled. ratePerSec <= 0 disables
	// rate limiting.
	Consume(ctx context.Context, jobType string, workers int, ratePerSec float64, handler Handler) error
}

// JobQueue full queue capability
type JobQueue interface {
	Producer
	Consumer
	Close() error
}
