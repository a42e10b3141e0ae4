package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/config"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"
	"sweep-backend/internal/queue"
	"sweep-backend/internal/repository"
)

// receiptTTL how long terminal receipts stay retrievable
const receiptTTL = 24 * time.Hour

// StatusTrackerService consumes bridge.track jobs: one job is one status
// observation of one leg. Non-terminal observations re-enqueue themselves
// with bumped counters; terminal ones persist and notify. Two budgets are
// independent: MaxStatusChecks bounds honest "still in flight" answers,
// TransientRetryLimit bounds failures to get an answer at all.
type StatusTrackerService struct {
	planner    *SweepPlannerService
	aggregator QuoteAggregator
	store      cache.PlanStore
	producer   queue.Producer
	history    repository.HistoryRepository
	notifier   Notifier
}

// NewStatusTrackerService creates the status tracker
func NewStatusTrackerService(planner *SweepPlannerService, aggregator QuoteAggregator, store cache.PlanStore, producer queue.Producer, history repository.HistoryRepository, notifier Notifier) *StatusTrackerService {
	return &StatusTrackerService{
		planner:    planner,
		aggregator: aggregator,
		store:      store,
		producer:   producer,
		history:    history,
		notifier:   notifier,
	}
}

// Start runs the bridge.track consumer until ctx is cancelled
func (s *StatusTrackerService) Start(ctx context.Context, consumer queue.Consumer) {
	cfg := config.AppConfig.Bridge
	go func() {
		if err := consumer.Consume(ctx, queue.JobTypeBridgeTrack, cfg.TrackConcurrency, cfg.TrackRatePerSec, s.handleTrackJob); err != nil && ctx.Err() == nil {
			log.Printf("❌ [BridgeTrackWorker] Track consumer stopped: %v", err)
		}
	}()
	log.Printf("✅ [BridgeTrackWorker] Track worker started (concurrency=%d, rate=%.0f/s)", cfg.TrackConcurrency, cfg.TrackRatePerSec)
}

func (s *StatusTrackerService) handleTrackJob(ctx context.Context, payload []byte) error {
	var job queue.BridgeTrackJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to decode bridge.track job: %w", err)
	}
	_, err := s.TrackBridge(ctx, &job)
	return err
}

// TrackBridge performs one status check for a leg
func (s *StatusTrackerService) TrackBridge(ctx context.Context, job *queue.BridgeTrackJob) (*models.BridgeTrackResult, error) {
	cfg := config.AppConfig.Bridge

	log.Printf("🔍 [BridgeTrackWorker] Checking status for %s: %s", job.BridgeID, job.SourceTxHash)

	receipt, err := s.aggregator.GetStatus(ctx, job.Provider, job.SourceTxHash, job.SourceChain, job.DestinationChain)
	if err != nil {
		return s.handleStatusError(ctx, job, err)
	}

	if receipt.Status.IsTerminal() {
		metrics.BridgeStatusChecks.WithLabelValues(string(job.Provider), "terminal").Inc()
		return s.finalizeLeg(ctx, job, receipt)
	}
	metrics.BridgeStatusChecks.WithLabelValues(string(job.Provider), "inflight").Inc()
	return s.reschedule(ctx, job, receipt, cfg)
}

// finalizeLeg persists the receipt and history, updates the plan's leg and
// emits the terminal notification
func (s *StatusTrackerService) finalizeLeg(ctx context.Context, job *queue.BridgeTrackJob, receipt *models.BridgeReceipt) (*models.BridgeTrackResult, error) {
	log.Printf("✅ [BridgeTrackWorker] Status for %s: %s", job.BridgeID, receipt.Status)

	if err := s.store.SetJSON(ctx, cache.ReceiptKey(job.BridgeID), receipt, receiptTTL); err != nil {
		log.Printf("⚠️ [BridgeTrackWorker] Failed to cache receipt for %s: %v", job.BridgeID, err)
	}

	if err := s.planner.SetLegStatus(ctx, job.PlanID, job.BridgeID, receipt.Status, receipt.Error); err != nil {
		log.Printf("⚠️ [BridgeTrackWorker] Failed to update plan leg %s: %v", job.BridgeID, err)
	}

	now := time.Now()
	entry := &models.BridgeHistoryEntry{
		ID:               job.BridgeID,
		UserID:           job.UserID,
		Provider:         job.Provider,
		SourceChain:      job.SourceChain,
		DestinationChain: job.DestinationChain,
		Status:           receipt.Status,
		SourceTxHash:     job.SourceTxHash,
		DestTxHash:       receipt.DestinationTxHash,
		Error:            receipt.Error,
		CreatedAt:        now,
	}
	if receipt.InputAmount != nil {
		entry.InputAmount = receipt.InputAmount.String()
	}
	if receipt.OutputAmount != nil {
		entry.OutputAmount = receipt.OutputAmount.String()
	}
	if receipt.Status == models.BridgeLegStatusCompleted {
		entry.CompletedAt = &now
	}
	if err := s.history.Upsert(ctx, entry); err != nil {
		log.Printf("❌ [BridgeTrackWorker] Failed to record history for %s: %v", job.BridgeID, err)
	}

	notifType := "bridge_completed"
	switch receipt.Status {
	case models.BridgeLegStatusFailed:
		notifType = "bridge_failed"
	case models.BridgeLegStatusRefunded:
		notifType = "bridge_refunded"
	}
	s.notifier.Notify(ctx, &models.BridgeNotification{
		Type:              notifType,
		UserID:            job.UserID,
		PlanID:            job.PlanID,
		BridgeID:          job.BridgeID,
		SourceChain:       job.SourceChain,
		DestinationChain:  job.DestinationChain,
		Provider:          job.Provider,
		Amount:            receipt.InputAmount,
		SourceTxHash:      job.SourceTxHash,
		DestinationTxHash: receipt.DestinationTxHash,
		Error:             receipt.Error,
		Timestamp:         now.UnixMilli(),
	})

	metrics.BridgesCompleted.WithLabelValues(string(job.Provider), string(receipt.Status)).Inc()

	result := &models.BridgeTrackResult{
		PlanID:            job.PlanID,
		BridgeID:          job.BridgeID,
		Status:            receipt.Status,
		SourceTxHash:      job.SourceTxHash,
		DestinationTxHash: receipt.DestinationTxHash,
		OutputAmount:      receipt.OutputAmount,
		Error:             receipt.Error,
	}
	if receipt.Status == models.BridgeLegStatusCompleted {
		result.CompletedAt = now.UnixMilli()
	}
	return result, nil
}

// reschedule the leg is honestly in flight; check again later unless the
// attempt budget is spent, in which case the leg is force-failed
func (s *StatusTrackerService) reschedule(ctx context.Context, job *queue.BridgeTrackJob, receipt *models.BridgeReceipt, cfg config.BridgeConfig) (*models.BridgeTrackResult, error) {
	attempt := job.Attempt + 1
	if attempt >= cfg.MaxStatusChecks {
		log.Printf("❌ [BridgeTrackWorker] Bridge %s exceeded %d status checks, marking failed", job.BridgeID, cfg.MaxStatusChecks)
		timeoutErr := sweeperrors.New(sweeperrors.CodeLegTrackingTimeout, "bridge tracking timed out")
		forced := &models.BridgeReceipt{
			Provider:         job.Provider,
			Status:           models.BridgeLegStatusFailed,
			SourceTxHash:     job.SourceTxHash,
			SourceChain:      job.SourceChain,
			DestinationChain: job.DestinationChain,
			Error:            timeoutErr.Error(),
		}
		return s.finalizeLeg(ctx, job, forced)
	}

	next := *job
	next.Attempt = attempt
	if err := s.producer.Enqueue(ctx, queue.JobTypeBridgeTrack, &next, cfg.StatusCheckInterval()); err != nil {
		return nil, fmt.Errorf("failed to reschedule tracking for %s: %w", job.BridgeID, err)
	}

	return &models.BridgeTrackResult{
		PlanID:       job.PlanID,
		BridgeID:     job.BridgeID,
		Status:       receipt.Status,
		SourceTxHash: job.SourceTxHash,
	}, nil
}

// handleStatusError the provider could not be observed. Retry on a doubled
// delay within an independent budget; when it runs out, report the gap
// without terminalizing the leg, it may well still land on chain.
func (s *StatusTrackerService) handleStatusError(ctx context.Context, job *queue.BridgeTrackJob, statusErr error) (*models.BridgeTrackResult, error) {
	cfg := config.AppConfig.Bridge
	metrics.BridgeStatusChecks.WithLabelValues(string(job.Provider), "error").Inc()
	log.Printf("❌ [BridgeTrackWorker] Error checking status for %s: %v", job.BridgeID, statusErr)

	retries := job.ErrorRetries + 1
	if retries < cfg.TransientRetryLimit && sweeperrors.IsRetryable(statusErr) {
		next := *job
		next.ErrorRetries = retries
		if err := s.producer.Enqueue(ctx, queue.JobTypeBridgeTrack, &next, 2*cfg.StatusCheckInterval()); err != nil {
			return nil, fmt.Errorf("failed to reschedule tracking for %s: %w", job.BridgeID, err)
		}
	}

	return &models.BridgeTrackResult{
		PlanID:       job.PlanID,
		BridgeID:     job.BridgeID,
		Status:       models.BridgeLegStatusPending,
		SourceTxHash: job.SourceTxHash,
		Error:        statusErr.Error(),
	}, nil
}
