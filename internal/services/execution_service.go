package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/config"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"
	"sweep-backend/internal/queue"
)

// TransactionSubmitter signs and broadcasts a bridge transaction from the
// user's wallet, returning the source tx hash. The wallet layer lives
// outside this service; the simulated submitter stands in until it does.
type TransactionSubmitter interface {
	Submit(ctx context.Context, tx *models.BridgeTransaction, walletAddress string) (string, error)
}

// SimulatedSubmitter placeholder submitter producing deterministic hashes.
// TODO: submit through the smart-wallet service once its signing API lands.
type SimulatedSubmitter struct{}

// Submit fabricates a source tx hash without touching a chain
func (SimulatedSubmitter) Submit(_ context.Context, tx *models.BridgeTransaction, _ string) (string, error) {
	seed := fmt.Sprintf("bridge-%s-%s-%d", tx.QuoteID, tx.SourceChain, time.Now().UnixNano())
	return fmt.Sprintf("0x%x", []byte(seed))[:66], nil
}

// executionResultTTL how long execution results stay retrievable
const executionResultTTL = time.Hour

// ExecutionResultKey cache key for a plan's execution result
func ExecutionResultKey(planID string) string {
	return "bridge:execution:" + planID
}

// ExecutionService consumes sweep.execute jobs and drives a plan's legs.
// A missing or expired plan aborts the attempt; a single failed leg does
// not, partial success is a first-class outcome.
type ExecutionService struct {
	planner    *SweepPlannerService
	aggregator QuoteAggregator
	store      cache.PlanStore
	producer   queue.Producer
	submitter  TransactionSubmitter
	notifier   Notifier
}

// NewExecutionService creates the execution coordinator
func NewExecutionService(planner *SweepPlannerService, aggregator QuoteAggregator, store cache.PlanStore, producer queue.Producer, submitter TransactionSubmitter, notifier Notifier) *ExecutionService {
	return &ExecutionService{
		planner:    planner,
		aggregator: aggregator,
		store:      store,
		producer:   producer,
		submitter:  submitter,
		notifier:   notifier,
	}
}

// Start runs the sweep.execute consumer until ctx is cancelled
func (s *ExecutionService) Start(ctx context.Context, consumer queue.Consumer) {
	cfg := config.AppConfig.Bridge
	go func() {
		if err := consumer.Consume(ctx, queue.JobTypeSweepExecute, cfg.ExecuteConcurrency, cfg.ExecuteRatePerSec, s.handleExecuteJob); err != nil && ctx.Err() == nil {
			log.Printf("❌ [BridgeWorker] Execute consumer stopped: %v", err)
		}
	}()
	log.Printf("✅ [BridgeWorker] Execute worker started (concurrency=%d, rate=%.0f/s)", cfg.ExecuteConcurrency, cfg.ExecuteRatePerSec)
}

func (s *ExecutionService) handleExecuteJob(ctx context.Context, payload []byte) error {
	var job queue.SweepExecuteJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to decode sweep.execute job: %w", err)
	}

	result := s.ExecutePlan(ctx, &job)

	if err := s.store.SetJSON(ctx, ExecutionResultKey(job.PlanID), result, executionResultTTL); err != nil {
		log.Printf("⚠️ [BridgeWorker] Failed to cache execution result for %s: %v", job.PlanID, err)
	}

	log.Printf("✅ [BridgeWorker] Plan %s executed: %d submitted, %d failed",
		job.PlanID, len(result.ExecutedBridges), len(result.FailedBridges))
	return nil
}

// ExecutePlan submits the plan's legs in priority order, strictly
// sequentially. Per-leg failures are recorded and the rest continue.
func (s *ExecutionService) ExecutePlan(ctx context.Context, job *queue.SweepExecuteJob) *models.BridgeExecuteResult {
	result := &models.BridgeExecuteResult{PlanID: job.PlanID}

	plan, err := s.store.GetPlan(ctx, job.PlanID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to load plan: %v", err)
		metrics.PlansExecuted.WithLabelValues("failed").Inc()
		return result
	}
	if plan == nil {
		result.Error = sweeperrors.New(sweeperrors.CodePlanNotFound, "sweep plan %s expired or not found", job.PlanID).Error()
		metrics.PlansExecuted.WithLabelValues("failed").Inc()
		return result
	}
	if plan.IsExpired(time.Now()) {
		result.Error = sweeperrors.New(sweeperrors.CodePlanExpired, "sweep plan %s has expired", job.PlanID).Error()
		metrics.PlansExecuted.WithLabelValues("failed").Inc()
		return result
	}
	if plan.IsNoOp() {
		result.Error = sweeperrors.New(sweeperrors.CodePlanNoOp, "sweep plan %s has nothing to execute", job.PlanID).Error()
		metrics.PlansExecuted.WithLabelValues("failed").Inc()
		return result
	}

	log.Printf("🚀 [BridgeWorker] Executing bridge plan %s with %d bridges", job.PlanID, len(plan.Bridges))

	legs := make([]models.PlannedBridge, len(plan.Bridges))
	copy(legs, plan.Bridges)
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].Priority > legs[j].Priority })

	var submitted []CompletedBridgeRef
	for i := range legs {
		leg := &legs[i]
		if !leg.IsOutstanding() || leg.CompletedTxHash != "" {
			continue
		}

		log.Printf("🌉 [BridgeWorker] Processing bridge from %s", leg.SourceChain)

		txHash, execErr := s.executeLeg(ctx, job, leg)
		if execErr != nil {
			log.Printf("❌ [BridgeWorker] Bridge from %s failed: %v", leg.SourceChain, execErr)
			result.FailedBridges = append(result.FailedBridges, models.FailedBridge{
				SourceChain: leg.SourceChain,
				Error:       execErr.Error(),
			})
			// partial failure: record it and keep going with the rest
			if _, _, err := s.planner.HandlePartialFailure(ctx, job.PlanID, leg.SourceChain, execErr.Error()); err != nil {
				log.Printf("⚠️ [BridgeWorker] Failed to record partial failure for %s: %v", leg.SourceChain, err)
			}
			continue
		}

		result.ExecutedBridges = append(result.ExecutedBridges, models.ExecutedBridge{
			SourceChain:      leg.SourceChain,
			DestinationChain: leg.DestinationChain,
			TxHash:           txHash,
			Provider:         leg.Quote.Provider,
			Amount:           leg.Amount.Clone(),
			Status:           models.BridgeLegStatusPending,
		})
		submitted = append(submitted, CompletedBridgeRef{SourceChain: leg.SourceChain, TxHash: txHash})
		metrics.BridgesSubmitted.WithLabelValues(string(leg.Quote.Provider), leg.SourceChain).Inc()

		s.notifier.Notify(ctx, &models.BridgeNotification{
			Type:             "bridge_started",
			UserID:           job.UserID,
			PlanID:           job.PlanID,
			BridgeID:         leg.ID,
			SourceChain:      leg.SourceChain,
			DestinationChain: leg.DestinationChain,
			Provider:         leg.Quote.Provider,
			Amount:           leg.Amount.Clone(),
			SourceTxHash:     txHash,
			Timestamp:        time.Now().UnixMilli(),
		})

		trackJob := &queue.BridgeTrackJob{
			PlanID:           job.PlanID,
			BridgeID:         leg.ID,
			UserID:           job.UserID,
			SourceTxHash:     txHash,
			SourceChain:      leg.SourceChain,
			DestinationChain: leg.DestinationChain,
			Provider:         leg.Quote.Provider,
		}
		if err := s.producer.Enqueue(ctx, queue.JobTypeBridgeTrack, trackJob, 0); err != nil {
			log.Printf("❌ [BridgeWorker] Failed to enqueue tracking for %s: %v", leg.ID, err)
		}
	}

	if len(submitted) > 0 {
		if _, err := s.planner.UpdatePlanProgress(ctx, job.PlanID, submitted); err != nil {
			log.Printf("⚠️ [BridgeWorker] Failed to persist progress for %s: %v", job.PlanID, err)
		}
	}

	result.Success = len(result.FailedBridges) == 0
	switch {
	case result.Success:
		metrics.PlansExecuted.WithLabelValues("success").Inc()
	case len(result.ExecutedBridges) > 0:
		metrics.PlansExecuted.WithLabelValues("partial").Inc()
		result.Error = fmt.Sprintf("%d bridges failed", len(result.FailedBridges))
	default:
		metrics.PlansExecuted.WithLabelValues("failed").Inc()
		result.Error = fmt.Sprintf("%d bridges failed", len(result.FailedBridges))
	}
	return result
}

// executeLeg resolves the leg's quote, builds the transaction and submits it
func (s *ExecutionService) executeLeg(ctx context.Context, job *queue.SweepExecuteJob, leg *models.PlannedBridge) (string, error) {
	quote, err := s.resolveQuote(ctx, leg)
	if err != nil {
		return "", err
	}

	tx, err := s.aggregator.BuildTransaction(ctx, quote, job.WalletAddress)
	if err != nil {
		return "", err
	}

	txHash, err := s.submitter.Submit(ctx, tx, job.WalletAddress)
	if err != nil {
		return "", sweeperrors.Wrap(sweeperrors.CodeLegSubmissionFailed, err,
			"failed to submit bridge transaction for %s", leg.SourceChain)
	}

	log.Printf("✅ [BridgeWorker] Bridge tx submitted: %s (%s -> %s)", txHash, leg.SourceChain, leg.DestinationChain)
	return txHash, nil
}

// resolveQuote cache first, then the copy embedded in the plan
func (s *ExecutionService) resolveQuote(ctx context.Context, leg *models.PlannedBridge) (*models.BridgeQuote, error) {
	if leg.Quote != nil && leg.Quote.QuoteID != "" {
		cached, err := s.aggregator.GetCachedQuote(ctx, leg.Quote.QuoteID)
		if err != nil {
			log.Printf("⚠️ [BridgeWorker] Quote cache lookup failed for %s: %v", leg.Quote.QuoteID, err)
		}
		if cached != nil {
			return cached, nil
		}
	}
	if leg.Quote != nil {
		return leg.Quote, nil
	}
	return nil, sweeperrors.New(sweeperrors.CodeQuoteUnavailable, "bridge quote not found for %s", leg.SourceChain)
}
