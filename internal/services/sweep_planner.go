package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/config"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"
	"sweep-backend/internal/utils"

	"github.com/google/uuid"
)

// stableDecimals dust values are estimated through a dollar-pegged
// 6-decimal intermediate token (USDC)
const stableDecimals = 6

// ChainTokens the dust inventory of one chain in a sweep request
type ChainTokens struct {
	Chain  string                `json:"chain"`
	Tokens []models.TokenBalance `json:"tokens"`
}

// SweepRequest input for plan calculation
type SweepRequest struct {
	UserID           string        `json:"userId"`
	Tokens           []ChainTokens `json:"tokens"`
	DestinationChain string        `json:"destinationChain"`
	DestinationToken string        `json:"destinationToken"`
	Sender           string        `json:"sender"`
	Recipient        string        `json:"recipient"`
	Slippage         float64       `json:"slippage"`
}

// SweepCostAnalysis fee breakdown for a plan
type SweepCostAnalysis struct {
	TotalInputValueUsd     float64 `json:"totalInputValueUsd"`
	SwapFeesUsd            float64 `json:"swapFeesUsd"`
	BridgeFeesUsd          float64 `json:"bridgeFeesUsd"`
	GasFeesUsd             float64 `json:"gasFeesUsd"`
	TotalFeesUsd           float64 `json:"totalFeesUsd"`
	ExpectedOutputValueUsd float64 `json:"expectedOutputValueUsd"`
	FeePercentage          float64 `json:"feePercentage"`
}

// CompletedBridgeRef a submitted leg reference for progress updates
type CompletedBridgeRef struct {
	SourceChain string `json:"sourceChain"`
	TxHash      string `json:"txHash"`
}

// GasEstimator resolves the assumed swap+bridge gas cost on a chain in USD
type GasEstimator interface {
	GasUsd(chain string) float64
}

// SweepPlannerService turns a multi-chain dust inventory into an executable
// bridge plan. Plans are whole-document snapshots in the plan store; every
// mutation rewrites the full document under the same TTL.
type SweepPlannerService struct {
	aggregator QuoteAggregator
	store      cache.PlanStore
	gas        GasEstimator
}

// NewSweepPlannerService creates the planner
func NewSweepPlannerService(aggregator QuoteAggregator, store cache.PlanStore, gas GasEstimator) *SweepPlannerService {
	return &SweepPlannerService{
		aggregator: aggregator,
		store:      store,
		gas:        gas,
	}
}

// CalculateSweepPlan computes the per-chain legs, quotes each one, and
// persists the plan under the quote validity TTL
func (s *SweepPlannerService) CalculateSweepPlan(ctx context.Context, req *SweepRequest) (*models.SweepPlan, error) {
	started := time.Now()
	cfg := config.AppConfig.Bridge

	planID := fmt.Sprintf("plan-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:6])
	log.Printf("🧮 [SweepPlanner] Calculating sweep plan for %d chains", len(req.Tokens))

	// Step 1: group tokens by chain and pick the bridgeable intermediate
	var sources []models.ChainSweepSource
	totalInputValueUsd := 0.0
	for _, chainTokens := range req.Tokens {
		source := models.ChainSweepSource{
			Chain:            chainTokens.Chain,
			Tokens:           chainTokens.Tokens,
			SwapOutputToken:  bridgeableToken(chainTokens.Chain, req.DestinationToken),
			SwapOutputAmount: models.NewBigInt(0),
		}
		totalInputValueUsd += source.TotalValueUsd()
		sources = append(sources, source)
	}

	// Step 2: drop chains whose dust is not worth the gas
	var viableSources []models.ChainSweepSource
	for _, source := range sources {
		if source.TotalValueUsd() >= cfg.MinChainValueUsd {
			viableSources = append(viableSources, source)
		} else {
			metrics.PlanChainsDropped.Inc()
			log.Printf("⚠️ [SweepPlanner] Dropping %s: $%.2f below $%.2f threshold",
				source.Chain, source.TotalValueUsd(), cfg.MinChainValueUsd)
		}
	}
	log.Printf("✅ [SweepPlanner] %d/%d chains have sufficient value", len(viableSources), len(sources))

	// Step 3: quote one bridge leg per source chain
	var bridges []models.PlannedBridge
	totalFeesUsd := 0.0
	maxEstimatedTime := 0
	for i := range viableSources {
		source := &viableSources[i]
		if source.Chain == req.DestinationChain {
			// dust already on the destination chain only needs a swap
			continue
		}

		// estimate the post-swap amount in the intermediate token
		estimatedSwapOutput := source.TotalValueUsd() * (1 - cfg.SwapFeeRate)
		source.SwapOutputAmount = models.TokenAmountFromUsd(estimatedSwapOutput, stableDecimals)

		quote, err := s.aggregator.GetBestQuote(ctx, &QuoteRequest{
			SourceChain:      source.Chain,
			DestinationChain: req.DestinationChain,
			SourceToken:      source.SwapOutputToken,
			DestinationToken: req.DestinationToken,
			Amount:           source.SwapOutputAmount,
			Sender:           req.Sender,
			Recipient:        req.Recipient,
			Slippage:         req.Slippage,
		})
		if err != nil {
			log.Printf("❌ [SweepPlanner] Quote error for %s -> %s: %v", source.Chain, req.DestinationChain, err)
			continue
		}
		if quote == nil {
			log.Printf("⚠️ [SweepPlanner] No bridge quote available for %s -> %s", source.Chain, req.DestinationChain)
			continue
		}

		bridges = append(bridges, models.PlannedBridge{
			ID:               fmt.Sprintf("%s-%s", planID, source.Chain),
			SourceChain:      source.Chain,
			DestinationChain: req.DestinationChain,
			Token:            source.SwapOutputToken,
			Amount:           source.SwapOutputAmount.Clone(),
			Quote:            quote,
			Priority:         bridgePriority(quote, s.gas.GasUsd(source.Chain)),
			Status:           models.BridgeLegStatusPending,
		})

		totalFeesUsd += models.UsdFromTokenAmount(quote.TotalFees(), stableDecimals)
		totalFeesUsd += s.gas.GasUsd(source.Chain) // swap + bridge gas on source
		if quote.EstimatedTime > maxEstimatedTime {
			maxEstimatedTime = quote.EstimatedTime
		}
	}

	// Step 4: highest priority legs execute first
	sort.Slice(bridges, func(i, j int) bool { return bridges[i].Priority > bridges[j].Priority })

	// Step 5: expected output = bridged value plus destination-resident dust
	totalBridgeOutput := 0.0
	for i := range bridges {
		totalBridgeOutput += models.UsdFromTokenAmount(bridges[i].Quote.OutputAmount, stableDecimals)
	}
	destinationChainValue := 0.0
	for i := range viableSources {
		if viableSources[i].Chain == req.DestinationChain {
			destinationChainValue += viableSources[i].TotalValueUsd()
		}
	}
	expectedOutputValueUsd := totalBridgeOutput + destinationChainValue*(1-cfg.SwapFeeRate)
	totalFeesUsd += s.gas.GasUsd(req.DestinationChain) // final swap gas

	now := time.Now()
	plan := &models.SweepPlan{
		ID:                     planID,
		UserID:                 req.UserID,
		DestinationChain:       req.DestinationChain,
		DestinationToken:       req.DestinationToken,
		Recipient:              req.Recipient,
		Sources:                viableSources,
		Bridges:                bridges,
		TotalInputValueUsd:     totalInputValueUsd,
		TotalFeesUsd:           totalFeesUsd,
		ExpectedOutputValueUsd: expectedOutputValueUsd,
		EstimatedTotalTime:     maxEstimatedTime + cfg.TimeBufferSeconds,
		CreatedAt:              now.UnixMilli(),
		ExpiresAt:              now.Add(cfg.QuoteTTL()).UnixMilli(),
	}
	plan.NoOp = plan.IsNoOp()

	if err := s.store.SavePlan(ctx, plan, cfg.QuoteTTL()); err != nil {
		return nil, fmt.Errorf("failed to cache plan %s: %w", planID, err)
	}

	metrics.PlansCalculated.Inc()
	metrics.PlanCalculationDuration.Observe(time.Since(started).Seconds())
	if plan.IsNoOp() {
		log.Printf("⚠️ [SweepPlanner] Plan %s has nothing to execute", planID)
	} else {
		log.Printf("✅ [SweepPlanner] Plan %s: %d legs, $%.2f in, $%.2f expected out",
			planID, len(bridges), totalInputValueUsd, expectedOutputValueUsd)
	}
	return plan, nil
}

// AnalyzeCosts breaks the plan's cost down into swap, bridge and gas fees
func (s *SweepPlannerService) AnalyzeCosts(plan *models.SweepPlan) *SweepCostAnalysis {
	cfg := config.AppConfig.Bridge

	swapFeesUsd := plan.TotalInputValueUsd * cfg.SwapFeeRate

	bridgeFeesUsd := 0.0
	for i := range plan.Bridges {
		fees := plan.Bridges[i].Quote.Fees
		total := models.NewBigInt(0)
		if fees.BridgeFee != nil {
			total.Add(&total.Int, &fees.BridgeFee.Int)
		}
		if fees.RelayerFee != nil {
			total.Add(&total.Int, &fees.RelayerFee.Int)
		}
		if fees.LpFee != nil {
			total.Add(&total.Int, &fees.LpFee.Int)
		}
		bridgeFeesUsd += models.UsdFromTokenAmount(total, stableDecimals)
	}

	gasFeesUsd := 0.0
	for i := range plan.Sources {
		gasFeesUsd += s.gas.GasUsd(plan.Sources[i].Chain)
	}

	totalFeesUsd := swapFeesUsd + bridgeFeesUsd + gasFeesUsd
	feePercentage := 0.0
	if plan.TotalInputValueUsd > 0 {
		feePercentage = totalFeesUsd / plan.TotalInputValueUsd * 100
	}

	return &SweepCostAnalysis{
		TotalInputValueUsd:     plan.TotalInputValueUsd,
		SwapFeesUsd:            swapFeesUsd,
		BridgeFeesUsd:          bridgeFeesUsd,
		GasFeesUsd:             gasFeesUsd,
		TotalFeesUsd:           totalFeesUsd,
		ExpectedOutputValueUsd: plan.ExpectedOutputValueUsd,
		FeePercentage:          feePercentage,
	}
}

// GetPlan loads a plan, (nil, nil) when missing or expired out of the store
func (s *SweepPlannerService) GetPlan(ctx context.Context, planID string) (*models.SweepPlan, error) {
	return s.store.GetPlan(ctx, planID)
}

// UpdatePlanProgress records submitted tx hashes onto the plan. Submitted
// legs move to BRIDGING; terminal status is the tracker's to write.
func (s *SweepPlannerService) UpdatePlanProgress(ctx context.Context, planID string, submitted []CompletedBridgeRef) (*models.SweepPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil || plan == nil {
		return nil, err
	}

	for _, ref := range submitted {
		if bridge := plan.FindBridge(ref.SourceChain); bridge != nil {
			bridge.CompletedTxHash = ref.TxHash
			bridge.Status = models.BridgeLegStatusBridging
		}
	}

	if err := s.store.SavePlan(ctx, plan, config.AppConfig.Bridge.QuoteTTL()); err != nil {
		return nil, err
	}
	return plan, nil
}

// SetLegStatus writes a tracker-observed status onto one leg
func (s *SweepPlannerService) SetLegStatus(ctx context.Context, planID, bridgeID string, status models.BridgeLegStatus, errMsg string) error {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan == nil {
		return nil
	}

	for i := range plan.Bridges {
		if plan.Bridges[i].ID == bridgeID {
			plan.Bridges[i].Status = status
			plan.Bridges[i].Error = errMsg
			break
		}
	}
	return s.store.SavePlan(ctx, plan, config.AppConfig.Bridge.QuoteTTL())
}

// HandlePartialFailure marks one leg failed, removes the failed chain's
// contribution from the expected output, and recommends a next step. It
// never re-submits anything on its own.
func (s *SweepPlannerService) HandlePartialFailure(ctx context.Context, planID, failedChain, errMsg string) (*models.SweepPlan, string, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, "", err
	}
	if plan == nil {
		return nil, "", nil
	}

	log.Printf("⚠️ [SweepPlanner] Handling failure for %s in plan %s: %s", failedChain, planID, errMsg)

	if bridge := plan.FindBridge(failedChain); bridge != nil {
		bridge.Status = models.BridgeLegStatusFailed
		bridge.Error = errMsg
	}

	remaining := 0
	for i := range plan.Bridges {
		b := &plan.Bridges[i]
		if b.SourceChain != failedChain && b.IsOutstanding() {
			remaining++
		}
	}

	// remove the failed chain's post-swap value from the expected output
	failedValue := 0.0
	for i := range plan.Sources {
		if plan.Sources[i].Chain == failedChain {
			failedValue += plan.Sources[i].TotalValueUsd()
		}
	}
	plan.ExpectedOutputValueUsd -= failedValue * (1 - config.AppConfig.Bridge.SwapFeeRate)

	if err := s.store.SavePlan(ctx, plan, config.AppConfig.Bridge.QuoteTTL()); err != nil {
		return nil, "", err
	}

	var recommendation string
	switch {
	case remaining == 0:
		recommendation = "All bridges have failed or completed. Consider retrying manually."
	case strings.Contains(errMsg, "insufficient"):
		recommendation = fmt.Sprintf("Insufficient balance on %s. The remaining %d bridges can proceed.", failedChain, remaining)
	case strings.Contains(errMsg, "timeout"):
		recommendation = fmt.Sprintf("Bridge from %s timed out. Consider retrying with a different provider.", failedChain)
	default:
		recommendation = fmt.Sprintf("Bridge from %s failed: %s. Continuing with remaining bridges.", failedChain, errMsg)
	}

	return plan, recommendation, nil
}

// bridgeableToken picks the intermediate token dust gets swapped into
// before bridging: USDC for stability, WETH as fallback, destination token
// when the chain has neither
func bridgeableToken(chain, destinationToken string) string {
	if info, ok := utils.GlobalChainRegistry.GetBySlug(chain); ok {
		if info.USDCAddress != "" {
			return info.USDCAddress
		}
		if info.WETHAddress != "" {
			return info.WETHAddress
		}
	}
	return destinationToken
}

// bridgePriority higher executes first: fast fills dominate, then cheap
// source chains, then output efficiency
func bridgePriority(quote *models.BridgeQuote, gasUsd float64) float64 {
	priority := 0.0

	if quote.IsFastFill {
		priority += 100
	} else if timeScore := 50 - float64(quote.EstimatedTime)/60; timeScore > 0 {
		priority += timeScore
	}

	if gasScore := 20 - gasUsd*2; gasScore > 0 {
		priority += gasScore
	}

	priority += models.Ratio(quote.OutputAmount, quote.InputAmount) * 30

	return priority
}
