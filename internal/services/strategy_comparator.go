package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"sweep-backend/internal/config"
	"sweep-backend/internal/models"
	"sweep-backend/internal/utils"
)

// SweepStrategy one candidate consolidation route with its cost analysis
type SweepStrategy struct {
	Name         string             `json:"name"`
	Plan         *models.SweepPlan  `json:"plan"`
	CostAnalysis *SweepCostAnalysis `json:"costAnalysis"`
}

// StrategyComparison the ranked candidates plus the winner and why
type StrategyComparison struct {
	Strategies  []SweepStrategy   `json:"strategies"`
	Recommended *models.SweepPlan `json:"recommended"`
	Reason      string            `json:"reason"`
}

// StrategyComparatorService builds the direct plan plus hub-routed
// candidates and ranks them by expected output. The direct plan is always a
// candidate, so comparison never comes back empty.
type StrategyComparatorService struct {
	planner    *SweepPlannerService
	aggregator QuoteAggregator
}

// NewStrategyComparatorService creates the comparator
func NewStrategyComparatorService(planner *SweepPlannerService, aggregator QuoteAggregator) *StrategyComparatorService {
	return &StrategyComparatorService{
		planner:    planner,
		aggregator: aggregator,
	}
}

// CompareStrategies evaluates direct bridging against consolidating through
// each configured hub chain first
func (s *StrategyComparatorService) CompareStrategies(ctx context.Context, req *SweepRequest) (*StrategyComparison, error) {
	directPlan, err := s.planner.CalculateSweepPlan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate direct plan: %w", err)
	}

	strategies := []SweepStrategy{{
		Name:         "Direct Bridge",
		Plan:         directPlan,
		CostAnalysis: s.planner.AnalyzeCosts(directPlan),
	}}

	for _, hub := range config.AppConfig.Bridge.HubChains {
		if hub == req.DestinationChain {
			continue
		}
		hubStrategy, err := s.hubStrategy(ctx, req, hub)
		if err != nil {
			log.Printf("⚠️ [StrategyComparator] Hub route via %s not viable: %v", hub, err)
			continue
		}
		if hubStrategy != nil {
			strategies = append(strategies, *hubStrategy)
		}
	}

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].CostAnalysis.ExpectedOutputValueUsd > strategies[j].CostAnalysis.ExpectedOutputValueUsd
	})

	winner := strategies[0]
	reason := "Direct bridging provides the best output value"
	if winner.Name != "Direct Bridge" {
		reason = fmt.Sprintf("Routing via %s reduces total fees", winner.Plan.Bridges[len(winner.Plan.Bridges)-1].SourceChain)
	}

	log.Printf("✅ [StrategyComparator] %d strategies compared, recommending %q", len(strategies), winner.Name)
	return &StrategyComparison{
		Strategies:  strategies,
		Recommended: winner.Plan,
		Reason:      reason,
	}, nil
}

// hubStrategy consolidates everything onto the hub chain first, then adds
// one hub-to-destination leg on top. Returns (nil, nil) when the hub cannot
// quote the final hop.
func (s *StrategyComparatorService) hubStrategy(ctx context.Context, req *SweepRequest, hub string) (*SweepStrategy, error) {
	hubReq := *req
	hubReq.DestinationChain = hub
	hubReq.DestinationToken = hubUSDC(hub)

	hubPlan, err := s.planner.CalculateSweepPlan(ctx, &hubReq)
	if err != nil {
		return nil, err
	}

	consolidated := models.TokenAmountFromUsd(hubPlan.ExpectedOutputValueUsd, stableDecimals)
	if consolidated.Sign() <= 0 {
		return nil, nil
	}

	finalQuote, err := s.aggregator.GetBestQuote(ctx, &QuoteRequest{
		SourceChain:      hub,
		DestinationChain: req.DestinationChain,
		SourceToken:      hubUSDC(hub),
		DestinationToken: req.DestinationToken,
		Amount:           consolidated,
		Sender:           req.Sender,
		Recipient:        req.Recipient,
		Slippage:         req.Slippage,
	})
	if err != nil {
		return nil, err
	}
	if finalQuote == nil {
		return nil, nil
	}

	modified := *hubPlan
	modified.ID = fmt.Sprintf("%s-%s-route", hubPlan.ID, hub)
	modified.DestinationChain = req.DestinationChain
	modified.DestinationToken = req.DestinationToken
	modified.Bridges = append(append([]models.PlannedBridge{}, hubPlan.Bridges...), models.PlannedBridge{
		ID:               fmt.Sprintf("%s-%s", modified.ID, hub),
		SourceChain:      hub,
		DestinationChain: req.DestinationChain,
		Token:            hubUSDC(hub),
		Amount:           consolidated,
		Quote:            finalQuote,
		Priority:         0, // runs last, after consolidation lands
		Status:           models.BridgeLegStatusPending,
	})
	modified.TotalFeesUsd = hubPlan.TotalFeesUsd + models.UsdFromTokenAmount(finalQuote.TotalFees(), stableDecimals)
	modified.ExpectedOutputValueUsd = models.UsdFromTokenAmount(finalQuote.OutputAmount, stableDecimals)
	modified.EstimatedTotalTime = hubPlan.EstimatedTotalTime + finalQuote.EstimatedTime

	return &SweepStrategy{
		Name:         fmt.Sprintf("Via %s", hub),
		Plan:         &modified,
		CostAnalysis: s.planner.AnalyzeCosts(&modified),
	}, nil
}

func hubUSDC(hub string) string {
	if info, ok := utils.GlobalChainRegistry.GetBySlug(hub); ok {
		return info.USDCAddress
	}
	return ""
}
