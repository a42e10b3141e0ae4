package handlers

import (
	"log"
	"net/http"
	"time"

	"sweep-backend/internal/cache"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/queue"
	"sweep-backend/internal/services"
	"sweep-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// SweepHandler handles sweep planning and execution API requests
type SweepHandler struct {
	planner    *services.SweepPlannerService
	comparator *services.StrategyComparatorService
	producer   queue.Producer
	store      cache.PlanStore
}

// NewSweepHandler creates a new SweepHandler instance
func NewSweepHandler(planner *services.SweepPlannerService, comparator *services.StrategyComparatorService, producer queue.Producer, store cache.PlanStore) *SweepHandler {
	return &SweepHandler{
		planner:    planner,
		comparator: comparator,
		producer:   producer,
		store:      store,
	}
}

// validateSweepRequest shared validation for plan and compare requests
func validateSweepRequest(c *gin.Context, req *services.SweepRequest) bool {
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return false
	}
	if len(req.Tokens) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokens is required"})
		return false
	}
	if req.DestinationChain == "" || req.DestinationToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destinationChain and destinationToken are required"})
		return false
	}
	if !utils.GlobalChainRegistry.IsSupported(req.DestinationChain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported destination chain: " + req.DestinationChain})
		return false
	}
	for _, ct := range req.Tokens {
		if !utils.GlobalChainRegistry.IsSupported(ct.Chain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported source chain: " + ct.Chain})
			return false
		}
	}
	if req.Sender != "" {
		if err := utils.ValidateAddress(req.Sender); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender address"})
			return false
		}
	}
	return true
}

// CalculatePlanHandler handles POST /api/sweep/plan
// Calculates a sweep plan for the given multi-chain token balances
func (h *SweepHandler) CalculatePlanHandler(c *gin.Context) {
	var req services.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if !validateSweepRequest(c, &req) {
		return
	}

	plan, err := h.planner.CalculateSweepPlan(c.Request.Context(), &req)
	if err != nil {
		log.Printf("❌ [SweepHandler] Plan calculation failed for user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate sweep plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":  plan,
		"costs": h.planner.AnalyzeCosts(plan),
	})
}

// CompareStrategiesHandler handles POST /api/sweep/compare
// Compares direct bridging against hub routing for the same inventory
func (h *SweepHandler) CompareStrategiesHandler(c *gin.Context) {
	var req services.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if !validateSweepRequest(c, &req) {
		return
	}

	comparison, err := h.comparator.CompareStrategies(c.Request.Context(), &req)
	if err != nil {
		log.Printf("❌ [SweepHandler] Strategy comparison failed for user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compare strategies"})
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// ExecutePlanRequest body for POST /api/sweep/execute
type ExecutePlanRequest struct {
	PlanID        string `json:"planId"`
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}

// ExecutePlanHandler handles POST /api/sweep/execute
// Validates the plan is still live and enqueues it for the execution
// coordinator; the response is an acknowledgement, not the outcome
func (h *SweepHandler) ExecutePlanHandler(c *gin.Context) {
	var req ExecutePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.PlanID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "planId and userId are required"})
		return
	}
	if req.WalletAddress != "" {
		if err := utils.ValidateAddress(req.WalletAddress); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid walletAddress"})
			return
		}
	}

	plan, err := h.planner.GetPlan(c.Request.Context(), req.PlanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Plan not found or expired",
			"code":  sweeperrors.CodePlanNotFound,
		})
		return
	}
	if plan.IsExpired(time.Now()) {
		c.JSON(http.StatusGone, gin.H{
			"error": "Plan quotes have expired, recalculate before executing",
			"code":  sweeperrors.CodePlanExpired,
		})
		return
	}
	if plan.IsNoOp() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Plan has nothing to execute",
			"code":  sweeperrors.CodePlanNoOp,
		})
		return
	}

	job := queue.SweepExecuteJob{
		PlanID:        req.PlanID,
		UserID:        req.UserID,
		WalletAddress: req.WalletAddress,
	}
	if err := h.producer.Enqueue(c.Request.Context(), queue.JobTypeSweepExecute, job, 0); err != nil {
		log.Printf("❌ [SweepHandler] Failed to enqueue execution for plan %s: %v", req.PlanID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue plan execution"})
		return
	}

	log.Printf("🚀 [SweepHandler] Plan %s queued for execution (user %s)", req.PlanID, req.UserID)
	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"planId": req.PlanID,
	})
}

// GetPlanHandler handles GET /api/sweep/plan/:id
// Returns the plan document with live per-leg statuses, plus the cached
// execution result when one exists
func (h *SweepHandler) GetPlanHandler(c *gin.Context) {
	planID := c.Param("id")
	if planID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan id is required"})
		return
	}

	plan, err := h.planner.GetPlan(c.Request.Context(), planID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Plan not found or expired",
			"code":  sweeperrors.CodePlanNotFound,
		})
		return
	}

	response := gin.H{
		"plan":               plan,
		"expired":            plan.IsExpired(time.Now()),
		"outstandingBridges": len(plan.OutstandingBridges()),
	}

	var result map[string]interface{}
	found, err := h.store.GetJSON(c.Request.Context(), services.ExecutionResultKey(planID), &result)
	if err == nil && found {
		response["executionResult"] = result
	}

	c.JSON(http.StatusOK, response)
}
