package handlers

import (
	"log"
	"net/http"
	"strconv"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/models"
	"sweep-backend/internal/repository"
	"sweep-backend/internal/services"
	"sweep-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// BridgeHandler handles bridge status, history and chain metadata requests
type BridgeHandler struct {
	aggregator   services.QuoteAggregator
	history      repository.HistoryRepository
	notification *services.NotificationService
	store        cache.PlanStore
}

// NewBridgeHandler creates a new BridgeHandler instance
func NewBridgeHandler(aggregator services.QuoteAggregator, history repository.HistoryRepository, notification *services.NotificationService, store cache.PlanStore) *BridgeHandler {
	return &BridgeHandler{
		aggregator:   aggregator,
		history:      history,
		notification: notification,
		store:        store,
	}
}

// GetStatusHandler handles GET /api/bridge/status/:txHash
// Queries the bridge provider for the live status of one leg. Provider,
// sourceChain and destinationChain arrive as query parameters because the
// DLN status path needs both ends of the route.
func (h *BridgeHandler) GetStatusHandler(c *gin.Context) {
	txHash := c.Param("txHash")
	if err := utils.ValidateTxHash(txHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction hash"})
		return
	}

	provider := models.BridgeProvider(c.Query("provider"))
	sourceChain := c.Query("sourceChain")
	destinationChain := c.Query("destinationChain")
	if provider == "" || sourceChain == "" || destinationChain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider, sourceChain and destinationChain query parameters are required"})
		return
	}

	receipt, err := h.aggregator.GetStatus(c.Request.Context(), provider, txHash, sourceChain, destinationChain)
	if err != nil {
		log.Printf("⚠️ [BridgeHandler] Status query failed for %s: %v", txHash, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to query bridge status"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// GetReceiptHandler handles GET /api/bridge/receipt/:bridgeId
// Returns the cached terminal receipt for a tracked leg
func (h *BridgeHandler) GetReceiptHandler(c *gin.Context) {
	bridgeID := c.Param("bridgeId")
	if bridgeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bridge id is required"})
		return
	}

	var receipt models.BridgeReceipt
	found, err := h.store.GetJSON(c.Request.Context(), cache.ReceiptKey(bridgeID), &receipt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load receipt"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// GetHistoryHandler handles GET /api/bridge/history
// Returns a user's bridge history newest first with optional status filter
// and pagination
func (h *BridgeHandler) GetHistoryHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	status := models.BridgeLegStatus(c.Query("status"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	entries, total, err := h.history.ListByUser(c.Request.Context(), userID, status, page, pageSize)
	if err != nil {
		log.Printf("❌ [BridgeHandler] History query failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bridge history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetSupportedChainsHandler handles GET /api/bridge/supported
// Lists the chains the sweep pipeline can plan across
func (h *BridgeHandler) GetSupportedChainsHandler(c *gin.Context) {
	slugs := utils.GlobalChainRegistry.Slugs()
	chains := make([]*utils.ChainInfo, 0, len(slugs))
	for _, slug := range slugs {
		if info, ok := utils.GlobalChainRegistry.GetBySlug(slug); ok {
			chains = append(chains, info)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"chains": chains,
		"count":  len(chains),
	})
}

// GetNotificationsHandler handles GET /api/bridge/notifications
// Returns a user's recent bridge lifecycle notifications
func (h *BridgeHandler) GetNotificationsHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.notification.ListNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}
