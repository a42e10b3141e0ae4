package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"sweep-backend/internal/config"
	"sweep-backend/internal/handlers"
	"sweep-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		// Priority 1: environment variable
		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			origins := strings.Split(envOrigins, ",")
			allowedOrigins = make([]string, 0, len(origins))
			for _, o := range origins {
				trimmed := strings.TrimSpace(o)
				if trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			// Priority 2: YAML config
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			// Priority 3: default allow-all
			allowedOrigins = []string{"*"}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
					"remote_addr":     c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter wires the full HTTP surface
func SetupRouter(
	sweepHandler *handlers.SweepHandler,
	bridgeHandler *handlers.BridgeHandler,
	wsHandler *handlers.WebSocketHandler,
) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	logger := logrus.New()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Ops.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Ops.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
			"count":       len(allowedIPs),
		}).Info("Ops API IP whitelist configured")
	}
	opsOnly := middleware.NewIPRestrict(logger, allowedIPs)

	// ============ Health Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "sweep-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", opsOnly.Restrict(), gin.WrapH(promhttp.Handler()))

	// ============ WebSocket ============
	r.GET("/ws", wsHandler.HandleConnection)

	// ============ API Routes ============
	api := r.Group("/api")
	{
		sweep := api.Group("/sweep")
		{
			sweep.POST("/plan", sweepHandler.CalculatePlanHandler)
			sweep.POST("/compare", sweepHandler.CompareStrategiesHandler)
			sweep.POST("/execute", sweepHandler.ExecutePlanHandler)
			sweep.GET("/plan/:id", sweepHandler.GetPlanHandler)
		}

		bridge := api.Group("/bridge")
		{
			bridge.GET("/status/:txHash", bridgeHandler.GetStatusHandler)
			bridge.GET("/receipt/:bridgeId", bridgeHandler.GetReceiptHandler)
			bridge.GET("/history", bridgeHandler.GetHistoryHandler)
			bridge.GET("/supported", bridgeHandler.GetSupportedChainsHandler)
			bridge.GET("/notifications", bridgeHandler.GetNotificationsHandler)
		}

		api.GET("/ws/stats", opsOnly.Restrict(), wsHandler.StatsHandler)
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
