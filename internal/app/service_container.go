package app

import (
	"fmt"
	"log"
	"sync"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/clients"
	"sweep-backend/internal/config"
	"sweep-backend/internal/db"
	"sweep-backend/internal/queue"
	"sweep-backend/internal/repository"
	"sweep-backend/internal/services"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ServiceContainer wires the sweep pipeline together
type ServiceContainer struct {
	// Database
	DB *gorm.DB

	// Infrastructure
	RedisClient *redis.Client
	PlanStore   cache.PlanStore
	JobQueue    queue.JobQueue
	NATSClient  *clients.NATSClient

	// Repositories
	HistoryRepo repository.HistoryRepository

	// Provider clients
	LiFiClient     *clients.LiFiClient
	DeBridgeClient *clients.DeBridgeClient
	GasPrices      *clients.GasPriceClient

	// Core Services
	Aggregator   services.QuoteAggregator
	Planner      *services.SweepPlannerService
	Comparator   *services.StrategyComparatorService
	Executor     *services.ExecutionService
	Tracker      *services.StatusTrackerService
	Notification *services.NotificationService

	// Push Service
	WebSocketPushService *services.WebSocketPushService

	natsOnce sync.Once
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once. NATS is optional; the
// pipeline degrades to websocket-only notifications without it.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{
			DB: db.DB,
		}

		if err := container.initInfrastructure(); err != nil {
			initErr = fmt.Errorf("failed to initialize infrastructure: %w", err)
			return
		}

		container.initRepositories()
		container.initCoreServices()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

// initInfrastructure redis plan store, job queue and optional NATS
func (c *ServiceContainer) initInfrastructure() error {
	cfg := config.AppConfig

	c.RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.PlanStore = cache.NewRedisPlanStore(c.RedisClient)
	c.JobQueue = queue.NewRedisJobQueue(c.RedisClient)

	// NATS is optional; without it lifecycle events only reach websockets
	c.natsOnce.Do(func() {
		if cfg.NATS.URL == "" {
			log.Println("⚠️ NATS URL not configured, lifecycle events limited to websocket push")
			return
		}
		nc, err := clients.NewNATSClient(cfg.NATS.URL, "SWEEP_EVENTS")
		if err != nil {
			log.Printf("⚠️ NATS connection failed, continuing without it: %v", err)
			return
		}
		c.NATSClient = nc
	})

	return nil
}

// initRepositories initializes repositories
func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")
	c.HistoryRepo = repository.NewHistoryRepository(c.DB, config.AppConfig.Bridge.HistoryLimit)
}

// initCoreServices builds the planner, comparator, executor and tracker
func (c *ServiceContainer) initCoreServices() {
	log.Println("🔧 Initializing Core Services...")

	c.LiFiClient = clients.NewLiFiClient()
	c.DeBridgeClient = clients.NewDeBridgeClient()
	c.GasPrices = clients.NewGasPriceClient()

	c.WebSocketPushService = services.NewWebSocketPushService()
	c.Notification = services.NewNotificationService(c.NATSClient, c.WebSocketPushService, c.PlanStore)

	c.Aggregator = services.NewBridgeAggregatorService(c.LiFiClient, c.DeBridgeClient, c.PlanStore)
	c.Planner = services.NewSweepPlannerService(c.Aggregator, c.PlanStore, c.GasPrices)
	c.Comparator = services.NewStrategyComparatorService(c.Planner, c.Aggregator)

	submitter := &services.SimulatedSubmitter{}
	c.Executor = services.NewExecutionService(c.Planner, c.Aggregator, c.PlanStore, c.JobQueue, submitter, c.Notification)
	c.Tracker = services.NewStatusTrackerService(c.Planner, c.Aggregator, c.PlanStore, c.JobQueue, c.HistoryRepo, c.Notification)
}

// Shutdown releases infrastructure connections
func (c *ServiceContainer) Shutdown() {
	log.Println("🛑 Shutting down Service Container...")
	if c.JobQueue != nil {
		if err := c.JobQueue.Close(); err != nil {
			log.Printf("⚠️ Job queue close failed: %v", err)
		}
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			log.Printf("⚠️ Redis close failed: %v", err)
		}
	}
}
