package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweep-backend/internal/app"
	"sweep-backend/internal/clients"
	"sweep-backend/internal/config"
	"sweep-backend/internal/db"
	"sweep-backend/internal/handlers"
	"sweep-backend/internal/router"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if _, err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db.InitDB()

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}

	// Background consumers for execution and status tracking
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.Executor.Start(ctx, container.JobQueue)
	container.Tracker.Start(ctx, container.JobQueue)
	container.GasPrices.StartRefreshing(ctx, clients.GasRefreshInterval)

	sweepHandler := handlers.NewSweepHandler(container.Planner, container.Comparator, container.JobQueue, container.PlanStore)
	bridgeHandler := handlers.NewBridgeHandler(container.Aggregator, container.HistoryRepo, container.Notification, container.PlanStore)
	wsHandler := handlers.NewWebSocketHandler(container.WebSocketPushService)

	r := router.SetupRouter(sweepHandler, bridgeHandler, wsHandler)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 [Server] Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 [Server] Shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ [Server] Forced shutdown: %v", err)
	}

	container.Shutdown()
	db.CloseDB()
	log.Println("✅ [Server] Stopped")
}
