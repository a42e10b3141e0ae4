package db

import (
	"log"
	"time"

	"sweep-backend/internal/config"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB connects to postgres and migrates the history schema
func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	if err := DB.AutoMigrate(
		&models.BridgeHistoryEntry{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("✅ Database schema migrated successfully")

	metrics.DBConnectionStatus.Set(1)
	go monitorConnectionPool()
}

// CloseDB closes the underlying connection pool
func CloseDB() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("⚠️ [Database] Close failed: %v", err)
	}
	metrics.DBConnectionStatus.Set(0)
}

// monitorConnectionPool exports pool stats periodically
func monitorConnectionPool() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		sqlDB, err := DB.DB()
		if err != nil {
			metrics.DBConnectionStatus.Set(0)
			continue
		}
		if err := sqlDB.Ping(); err != nil {
			metrics.DBConnectionStatus.Set(0)
			continue
		}
		stats := sqlDB.Stats()
		metrics.DBConnectionStatus.Set(1)
		metrics.DBConnectionActive.Set(float64(stats.InUse))
		metrics.DBConnectionIdle.Set(float64(stats.Idle))
	}
}
