package main

import (
	"fmt"
	"log"
	"os"

	"sweep-backend/internal/config"
	"sweep-backend/internal/db"
)

// Small ops tool: verifies the database is reachable and the bridge
// history table exists with the expected shape.
func main() {
	fmt.Println("🔍 Verifying database connection...")

	configPath := os.Getenv("CONFIG_PATH")
	if _, err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db.InitDB()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	var count int
	err = sqlDB.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = 'bridge_history_entries'
	`).Scan(&count)
	if err != nil {
		log.Fatalf("Failed to inspect bridge_history_entries: %v", err)
	}
	if count == 0 {
		fmt.Println("❌ bridge_history_entries table does not exist!")
		os.Exit(1)
	}
	fmt.Printf("✅ bridge_history_entries present with %d columns\n", count)

	var entries int64
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM bridge_history_entries").Scan(&entries); err != nil {
		log.Fatalf("Failed to count history entries: %v", err)
	}
	fmt.Printf("📊 %d bridge history entries recorded\n", entries)
}
