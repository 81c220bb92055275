package main

import (
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"reporter/src/config"
)

// Applies the scheduler table migration to a networked postgres store. The
// service also bootstraps the table at runtime when it is missing; this
// runner exists for deployments that prefer explicit migration.
func main() {
	cfg, err := config.LoadConfig("./settings")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	port := cfg.Database.Port
	if port == "" {
		port = "5432"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB from GORM DB: %v", err)
	}

	// Apply migrations
	if err := goose.Up(sqlDB, "./migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Database migration completed successfully")
}
