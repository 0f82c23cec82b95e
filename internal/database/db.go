package database

import (
	"log"

	"sahara-backend/internal/config"
	"sahara-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	// TranslateError so unique-index conflicts surface as gorm.ErrDuplicatedKey
	// (order code generation retries on that)
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.DeliveryArea{},
		&models.Material{},
		&models.PriceTier{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimelineEntry{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	// stock can never go negative, enforce it at the database too
	if err := DB.Exec(`ALTER TABLE materials DROP CONSTRAINT IF EXISTS chk_materials_stock_non_negative`).Error; err != nil {
		log.Printf("Dropping stock constraint failed (continuing): %v", err)
	}
	if err := DB.Exec(`ALTER TABLE materials ADD CONSTRAINT chk_materials_stock_non_negative CHECK (stock_quantity >= 0)`).Error; err != nil {
		log.Printf("Adding stock constraint failed (may already exist): %v", err)
	}

	log.Println("Database connected, migration complete.")
}
