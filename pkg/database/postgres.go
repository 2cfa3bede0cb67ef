package database

import (
	"fmt"

	"github.com/parkhub/parking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Subscriber{},
		&models.ParkingSpot{},
		&models.ParkingOrder{},
		&models.Reservation{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Partial unique indexes: at most one active parking order and one
	// active reservation per username.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_active_parking_order
		ON parking_orders (username)
		WHERE exit_time IS NULL
	`)
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_active_reservation
		ON reservations (username)
		WHERE status = 'ACTIVE'
	`)

	return db, nil
}

// SeedSpots ensures spots 1..total exist; existing rows keep their occupancy.
func SeedSpots(db *gorm.DB, total int) error {
	spots := make([]models.ParkingSpot, 0, total)
	for id := 1; id <= total; id++ {
		spots = append(spots, models.ParkingSpot{ID: uint(id)})
	}

	return db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(spots, 100).Error
}
