package repository

import (
	"context"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParkingRepository interface {
	CountFreeSpots(ctx context.Context) (int64, error)
	FindActiveOrderByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error)
	// FindFreeSpotForUpdate locks and returns the lowest-numbered free spot.
	FindFreeSpotForUpdate(ctx context.Context, tx *gorm.DB) (*models.ParkingSpot, error)
	SetSpotOccupied(ctx context.Context, tx *gorm.DB, spotID uint, occupied bool) error
	CreateOrder(ctx context.Context, tx *gorm.DB, order *models.ParkingOrder) error
	FindActiveOrderByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ParkingOrder, error)
	CloseOrder(ctx context.Context, tx *gorm.DB, code string, exitTime time.Time, cost float64) error
	ExtendOrder(ctx context.Context, tx *gorm.DB, code string, newExpectedExit time.Time) (int64, error)
	OrderCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	FindActiveOrders(ctx context.Context) ([]models.ParkingOrder, error)
}

type parkingRepository struct {
	db *gorm.DB
}

func NewParkingRepository(db *gorm.DB) ParkingRepository {
	return &parkingRepository{db: db}
}

func (r *parkingRepository) CountFreeSpots(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingSpot{}).
		Where("is_occupied = ?", false).
		Count(&count).Error
	return count, err
}

func (r *parkingRepository) FindActiveOrderByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
	var order models.ParkingOrder
	err := tx.WithContext(ctx).
		Where("username = ? AND exit_time IS NULL", username).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *parkingRepository) FindFreeSpotForUpdate(ctx context.Context, tx *gorm.DB) (*models.ParkingSpot, error) {
	var spot models.ParkingSpot
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_occupied = ?", false).
		Order("id ASC").
		First(&spot).Error
	if err != nil {
		return nil, err
	}
	return &spot, nil
}

func (r *parkingRepository) SetSpotOccupied(ctx context.Context, tx *gorm.DB, spotID uint, occupied bool) error {
	return tx.WithContext(ctx).
		Model(&models.ParkingSpot{}).
		Where("id = ?", spotID).
		Update("is_occupied", occupied).Error
}

func (r *parkingRepository) CreateOrder(ctx context.Context, tx *gorm.DB, order *models.ParkingOrder) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *parkingRepository) FindActiveOrderByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ParkingOrder, error) {
	var order models.ParkingOrder
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ? AND exit_time IS NULL", code).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *parkingRepository) CloseOrder(ctx context.Context, tx *gorm.DB, code string, exitTime time.Time, cost float64) error {
	return tx.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Where("code = ? AND exit_time IS NULL", code).
		Updates(map[string]any{
			"exit_time":  exitTime,
			"total_cost": cost,
		}).Error
}

func (r *parkingRepository) ExtendOrder(ctx context.Context, tx *gorm.DB, code string, newExpectedExit time.Time) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Where("code = ? AND exit_time IS NULL", code).
		Update("expected_exit_time", newExpectedExit)
	return result.RowsAffected, result.Error
}

func (r *parkingRepository) OrderCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *parkingRepository) FindActiveOrders(ctx context.Context) ([]models.ParkingOrder, error) {
	var orders []models.ParkingOrder
	err := r.db.WithContext(ctx).
		Where("exit_time IS NULL").
		Order("entry_time ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
