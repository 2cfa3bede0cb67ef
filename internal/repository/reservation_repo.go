package repository

import (
	"context"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error
	FindActiveByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.Reservation, error)
	// FindByCodeForUpdate locks the reservation row for a status transition.
	FindByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	return tx.WithContext(ctx).Create(res).Error
}

func (r *reservationRepository) FindActiveByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.Reservation, error) {
	var res models.Reservation
	err := tx.WithContext(ctx).
		Where("username = ? AND status = ?", username, models.ReservationActive).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) FindByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
	var res models.Reservation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("code = ?", code).
		Update("status", status).Error
}

func (r *reservationRepository) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// ExpireActiveBefore marks ACTIVE reservations whose activation window has
// passed as EXPIRED and returns how many were swept.
func (r *reservationRepository) ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status = ? AND reservation_time < ?", models.ReservationActive, cutoff).
		Update("status", models.ReservationExpired)
	return result.RowsAffected, result.Error
}
