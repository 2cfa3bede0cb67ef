package repository

import (
	"context"

	"github.com/parkhub/parking-service/internal/models"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *models.Subscriber) error
	FindByUsername(ctx context.Context, username string) (*models.Subscriber, error)
	UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	Update(ctx context.Context, sub *models.Subscriber) error
	SetLoggedIn(ctx context.Context, username string, loggedIn bool) error
	FindAll(ctx context.Context) ([]models.Subscriber, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, sub *models.Subscriber) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Update(ctx context.Context, sub *models.Subscriber) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("username = ?", sub.Username).
		Updates(map[string]any{
			"name":       sub.Name,
			"phone":      sub.Phone,
			"email":      sub.Email,
			"car_number": sub.CarNumber,
		}).Error
}

// SetLoggedIn writes the persisted login projection. The session registry is
// the authoritative login state.
func (r *userRepository) SetLoggedIn(ctx context.Context, username string, loggedIn bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("username = ?", username).
		Update("is_logged_in", loggedIn).Error
}

func (r *userRepository) FindAll(ctx context.Context) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	if err := r.db.WithContext(ctx).Order("username ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
