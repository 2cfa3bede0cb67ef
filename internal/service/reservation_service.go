package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/parkhub/parking-service/internal/repository"
	"github.com/parkhub/parking-service/pkg/rabbitmq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidDateFormat   = errors.New("invalid date format, use yyyy-MM-dd HH:mm")
	ErrPastDate            = errors.New("reservation must be for a future date/time")
	ErrAlreadyReserved     = errors.New("user already has an active reservation")
	ErrReservationNotFound = errors.New("reservation not found or not active")
	ErrNotOwner            = errors.New("reservation does not belong to user")
	ErrOutsideWindow       = errors.New("outside the activation window")
)

const (
	DateTimeLayout = "2006-01-02 15:04"

	// Activation is legal strictly inside (t-30m, t+30m); both boundary
	// instants are rejected.
	activationWindow = 30 * time.Minute
)

type ReservationService interface {
	Reserve(ctx context.Context, username, dateTimeStr string) (string, error)
	Cancel(ctx context.Context, username, code string) error
	Activate(ctx context.Context, username, code string) (*models.ParkingOrder, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	parking   ParkingService
	tx        repository.TxManager
	publisher *rabbitmq.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewReservationService(repo repository.ReservationRepository, parking ParkingService, tx repository.TxManager, publisher *rabbitmq.Publisher, logger *zap.Logger) ReservationService {
	return &reservationService{
		repo:      repo,
		parking:   parking,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *reservationService) Reserve(ctx context.Context, username, dateTimeStr string) (string, error) {
	when, err := time.ParseInLocation(DateTimeLayout, dateTimeStr, time.Local)
	if err != nil {
		return "", ErrInvalidDateFormat
	}
	if !when.After(s.now()) {
		return "", ErrPastDate
	}

	var code string
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindActiveByUsername(ctx, tx, username); err == nil {
			return ErrAlreadyReserved
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check active reservation: %w", err)
		}

		code, err = s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		res := &models.Reservation{
			Code:            code,
			Username:        username,
			ReservationTime: when,
			Status:          models.ReservationActive,
		}
		if err := s.repo.Create(ctx, tx, res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("reservation.created", map[string]any{
			"code":             code,
			"username":         username,
			"reservation_time": when,
		})
	}

	s.logger.Info("reservation created", zap.String("username", username), zap.String("code", code))
	return code, nil
}

func (s *reservationService) Cancel(ctx context.Context, username, code string) error {
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		res, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("find reservation: %w", err)
		}

		if res.Username != username || res.Status != models.ReservationActive {
			return ErrReservationNotFound
		}

		if err := s.repo.UpdateStatus(ctx, tx, code, models.ReservationCancelled); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("reservation.cancelled", map[string]any{
			"code":     code,
			"username": username,
		})
	}

	s.logger.Info("reservation cancelled", zap.String("username", username), zap.String("code", code))
	return nil
}

// Activate flips the reservation to ACTIVATED and performs the parking entry
// as one transaction: if no spot can be allocated, the status flip rolls back
// and the reservation stays ACTIVE.
func (s *reservationService) Activate(ctx context.Context, username, code string) (*models.ParkingOrder, error) {
	var order *models.ParkingOrder

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		res, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("find reservation: %w", err)
		}

		if res.Status != models.ReservationActive {
			return ErrReservationNotFound
		}
		if res.Username != username {
			return ErrNotOwner
		}

		now := s.now()
		lower := res.ReservationTime.Add(-activationWindow)
		upper := res.ReservationTime.Add(activationWindow)
		if !now.After(lower) || !now.Before(upper) {
			return ErrOutsideWindow
		}

		if err := s.repo.UpdateStatus(ctx, tx, code, models.ReservationActivated); err != nil {
			return fmt.Errorf("activate reservation: %w", err)
		}

		order, err = s.parking.EnterTx(ctx, tx, username)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("reservation.activated", map[string]any{
			"code":         code,
			"username":     username,
			"parking_code": order.Code,
		})
	}

	s.logger.Info("reservation activated",
		zap.String("username", username),
		zap.String("code", code),
		zap.String("parking_code", order.Code))
	return order, nil
}

func (s *reservationService) ExpireOverdue(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireActiveBefore(ctx, s.now().Add(-activationWindow))
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired overdue reservations", zap.Int64("count", count))
	}
	return count, nil
}

func (s *reservationService) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		candidate := fmt.Sprintf("%05d", 10000+rand.Intn(90000))
		exists, err := s.repo.CodeExists(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("check reservation code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique reservation code")
}
