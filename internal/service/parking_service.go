package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/parkhub/parking-service/internal/repository"
	"github.com/parkhub/parking-service/pkg/rabbitmq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyParked   = errors.New("user already has an active parking session")
	ErrNoSpotAvailable = errors.New("no available parking spots")
	ErrInvalidCode     = errors.New("invalid parking code or already exited")
	ErrInvalidHours    = errors.New("invalid extension hours")
)

// Tariff carries the billing constants applied on exit.
type Tariff struct {
	HourlyRate       float64
	PenaltyRate      float64
	MaxParkingHours  int
	DefaultStayHours int
	TotalSpots       int
}

type ParkingService interface {
	CheckAvailability(ctx context.Context) (int64, error)
	Enter(ctx context.Context, username string) (*models.ParkingOrder, error)
	// EnterTx performs the entry inside an existing transaction so compound
	// operations (reservation activation) commit or roll back as one unit.
	EnterTx(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error)
	Exit(ctx context.Context, code string) (float64, error)
	Extend(ctx context.Context, code string, hours int) error
	ActiveOrders(ctx context.Context) ([]models.ParkingOrder, error)
}

type parkingService struct {
	repo      repository.ParkingRepository
	tx        repository.TxManager
	publisher *rabbitmq.Publisher
	tariff    Tariff
	logger    *zap.Logger
	now       func() time.Time
}

func NewParkingService(repo repository.ParkingRepository, tx repository.TxManager, publisher *rabbitmq.Publisher, tariff Tariff, logger *zap.Logger) ParkingService {
	return &parkingService{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		tariff:    tariff,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *parkingService) CheckAvailability(ctx context.Context) (int64, error) {
	return s.repo.CountFreeSpots(ctx)
}

func (s *parkingService) Enter(ctx context.Context, username string) (*models.ParkingOrder, error) {
	var order *models.ParkingOrder

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		o, err := s.EnterTx(ctx, tx, username)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("parking.entered", order)
	}

	s.logger.Info("parking entry",
		zap.String("username", username),
		zap.String("code", order.Code),
		zap.Uint("spot", order.SpotID))
	return order, nil
}

func (s *parkingService) EnterTx(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
	// 1. Reject a second concurrent session for the same user
	if _, err := s.repo.FindActiveOrderByUsername(ctx, tx, username); err == nil {
		return nil, ErrAlreadyParked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check active order: %w", err)
	}

	// 2. Lock the lowest free spot — serializes concurrent entries
	spot, err := s.repo.FindFreeSpotForUpdate(ctx, tx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSpotAvailable
		}
		return nil, fmt.Errorf("find free spot: %w", err)
	}

	// 3. Allocate a code unused among all orders
	code, err := s.uniqueOrderCode(ctx, tx)
	if err != nil {
		return nil, err
	}

	// 4. Insert the order and mark the spot; commits with the caller's tx
	now := s.now()
	order := &models.ParkingOrder{
		Code:             code,
		Username:         username,
		SpotID:           spot.ID,
		EntryTime:        now,
		ExpectedExitTime: now.Add(time.Duration(s.tariff.DefaultStayHours) * time.Hour),
	}
	if err := s.repo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.repo.SetSpotOccupied(ctx, tx, spot.ID, true); err != nil {
		return nil, fmt.Errorf("occupy spot: %w", err)
	}

	return order, nil
}

func (s *parkingService) Exit(ctx context.Context, code string) (float64, error) {
	var (
		cost  float64
		order *models.ParkingOrder
	)

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		o, err := s.repo.FindActiveOrderByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return fmt.Errorf("find order: %w", err)
		}

		now := s.now()
		cost = s.costFor(o.EntryTime, o.ExpectedExitTime, now)

		if err := s.repo.CloseOrder(ctx, tx, code, now, cost); err != nil {
			return fmt.Errorf("close order: %w", err)
		}
		if err := s.repo.SetSpotOccupied(ctx, tx, o.SpotID, false); err != nil {
			return fmt.Errorf("free spot: %w", err)
		}

		order = o
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("parking.exited", map[string]any{
			"code":       order.Code,
			"username":   order.Username,
			"spot_id":    order.SpotID,
			"total_cost": cost,
		})
	}

	s.logger.Info("parking exit", zap.String("code", code), zap.Float64("cost", cost))
	return cost, nil
}

func (s *parkingService) Extend(ctx context.Context, code string, hours int) error {
	if hours < 1 || hours > s.tariff.MaxParkingHours {
		return ErrInvalidHours
	}

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.FindActiveOrderByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return fmt.Errorf("find order: %w", err)
		}

		newExit := order.ExpectedExitTime.Add(time.Duration(hours) * time.Hour)
		affected, err := s.repo.ExtendOrder(ctx, tx, code, newExit)
		if err != nil {
			return fmt.Errorf("extend order: %w", err)
		}
		if affected == 0 {
			return ErrInvalidCode
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("parking extended", zap.String("code", code), zap.Int("hours", hours))
	return nil
}

func (s *parkingService) ActiveOrders(ctx context.Context) ([]models.ParkingOrder, error) {
	return s.repo.FindActiveOrders(ctx)
}

// costFor bills ceil(parked hours) with a one-hour minimum at the hourly
// rate, plus a surcharge of ceil(overtime hours) * rate * (penalty - 1) once
// the expected exit has passed.
func (s *parkingService) costFor(entry, expectedExit, now time.Time) float64 {
	hours := int(math.Ceil(now.Sub(entry).Hours()))
	if hours < 1 {
		hours = 1
	}
	cost := float64(hours) * s.tariff.HourlyRate

	if now.After(expectedExit) {
		overtime := int(math.Ceil(now.Sub(expectedExit).Hours()))
		cost += float64(overtime) * s.tariff.HourlyRate * (s.tariff.PenaltyRate - 1)
	}
	return cost
}

func (s *parkingService) uniqueOrderCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		candidate := fmt.Sprintf("P%06d", rand.Intn(1000000))
		exists, err := s.repo.OrderCodeExists(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("check parking code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique parking code")
}
