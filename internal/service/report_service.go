package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/parkhub/parking-service/internal/repository"
	"go.uber.org/zap"
)

var ErrUnknownReportType = errors.New("unknown report type")

const (
	ReportDaily   = "DAILY"
	ReportMonthly = "MONTHLY"
	ReportSummary = "SUMMARY"

	historyLimit    = 50
	topUsersLimit   = 10
	activeUserHoriz = 30 * 24 * time.Hour
)

type ReportService interface {
	ParkingHistory(ctx context.Context, username string) ([]models.ParkingOrder, error)
	Generate(ctx context.Context, kind string) (map[string]any, error)
}

type reportService struct {
	repo       repository.ReportRepository
	totalSpots int
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportService(repo repository.ReportRepository, totalSpots int, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, totalSpots: totalSpots, logger: logger, now: time.Now}
}

func (s *reportService) ParkingHistory(ctx context.Context, username string) ([]models.ParkingOrder, error) {
	return s.repo.HistoryByUsername(ctx, username, historyLimit)
}

func (s *reportService) Generate(ctx context.Context, kind string) (map[string]any, error) {
	switch kind {
	case ReportDaily:
		return s.daily(ctx)
	case ReportMonthly:
		return s.monthly(ctx)
	case ReportSummary:
		return s.summary(ctx)
	default:
		return nil, ErrUnknownReportType
	}
}

func (s *reportService) daily(ctx context.Context) (map[string]any, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	revenue, err := s.repo.DailyRevenue(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}

	occupied, err := s.repo.OccupiedSpots(ctx)
	if err != nil {
		return nil, fmt.Errorf("occupancy: %w", err)
	}

	violations, err := s.repo.OvertimeViolations(ctx)
	if err != nil {
		return nil, fmt.Errorf("violations: %w", err)
	}

	return map[string]any{
		"revenue": revenue,
		"occupancy": map[string]any{
			"occupied":      occupied,
			"available":     int64(s.totalSpots) - occupied,
			"occupancyRate": float64(occupied) / float64(s.totalSpots),
		},
		"violations": violations,
	}, nil
}

func (s *reportService) monthly(ctx context.Context) (map[string]any, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	revenue, err := s.repo.DailyRevenue(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}

	var total float64
	for _, row := range revenue {
		total += row.Revenue
	}
	days := monthEnd.Sub(monthStart).Hours() / 24

	topUsers, err := s.repo.TopUsers(ctx, topUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}

	return map[string]any{
		"monthlyRevenue": map[string]any{
			"total":   total,
			"average": total / days,
		},
		"topUsers": topUsers,
	}, nil
}

func (s *reportService) summary(ctx context.Context) (map[string]any, error) {
	totalRevenue, err := s.repo.TotalRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("total revenue: %w", err)
	}

	totalParkings, err := s.repo.TotalParkings(ctx)
	if err != nil {
		return nil, fmt.Errorf("total parkings: %w", err)
	}

	activeUsers, err := s.repo.ActiveUsersSince(ctx, s.now().Add(-activeUserHoriz))
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}

	return map[string]any{
		"totalRevenue":  totalRevenue,
		"totalParkings": totalParkings,
		"activeUsers":   activeUsers,
	}, nil
}
