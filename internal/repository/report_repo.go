package repository

import (
	"context"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"gorm.io/gorm"
)

type DailyRevenueRow struct {
	Day     time.Time `json:"day"`
	Revenue float64   `json:"revenue"`
}

type ViolationRow struct {
	Code             string    `json:"code"`
	Username         string    `json:"username"`
	ExpectedExitTime time.Time `json:"expected_exit_time"`
}

type TopUserRow struct {
	Username     string  `json:"username"`
	ParkingCount int64   `json:"parking_count"`
	TotalSpent   float64 `json:"total_spent"`
}

// ReportRepository serves read-only aggregations; nothing here mutates state.
type ReportRepository interface {
	HistoryByUsername(ctx context.Context, username string, limit int) ([]models.ParkingOrder, error)
	DailyRevenue(ctx context.Context, from, to time.Time) ([]DailyRevenueRow, error)
	OccupiedSpots(ctx context.Context) (int64, error)
	OvertimeViolations(ctx context.Context) ([]ViolationRow, error)
	TopUsers(ctx context.Context, limit int) ([]TopUserRow, error)
	TotalRevenue(ctx context.Context) (float64, error)
	TotalParkings(ctx context.Context) (int64, error)
	ActiveUsersSince(ctx context.Context, since time.Time) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) HistoryByUsername(ctx context.Context, username string, limit int) ([]models.ParkingOrder, error) {
	var orders []models.ParkingOrder
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("entry_time DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *reportRepository) DailyRevenue(ctx context.Context, from, to time.Time) ([]DailyRevenueRow, error) {
	var rows []DailyRevenueRow
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Select("DATE_TRUNC('day', exit_time) AS day, SUM(total_cost) AS revenue").
		Where("exit_time IS NOT NULL AND exit_time >= ? AND exit_time < ?", from, to).
		Group("DATE_TRUNC('day', exit_time)").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) OccupiedSpots(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingSpot{}).
		Where("is_occupied = ?", true).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) OvertimeViolations(ctx context.Context) ([]ViolationRow, error) {
	var rows []ViolationRow
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Select("code, username, expected_exit_time").
		Where("exit_time IS NULL AND expected_exit_time < ?", time.Now()).
		Order("expected_exit_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) TopUsers(ctx context.Context, limit int) ([]TopUserRow, error) {
	var rows []TopUserRow
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Select("username, COUNT(*) AS parking_count, SUM(total_cost) AS total_spent").
		Where("exit_time IS NOT NULL").
		Group("username").
		Order("parking_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Select("COALESCE(SUM(total_cost), 0)").
		Where("exit_time IS NOT NULL").
		Scan(&total).Error
	return total, err
}

func (r *reportRepository) TotalParkings(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) ActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingOrder{}).
		Distinct("username").
		Where("entry_time >= ?", since).
		Count(&count).Error
	return count, err
}
