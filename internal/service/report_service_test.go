package service

import (
	"context"
	"testing"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/parkhub/parking-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockReportRepo struct {
	historyFn      func(ctx context.Context, username string, limit int) ([]models.ParkingOrder, error)
	dailyRevenueFn func(ctx context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error)
	occupiedFn     func(ctx context.Context) (int64, error)
	violationsFn   func(ctx context.Context) ([]repository.ViolationRow, error)
	topUsersFn     func(ctx context.Context, limit int) ([]repository.TopUserRow, error)
	totalRevenueFn func(ctx context.Context) (float64, error)
	totalCountFn   func(ctx context.Context) (int64, error)
	activeUsersFn  func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockReportRepo) HistoryByUsername(ctx context.Context, username string, limit int) ([]models.ParkingOrder, error) {
	return m.historyFn(ctx, username, limit)
}
func (m *mockReportRepo) DailyRevenue(ctx context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error) {
	return m.dailyRevenueFn(ctx, from, to)
}
func (m *mockReportRepo) OccupiedSpots(ctx context.Context) (int64, error) {
	return m.occupiedFn(ctx)
}
func (m *mockReportRepo) OvertimeViolations(ctx context.Context) ([]repository.ViolationRow, error) {
	return m.violationsFn(ctx)
}
func (m *mockReportRepo) TopUsers(ctx context.Context, limit int) ([]repository.TopUserRow, error) {
	return m.topUsersFn(ctx, limit)
}
func (m *mockReportRepo) TotalRevenue(ctx context.Context) (float64, error) {
	return m.totalRevenueFn(ctx)
}
func (m *mockReportRepo) TotalParkings(ctx context.Context) (int64, error) {
	return m.totalCountFn(ctx)
}
func (m *mockReportRepo) ActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	return m.activeUsersFn(ctx, since)
}

func TestGenerate_UnknownKind(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, 100, zap.NewNop())

	_, err := svc.Generate(context.Background(), "WEEKLY")
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

func TestGenerate_Daily(t *testing.T) {
	repo := &mockReportRepo{
		dailyRevenueFn: func(ctx context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error) {
			assert.Equal(t, 24*time.Hour, to.Sub(from))
			return []repository.DailyRevenueRow{{Day: from, Revenue: 120}}, nil
		},
		occupiedFn: func(ctx context.Context) (int64, error) { return 30, nil },
		violationsFn: func(ctx context.Context) ([]repository.ViolationRow, error) {
			return []repository.ViolationRow{{Code: "P000001", Username: "alice"}}, nil
		},
	}

	svc := NewReportService(repo, 100, zap.NewNop())
	report, err := svc.Generate(context.Background(), ReportDaily)

	assert.NoError(t, err)

	occupancy, ok := report["occupancy"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, int64(30), occupancy["occupied"])
	assert.Equal(t, int64(70), occupancy["available"])
	assert.InDelta(t, 0.3, occupancy["occupancyRate"], 1e-9)
	assert.Len(t, report["violations"], 1)
}

func TestGenerate_Summary(t *testing.T) {
	repo := &mockReportRepo{
		totalRevenueFn: func(ctx context.Context) (float64, error) { return 5500, nil },
		totalCountFn:   func(ctx context.Context) (int64, error) { return 321, nil },
		activeUsersFn:  func(ctx context.Context, since time.Time) (int64, error) { return 17, nil },
	}

	svc := NewReportService(repo, 100, zap.NewNop())
	report, err := svc.Generate(context.Background(), ReportSummary)

	assert.NoError(t, err)
	assert.Equal(t, 5500.0, report["totalRevenue"])
	assert.Equal(t, int64(321), report["totalParkings"])
	assert.Equal(t, int64(17), report["activeUsers"])
}

func TestGenerate_MonthlyAverages(t *testing.T) {
	repo := &mockReportRepo{
		dailyRevenueFn: func(ctx context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error) {
			return []repository.DailyRevenueRow{
				{Day: from, Revenue: 100},
				{Day: from.AddDate(0, 0, 1), Revenue: 200},
			}, nil
		},
		topUsersFn: func(ctx context.Context, limit int) ([]repository.TopUserRow, error) {
			assert.Equal(t, topUsersLimit, limit)
			return []repository.TopUserRow{{Username: "alice", ParkingCount: 9}}, nil
		},
	}

	svc := NewReportService(repo, 100, zap.NewNop()).(*reportService)
	svc.now = func() time.Time { return time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC) }

	report, err := svc.Generate(context.Background(), ReportMonthly)

	assert.NoError(t, err)
	monthly, ok := report["monthlyRevenue"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 300.0, monthly["total"])
	assert.InDelta(t, 10.0, monthly["average"], 1e-9) // April has 30 days
	assert.Len(t, report["topUsers"], 1)
}

func TestParkingHistory_AppliesLimit(t *testing.T) {
	repo := &mockReportRepo{
		historyFn: func(ctx context.Context, username string, limit int) ([]models.ParkingOrder, error) {
			assert.Equal(t, historyLimit, limit)
			return []models.ParkingOrder{{Code: "P000001", Username: username}}, nil
		},
	}

	svc := NewReportService(repo, 100, zap.NewNop())
	orders, err := svc.ParkingHistory(context.Background(), "alice")

	assert.NoError(t, err)
	assert.Len(t, orders, 1)
}
