package service

import (
	"context"
	"testing"
	"time"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- Mock ReservationRepository ---

type mockReservationRepo struct {
	createFn       func(ctx context.Context, tx *gorm.DB, res *models.Reservation) error
	activeByUserFn func(ctx context.Context, tx *gorm.DB, username string) (*models.Reservation, error)
	byCodeFn       func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error)
	updateStatusFn func(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error
	expireFn       func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockReservationRepo) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	if m.createFn != nil {
		return m.createFn(ctx, tx, res)
	}
	return nil
}
func (m *mockReservationRepo) FindActiveByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.Reservation, error) {
	if m.activeByUserFn != nil {
		return m.activeByUserFn(ctx, tx, username)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockReservationRepo) FindByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
	return m.byCodeFn(ctx, tx, code)
}
func (m *mockReservationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, code, status)
	}
	return nil
}
func (m *mockReservationRepo) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	return false, nil
}
func (m *mockReservationRepo) ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.expireFn != nil {
		return m.expireFn(ctx, cutoff)
	}
	return 0, nil
}

// --- Stub ParkingService ---

type stubParkingService struct {
	enterTxFn func(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error)
}

func (s *stubParkingService) CheckAvailability(ctx context.Context) (int64, error) { return 0, nil }
func (s *stubParkingService) Enter(ctx context.Context, username string) (*models.ParkingOrder, error) {
	return s.enterTxFn(ctx, nil, username)
}
func (s *stubParkingService) EnterTx(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
	return s.enterTxFn(ctx, tx, username)
}
func (s *stubParkingService) Exit(ctx context.Context, code string) (float64, error) { return 0, nil }
func (s *stubParkingService) Extend(ctx context.Context, code string, hours int) error {
	return nil
}
func (s *stubParkingService) ActiveOrders(ctx context.Context) ([]models.ParkingOrder, error) {
	return nil, nil
}

// --- Tests ---

func newReservationService(repo *mockReservationRepo, parking ParkingService) *reservationService {
	return NewReservationService(repo, parking, fakeTxManager{}, nil, zap.NewNop()).(*reservationService)
}

func TestReserve_Success(t *testing.T) {
	var created *models.Reservation
	repo := &mockReservationRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
			created = res
			return nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local) }

	code, err := svc.Reserve(context.Background(), "alice", "2099-01-01 10:00")

	assert.NoError(t, err)
	assert.Regexp(t, `^\d{5}$`, code)
	assert.NotNil(t, created)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, models.ReservationActive, created.Status)
	assert.Equal(t, time.Date(2099, 1, 1, 10, 0, 0, 0, time.Local), created.ReservationTime)
}

func TestReserve_InvalidFormat(t *testing.T) {
	svc := newReservationService(&mockReservationRepo{}, &stubParkingService{})

	_, err := svc.Reserve(context.Background(), "alice", "01/01/2099 10:00")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestReserve_PastAndPresentRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

	svc := newReservationService(&mockReservationRepo{}, &stubParkingService{})
	svc.now = func() time.Time { return now }

	_, err := svc.Reserve(context.Background(), "alice", "2026-02-28 10:00")
	assert.ErrorIs(t, err, ErrPastDate)

	// The present instant is not a future time.
	_, err = svc.Reserve(context.Background(), "alice", "2026-03-01 10:00")
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestReserve_AlreadyReserved(t *testing.T) {
	repo := &mockReservationRepo{
		activeByUserFn: func(ctx context.Context, tx *gorm.DB, username string) (*models.Reservation, error) {
			return &models.Reservation{Code: "10001", Username: username, Status: models.ReservationActive}, nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local) }

	_, err := svc.Reserve(context.Background(), "alice", "2099-06-01 12:00")
	assert.ErrorIs(t, err, ErrAlreadyReserved)
}

func TestCancel_Success(t *testing.T) {
	var newStatus models.ReservationStatus
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "alice", Status: models.ReservationActive}, nil
		},
		updateStatusFn: func(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error {
			newStatus = status
			return nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	err := svc.Cancel(context.Background(), "alice", "10001")

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, newStatus)
}

func TestCancel_NotOwnerOrInactive(t *testing.T) {
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "bob", Status: models.ReservationActive}, nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	assert.ErrorIs(t, svc.Cancel(context.Background(), "alice", "10001"), ErrReservationNotFound)

	repo.byCodeFn = func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
		return &models.Reservation{Code: code, Username: "alice", Status: models.ReservationCancelled}, nil
	}
	assert.ErrorIs(t, svc.Cancel(context.Background(), "alice", "10001"), ErrReservationNotFound)

	repo.byCodeFn = func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
		return nil, gorm.ErrRecordNotFound
	}
	assert.ErrorIs(t, svc.Cancel(context.Background(), "alice", "99999"), ErrReservationNotFound)
}

func TestActivate_Success(t *testing.T) {
	resTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var statusSet models.ReservationStatus
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "alice", ReservationTime: resTime, Status: models.ReservationActive}, nil
		},
		updateStatusFn: func(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error {
			statusSet = status
			return nil
		},
	}
	parking := &stubParkingService{
		enterTxFn: func(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
			return &models.ParkingOrder{Code: "P123456", Username: username, SpotID: 1}, nil
		},
	}

	svc := newReservationService(repo, parking)
	svc.now = func() time.Time { return resTime.Add(10 * time.Minute) }

	order, err := svc.Activate(context.Background(), "alice", "10001")

	assert.NoError(t, err)
	assert.Equal(t, "P123456", order.Code)
	assert.Equal(t, models.ReservationActivated, statusSet)
}

func TestActivate_WindowBoundariesExcluded(t *testing.T) {
	resTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "alice", ReservationTime: resTime, Status: models.ReservationActive}, nil
		},
	}
	parking := &stubParkingService{
		enterTxFn: func(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
			return &models.ParkingOrder{Code: "P123456"}, nil
		},
	}

	svc := newReservationService(repo, parking)

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"too early", resTime.Add(-31 * time.Minute), false},
		{"lower boundary excluded", resTime.Add(-30 * time.Minute), false},
		{"just inside lower", resTime.Add(-29 * time.Minute), true},
		{"exact reservation time", resTime, true},
		{"just inside upper", resTime.Add(29 * time.Minute), true},
		{"upper boundary excluded", resTime.Add(30 * time.Minute), false},
		{"too late", resTime.Add(31 * time.Minute), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc.now = func() time.Time { return tc.now }
			_, err := svc.Activate(context.Background(), "alice", "10001")
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOutsideWindow)
			}
		})
	}
}

func TestActivate_NotOwner(t *testing.T) {
	resTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "bob", ReservationTime: resTime, Status: models.ReservationActive}, nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	svc.now = func() time.Time { return resTime }

	_, err := svc.Activate(context.Background(), "alice", "10001")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestActivate_TerminalStatus(t *testing.T) {
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "alice", Status: models.ReservationExpired}, nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	_, err := svc.Activate(context.Background(), "alice", "10001")

	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestActivate_ParkingEntryFails(t *testing.T) {
	resTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	statusFlipped := false
	repo := &mockReservationRepo{
		byCodeFn: func(ctx context.Context, tx *gorm.DB, code string) (*models.Reservation, error) {
			return &models.Reservation{Code: code, Username: "alice", ReservationTime: resTime, Status: models.ReservationActive}, nil
		},
		updateStatusFn: func(ctx context.Context, tx *gorm.DB, code string, status models.ReservationStatus) error {
			statusFlipped = true
			return nil
		},
	}
	parking := &stubParkingService{
		enterTxFn: func(ctx context.Context, tx *gorm.DB, username string) (*models.ParkingOrder, error) {
			return nil, ErrNoSpotAvailable
		},
	}

	svc := newReservationService(repo, parking)
	svc.now = func() time.Time { return resTime }

	_, err := svc.Activate(context.Background(), "alice", "10001")

	// The error surfaces from inside the transaction, so the status flip
	// rolls back with it.
	assert.ErrorIs(t, err, ErrNoSpotAvailable)
	assert.True(t, statusFlipped)
}

func TestExpireOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var gotCutoff time.Time
	repo := &mockReservationRepo{
		expireFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 3, nil
		},
	}

	svc := newReservationService(repo, &stubParkingService{})
	svc.now = func() time.Time { return now }

	count, err := svc.ExpireOverdue(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, now.Add(-30*time.Minute), gotCutoff)
}
