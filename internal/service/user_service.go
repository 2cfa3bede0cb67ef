package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/parkhub/parking-service/internal/models"
	"github.com/parkhub/parking-service/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyLoggedIn    = errors.New("user already logged in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
)

const codeAttempts = 5

// SessionChecker reports whether a username is bound to a live connection.
// The session registry satisfies it.
type SessionChecker interface {
	UsernameActive(username string) bool
}

type UserService interface {
	Login(ctx context.Context, username, code string) (*models.Subscriber, error)
	ManagerLogin(ctx context.Context, username, password string) (models.UserRole, error)
	Register(ctx context.Context, name, phone, email, carNumber, username string) (string, error)
	Logout(ctx context.Context, username string) error
	UpdateSubscriber(ctx context.Context, sub *models.Subscriber) error
	GetSubscriber(ctx context.Context, username string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]models.Subscriber, error)
	LostCode(ctx context.Context, username string) error
}

type userService struct {
	repo     repository.UserRepository
	tx       repository.TxManager
	sessions SessionChecker
	logger   *zap.Logger
}

func NewUserService(repo repository.UserRepository, tx repository.TxManager, sessions SessionChecker, logger *zap.Logger) UserService {
	return &userService{repo: repo, tx: tx, sessions: sessions, logger: logger}
}

func (s *userService) Login(ctx context.Context, username, code string) (*models.Subscriber, error) {
	if s.sessions.UsernameActive(username) {
		return nil, ErrAlreadyLoggedIn
	}

	sub, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find subscriber: %w", err)
	}

	if sub.Code != code {
		return nil, ErrInvalidCredentials
	}

	// Best-effort projection; the session registry stays authoritative.
	if err := s.repo.SetLoggedIn(ctx, username, true); err != nil {
		s.logger.Warn("failed to update login projection", zap.String("username", username), zap.Error(err))
	}

	s.logger.Info("subscriber logged in", zap.String("username", username))
	return sub, nil
}

func (s *userService) ManagerLogin(ctx context.Context, username, password string) (models.UserRole, error) {
	if s.sessions.UsernameActive(username) {
		return "", ErrAlreadyLoggedIn
	}

	sub, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if sub.Role != models.RoleAttendant && sub.Role != models.RoleManager {
		return "", ErrInvalidCredentials
	}
	if sub.Code != password {
		return "", ErrInvalidCredentials
	}

	if err := s.repo.SetLoggedIn(ctx, username, true); err != nil {
		s.logger.Warn("failed to update login projection", zap.String("username", username), zap.Error(err))
	}

	s.logger.Info("staff logged in", zap.String("username", username), zap.String("role", string(sub.Role)))
	return sub.Role, nil
}

func (s *userService) Register(ctx context.Context, name, phone, email, carNumber, username string) (string, error) {
	var code string

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.UsernameExists(ctx, tx, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return ErrUsernameExists
		}

		code, err = s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		sub := &models.Subscriber{
			Username:  username,
			Code:      code,
			Name:      name,
			Phone:     phone,
			Email:     email,
			CarNumber: carNumber,
			Role:      models.RoleSubscriber,
		}
		if err := s.repo.Create(ctx, tx, sub); err != nil {
			return fmt.Errorf("create subscriber: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("subscriber registered", zap.String("username", username))
	return code, nil
}

func (s *userService) Logout(ctx context.Context, username string) error {
	if err := s.repo.SetLoggedIn(ctx, username, false); err != nil {
		return fmt.Errorf("clear login projection: %w", err)
	}
	s.logger.Info("user logged out", zap.String("username", username))
	return nil
}

func (s *userService) UpdateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	if _, err := s.repo.FindByUsername(ctx, sub.Username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find subscriber: %w", err)
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("update subscriber: %w", err)
	}
	return nil
}

func (s *userService) GetSubscriber(ctx context.Context, username string) (*models.Subscriber, error) {
	sub, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return sub, nil
}

func (s *userService) ListSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	return s.repo.FindAll(ctx)
}

// LostCode re-sends the subscriber's code to the registered email address.
// Mail delivery is handled out of band; the code itself is never logged.
func (s *userService) LostCode(ctx context.Context, username string) error {
	sub, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find subscriber: %w", err)
	}

	s.logger.Info("lost code sent", zap.String("username", username), zap.String("email", sub.Email))
	return nil
}

func (s *userService) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		candidate := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
		exists, err := s.repo.CodeExists(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique subscriber code")
}
