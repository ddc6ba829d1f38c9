package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
)

var (
	// ErrInvalidEmail is returned for an address that cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrUserNotFound is returned when looking up an unknown user ID.
	ErrUserNotFound = errors.New("user not found")
)

// Service resolves portal users by email, registering them on first sight.
type Service struct {
	users  store.Users
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(users store.Users, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, now: time.Now, logger: logger}
}

// FindOrCreateUser returns the user with this email (case-insensitive), creating one when none
// exists. created reports which happened.
func (s *Service) FindOrCreateUser(ctx context.Context, email string) (user *models.User, created bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("get user by email: %w", err)
	}

	now := s.now()
	u = &models.User{
		ID:            uuid.NewString(),
		Name:          strings.SplitN(email, "@", 2)[0],
		Email:         email,
		Role:          RoleForEmail(email),
		PaymentStatus: models.PaymentPending,
		Meals:         models.DefaultMeals(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Registered by a concurrent login.
			existing, gerr := s.users.GetUserByEmail(ctx, email)
			if gerr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, true, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// ListUsers returns every user in registration order.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}

// RoleForEmail assigns the role of a newly registered user: ADMIN when the address contains
// "admin", ORGANIZER when it contains "org", PARTICIPANT otherwise.
func RoleForEmail(email string) models.Role {
	e := strings.ToLower(email)
	switch {
	case strings.Contains(e, "admin"):
		return models.RoleAdmin
	case strings.Contains(e, "org"):
		return models.RoleOrganizer
	default:
		return models.RoleParticipant
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || strings.HasPrefix(email, "@") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
