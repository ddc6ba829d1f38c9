// Package store holds user, team and announcement records.
//
// Two implementations satisfy Store: Memory (process-lifetime maps) and Postgres (pgx pool).
// Callers never share memory with stored records; every read returns a fresh copy.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nexothsav/hackportal/internal/models"
)

var (
	// ErrNotFound is returned when a user, team or invite code does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field (email, invite code, id) is already taken.
	ErrDuplicate = errors.New("duplicate")
)

// Users is the user half of the store.
type Users interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	// SaveUser replaces the whole record. The user must exist. Writers that may race with ConsumeMeal
	// use the targeted updates below instead.
	SaveUser(ctx context.Context, u *models.User) error
	// ConsumeMeal flips one meal session to consumed at the given time and touches nothing else.
	// It returns false without writing when that session is already consumed.
	ConsumeMeal(ctx context.Context, userID string, meal models.MealType, at time.Time) (bool, error)
	// MarkPaid sets payment PAID, the QR payload to the user ID and every session eligible. Consumed
	// flags are left alone. It returns false without writing when the user is already PAID.
	MarkPaid(ctx context.Context, userID string, at time.Time) (bool, error)
	// SetUserTeam links a user to a team. It returns false without writing when the user already has one.
	SetUserTeam(ctx context.Context, userID, teamID string, at time.Time) (bool, error)
	// ClearUserTeam unlinks a user from teamID. It returns false without writing when the user is
	// linked to another team or none.
	ClearUserTeam(ctx context.Context, userID, teamID string, at time.Time) (bool, error)
}

// Teams is the team half of the store.
type Teams interface {
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	// GetTeamByInviteCode matches case-insensitively.
	GetTeamByInviteCode(ctx context.Context, code string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	CreateTeam(ctx context.Context, t *models.Team) error
	SaveTeam(ctx context.Context, t *models.Team) error
}

// Announcements is the announcement feed.
type Announcements interface {
	ListAnnouncements(ctx context.Context) ([]*models.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
}

// Store is everything the portal persists.
type Store interface {
	Users
	Teams
	Announcements
}
