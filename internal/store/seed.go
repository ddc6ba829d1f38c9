package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexothsav/hackportal/internal/models"
)

// SeedDemo loads the demo event: an admin, a paid team leader, an unpaid member, their team and a
// welcome announcement. Records that already exist are left untouched.
func SeedDemo(ctx context.Context, s Store, now time.Time) error {
	users := []*models.User{
		{ID: "admin1", Name: "Admin User", Email: "admin@hack.com", Role: models.RoleAdmin, PaymentStatus: models.PaymentPaid},
		{ID: "u1", Name: "Alice Hacker", Email: "alice@hack.com", Role: models.RoleParticipant, TeamID: "t1",
			PaymentStatus: models.PaymentPaid, ParticipantQRData: "u1"},
		{ID: "u2", Name: "Bob Coder", Email: "bob@hack.com", Role: models.RoleParticipant, TeamID: "t1",
			PaymentStatus: models.PaymentPending},
	}
	for _, u := range users {
		u.Meals = models.DefaultMeals()
		u.CreatedAt, u.UpdatedAt = now, now
		if err := s.CreateUser(ctx, u); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	team := &models.Team{
		ID:          "t1",
		Name:        "The Null Pointers",
		Description: "Building the next gen AI toaster.",
		InviteCode:  "NP2024",
		LeaderID:    "u1",
		Members:     []string{"u1", "u2"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.CreateTeam(ctx, team); err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("seed team: %w", err)
	}

	existing, err := s.ListAnnouncements(ctx)
	if err != nil {
		return fmt.Errorf("seed announcements: %w", err)
	}
	if len(existing) == 0 {
		a := &models.Announcement{
			ID:        "a1",
			Title:     "Welcome to Nexothsav!",
			Message:   "Get ready for **Srinathon** - our flagship 24-hour hackathon!",
			Author:    "Admin",
			Timestamp: now,
		}
		if err := s.CreateAnnouncement(ctx, a); err != nil {
			return fmt.Errorf("seed announcement: %w", err)
		}
	}
	return nil
}
