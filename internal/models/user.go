package models

import (
	"time"
)

// Role represents user role in the portal.
type Role string

const (
	RoleParticipant Role = "PARTICIPANT"
	RoleOrganizer   Role = "ORGANIZER"
	RoleAdmin       Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may use the admin panel and meal scanner.
// Organizers are treated the same as admins.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleOrganizer:
		return true
	case RoleParticipant:
		return false
	}
	return false
}

// PaymentStatus of a user's entry fee.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// User represents a hackathon portal user.
type User struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone,omitempty"`
	Role              Role          `json:"role"`
	TeamID            string        `json:"team_id,omitempty"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	ParticipantQRData string        `json:"participant_qr_data,omitempty"`
	Meals             Meals         `json:"meals"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// UserPublic is User without meal and payment details, for member listings.
type UserPublic struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	TeamID string `json:"team_id,omitempty"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		TeamID: u.TeamID,
	}
}

// HasTeam reports whether the user is linked to a team.
func (u *User) HasTeam() bool {
	return u.TeamID != ""
}

// Clone returns a copy of u that shares no mutable state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Meals = u.Meals.clone()
	return &c
}
