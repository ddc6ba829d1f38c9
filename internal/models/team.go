package models

import (
	"time"
)

// MaxTeamSize is the maximum number of members in a team, leader included.
const MaxTeamSize = 4

// TeamSubmission is a team's final project hand-in.
type TeamSubmission struct {
	GitHubURL       string    `json:"github_url"`
	PresentationURL string    `json:"presentation_url"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Team is a hackathon team. The leader is always a member.
type Team struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InviteCode  string          `json:"invite_code"`
	LeaderID    string          `json:"leader_id"`
	Members     []string        `json:"members"`
	Submission  *TeamSubmission `json:"submission,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasMember reports whether userID is in the team.
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the team has reached MaxTeamSize.
func (t *Team) IsFull() bool {
	return len(t.Members) >= MaxTeamSize
}

// Clone returns a copy of t that shares no mutable state.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Members = append([]string(nil), t.Members...)
	if t.Submission != nil {
		s := *t.Submission
		c.Submission = &s
	}
	return &c
}
