// Package teams implements team formation: create, join by invite code, and project submission.
package teams

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
	"github.com/nexothsav/hackportal/pkg/codes"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAlreadyOnTeam          = errors.New("you are already in a team")
	ErrInvalidInviteCode      = errors.New("invalid invite code")
	ErrTeamFull               = fmt.Errorf("team is full (max %d members)", models.MaxTeamSize)
	ErrAlreadyMember          = errors.New("already a member")
	ErrTeamNotFound           = errors.New("team not found")
	ErrNotLeader              = errors.New("only the team leader can submit")
	ErrNameRequired           = errors.New("team name is required")
	ErrInvalidGitHubURL       = errors.New("invalid GitHub URL")
	ErrInvalidPresentationURL = errors.New("invalid presentation URL")
)

var (
	githubRepoRegex    = regexp.MustCompile(`(?i)^https?://(www\.)?github\.com/[\w-]+/[\w.-]+/?$`)
	presentationRegexs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(www\.)?drive\.google\.com/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?docs\.google\.com/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?youtube\.com/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?youtu\.be/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?canva\.com/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?figma\.com/`),
		regexp.MustCompile(`(?i)^https?://(www\.)?pitch\.com/`),
	}
)

// IsValidGitHubURL reports whether u points at a GitHub repository.
func IsValidGitHubURL(u string) bool {
	return githubRepoRegex.MatchString(u)
}

// IsValidPresentationURL reports whether u is hosted on a supported slides or video site.
func IsValidPresentationURL(u string) bool {
	for _, re := range presentationRegexs {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// Service runs team operations. Create and join are serialized by one mutex so member counts and
// user team links are checked and written together. The mutex is per process: across instances the
// store keeps each user on one team, but simultaneous joins to the same team can exceed the cap.
type Service struct {
	users  store.Users
	teams  store.Teams
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a team service.
func NewService(users store.Users, teams store.Teams, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, teams: teams, now: time.Now, logger: logger}
}

// CreateTeam makes creatorID the leader and sole member of a new team with a fresh invite code.
func (s *Service) CreateTeam(ctx context.Context, name, description, creatorID string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creator, err := s.loadUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.HasTeam() {
		return nil, ErrAlreadyOnTeam
	}

	code, err := codes.NewUniqueInviteCode(func(c string) (bool, error) {
		_, err := s.teams.GetTeamByInviteCode(ctx, c)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	team := &models.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		InviteCode:  code,
		LeaderID:    creatorID,
		Members:     []string{creatorID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.link(ctx, creatorID, team.ID, now); err != nil {
		return nil, err
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		s.unlink(ctx, creatorID, team.ID)
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.logger.Info("team created", zap.String("team_id", team.ID), zap.String("leader_id", creatorID))
	return team, nil
}

// JoinTeamByCode adds userID to the team whose invite code matches case-insensitively.
func (s *Service) JoinTeamByCode(ctx context.Context, code, userID string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasTeam() {
		return nil, ErrAlreadyOnTeam
	}

	code = codes.NormalizeInviteCode(code)
	if code == "" {
		return nil, ErrInvalidInviteCode
	}
	team, err := s.teams.GetTeamByInviteCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidInviteCode
	}
	if err != nil {
		return nil, fmt.Errorf("find team by code: %w", err)
	}
	if team.IsFull() {
		return nil, ErrTeamFull
	}
	if team.HasMember(userID) {
		return nil, ErrAlreadyMember
	}

	now := s.now()
	if err := s.link(ctx, userID, team.ID, now); err != nil {
		return nil, err
	}
	team.Members = append(team.Members, userID)
	team.UpdatedAt = now
	if err := s.teams.SaveTeam(ctx, team); err != nil {
		s.unlink(ctx, userID, team.ID)
		return nil, fmt.Errorf("save team %s: %w", team.ID, err)
	}

	s.logger.Info("team joined", zap.String("team_id", team.ID), zap.String("user_id", userID))
	return team, nil
}

// SubmitProject records the team's repository and presentation links. Only the leader may submit;
// a later submission replaces the earlier one.
func (s *Service) SubmitProject(ctx context.Context, teamID, leaderID, githubURL, presentationURL string) (*models.Team, error) {
	githubURL, presentationURL = strings.TrimSpace(githubURL), strings.TrimSpace(presentationURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID != leaderID {
		return nil, ErrNotLeader
	}
	if !IsValidGitHubURL(githubURL) {
		return nil, ErrInvalidGitHubURL
	}
	if !IsValidPresentationURL(presentationURL) {
		return nil, ErrInvalidPresentationURL
	}

	now := s.now()
	team.Submission = &models.TeamSubmission{GitHubURL: githubURL, PresentationURL: presentationURL, SubmittedAt: now}
	team.UpdatedAt = now
	if err := s.teams.SaveTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return team, nil
}

// GetTeam returns a team by ID.
func (s *Service) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teams.GetTeam(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}
	return team, nil
}

// Members returns the public profiles of a team's members in join order.
func (s *Service) Members(ctx context.Context, teamID string) ([]models.UserPublic, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserPublic, 0, len(team.Members))
	for _, id := range team.Members {
		u, err := s.users.GetUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get member %s: %w", id, err)
		}
		out = append(out, u.ToPublic())
	}
	return out, nil
}

// link sets the user's team without rewriting the rest of the record, so meal state written
// concurrently by a scanner is never clobbered. It runs before the team record is written: a user
// that cannot be linked never appears in a member list.
func (s *Service) link(ctx context.Context, userID, teamID string, at time.Time) error {
	ok, err := s.users.SetUserTeam(ctx, userID, teamID, at)
	if err != nil {
		return fmt.Errorf("link user %s to team %s: %w", userID, teamID, err)
	}
	if !ok {
		s.logger.Warn("user joined another team concurrently", zap.String("user_id", userID), zap.String("team_id", teamID))
		return ErrAlreadyOnTeam
	}
	return nil
}

// unlink undoes link after the team write failed.
func (s *Service) unlink(ctx context.Context, userID, teamID string) {
	ok, err := s.users.ClearUserTeam(ctx, userID, teamID, s.now())
	if err != nil || !ok {
		s.logger.Error("unlink user after failed team write", zap.String("user_id", userID),
			zap.String("team_id", teamID), zap.Bool("cleared", ok), zap.Error(err))
	}
}

func (s *Service) loadUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}
