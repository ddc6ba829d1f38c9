package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nexothsav/hackportal/internal/models"
)

// Memory is a thread-safe in-process Store.
type Memory struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	emails        map[string]string // lower(email) -> user id
	userOrder     []string
	teams         map[string]*models.Team
	codes         map[string]string // upper(invite code) -> team id
	teamOrder     []string
	announcements []*models.Announcement
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*models.User),
		emails: make(map[string]string),
		teams:  make(map[string]*models.Team),
		codes:  make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

// --- Users ---

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.users[id].Clone(), nil
}

func (m *Memory) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		list = append(list, m.users[id].Clone())
	}
	return list, nil
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	email := strings.ToLower(u.Email)
	if _, ok := m.emails[email]; ok {
		return ErrDuplicate
	}
	m.users[u.ID] = u.Clone()
	m.emails[email] = u.ID
	m.userOrder = append(m.userOrder, u.ID)
	return nil
}

func (m *Memory) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	oldEmail, newEmail := strings.ToLower(old.Email), strings.ToLower(u.Email)
	if oldEmail != newEmail {
		if _, taken := m.emails[newEmail]; taken {
			return ErrDuplicate
		}
		delete(m.emails, oldEmail)
		m.emails[newEmail] = u.ID
	}
	m.users[u.ID] = u.Clone()
	return nil
}

func (m *Memory) ConsumeMeal(_ context.Context, userID string, meal models.MealType, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	status := u.Meals.Get(meal)
	if status.Consumed {
		return false, nil
	}
	status.Consumed = true
	status.ConsumedAt = &at
	u.Meals.Set(meal, status)
	u.UpdatedAt = at
	return true, nil
}

func (m *Memory) MarkPaid(_ context.Context, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if u.PaymentStatus == models.PaymentPaid {
		return false, nil
	}
	u.PaymentStatus = models.PaymentPaid
	u.ParticipantQRData = u.ID
	for _, t := range models.MealTypes {
		s := u.Meals.Get(t)
		s.Eligible = true
		u.Meals.Set(t, s)
	}
	u.UpdatedAt = at
	return true, nil
}

func (m *Memory) SetUserTeam(_ context.Context, userID, teamID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if u.HasTeam() {
		return false, nil
	}
	u.TeamID = teamID
	u.UpdatedAt = at
	return true, nil
}

func (m *Memory) ClearUserTeam(_ context.Context, userID, teamID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if u.TeamID != teamID {
		return false, nil
	}
	u.TeamID = ""
	u.UpdatedAt = at
	return true, nil
}

// --- Teams ---

func (m *Memory) GetTeam(_ context.Context, id string) (*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) GetTeamByInviteCode(_ context.Context, code string) (*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codes[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.teams[id].Clone(), nil
}

func (m *Memory) ListTeams(_ context.Context) ([]*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*models.Team, 0, len(m.teamOrder))
	for _, id := range m.teamOrder {
		list = append(list, m.teams[id].Clone())
	}
	return list, nil
}

func (m *Memory) CreateTeam(_ context.Context, t *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; ok {
		return ErrDuplicate
	}
	code := strings.ToUpper(t.InviteCode)
	if _, ok := m.codes[code]; ok {
		return ErrDuplicate
	}
	m.teams[t.ID] = t.Clone()
	m.codes[code] = t.ID
	m.teamOrder = append(m.teamOrder, t.ID)
	return nil
}

func (m *Memory) SaveTeam(_ context.Context, t *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.teams[t.ID]
	if !ok {
		return ErrNotFound
	}
	oldCode, newCode := strings.ToUpper(old.InviteCode), strings.ToUpper(t.InviteCode)
	if oldCode != newCode {
		if _, taken := m.codes[newCode]; taken {
			return ErrDuplicate
		}
		delete(m.codes, oldCode)
		m.codes[newCode] = t.ID
	}
	m.teams[t.ID] = t.Clone()
	return nil
}

// --- Announcements ---

// ListAnnouncements returns announcements newest first.
func (m *Memory) ListAnnouncements(_ context.Context) ([]*models.Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*models.Announcement, 0, len(m.announcements))
	for _, a := range m.announcements {
		c := *a
		list = append(list, &c)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	return list, nil
}

func (m *Memory) CreateAnnouncement(_ context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.announcements = append(m.announcements, &c)
	return nil
}
