package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexothsav/hackportal/internal/models"
)

// Postgres is a Store backed by PostgreSQL. Meals and submissions are jsonb columns.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL store over an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

const userColumns = `id, name, email, COALESCE(phone,''), role, COALESCE(team_id,''), payment_status,
	COALESCE(participant_qr_data,''), meals, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role, payment string
	var meals []byte
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.TeamID, &payment,
		&u.ParticipantQRData, &meals, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.PaymentStatus = models.PaymentStatus(payment)
	u.Meals = models.DefaultMeals()
	if len(meals) > 0 {
		if err := json.Unmarshal(meals, &u.Meals); err != nil {
			return nil, fmt.Errorf("decode meals for %s: %w", u.ID, err)
		}
	}
	return &u, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// GetUser returns a user by ID.
func (p *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email, ignoring case.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// ListUsers returns all users in registration order.
func (p *Postgres) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// CreateUser inserts a new user.
func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	meals, err := json.Marshal(u.Meals)
	if err != nil {
		return fmt.Errorf("encode meals: %w", err)
	}
	const q = `INSERT INTO users (id, name, email, phone, role, team_id, payment_status, participant_qr_data, meals, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), $7, NULLIF($8,''), $9::jsonb, $10, $11)`
	_, err = p.pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.Phone, string(u.Role), u.TeamID,
		string(u.PaymentStatus), u.ParticipantQRData, string(meals), u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

// SaveUser replaces every column of an existing user.
func (p *Postgres) SaveUser(ctx context.Context, u *models.User) error {
	meals, err := json.Marshal(u.Meals)
	if err != nil {
		return fmt.Errorf("encode meals: %w", err)
	}
	const q = `UPDATE users SET name = $2, email = $3, phone = NULLIF($4,''), role = $5, team_id = NULLIF($6,''),
		payment_status = $7, participant_qr_data = NULLIF($8,''), meals = $9::jsonb, updated_at = $10
		WHERE id = $1`
	tag, err := p.pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.Phone, string(u.Role), u.TeamID,
		string(u.PaymentStatus), u.ParticipantQRData, string(meals), u.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeMeal is a conditional update: the row only changes while the session is unconsumed,
// so two server instances racing on the same pair cannot both win.
func (p *Postgres) ConsumeMeal(ctx context.Context, userID string, meal models.MealType, at time.Time) (bool, error) {
	const q = `UPDATE users
		SET meals = jsonb_set(meals, ARRAY[$2::text],
				(meals -> $2::text) || jsonb_build_object('consumed', true, 'consumed_at', $3::text)),
			updated_at = $4
		WHERE id = $1 AND COALESCE((meals -> $2::text ->> 'consumed')::boolean, false) = false`
	tag, err := p.pool.Exec(ctx, q, userID, meal.Key(), at.UTC().Format(time.RFC3339Nano), at)
	if err != nil {
		return false, err
	}
	return p.conditionalResult(ctx, userID, tag)
}

// MarkPaid only updates rows that are not PAID yet.
func (p *Postgres) MarkPaid(ctx context.Context, userID string, at time.Time) (bool, error) {
	const q = `UPDATE users
		SET payment_status = 'PAID',
			participant_qr_data = id,
			meals = jsonb_set(jsonb_set(jsonb_set(meals,
				'{breakfast,eligible}', 'true'), '{lunch,eligible}', 'true'), '{dinner,eligible}', 'true'),
			updated_at = $2
		WHERE id = $1 AND payment_status <> 'PAID'`
	tag, err := p.pool.Exec(ctx, q, userID, at)
	if err != nil {
		return false, err
	}
	return p.conditionalResult(ctx, userID, tag)
}

// SetUserTeam only updates users without a team.
func (p *Postgres) SetUserTeam(ctx context.Context, userID, teamID string, at time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET team_id = $2, updated_at = $3 WHERE id = $1 AND team_id IS NULL`,
		userID, teamID, at)
	if err != nil {
		return false, err
	}
	return p.conditionalResult(ctx, userID, tag)
}

// ClearUserTeam only updates users still linked to teamID.
func (p *Postgres) ClearUserTeam(ctx context.Context, userID, teamID string, at time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET team_id = NULL, updated_at = $3 WHERE id = $1 AND team_id = $2`,
		userID, teamID, at)
	if err != nil {
		return false, err
	}
	return p.conditionalResult(ctx, userID, tag)
}

// conditionalResult turns a guarded UPDATE into (applied, error), telling a missing user apart
// from a guard that did not hold.
func (p *Postgres) conditionalResult(ctx context.Context, userID string, tag pgconn.CommandTag) (bool, error) {
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

const teamColumns = `id, name, description, invite_code, leader_id, members, submission, created_at, updated_at`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	var submission []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.InviteCode, &t.LeaderID, &t.Members,
		&submission, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(submission) > 0 {
		var s models.TeamSubmission
		if err := json.Unmarshal(submission, &s); err != nil {
			return nil, fmt.Errorf("decode submission for %s: %w", t.ID, err)
		}
		t.Submission = &s
	}
	return &t, nil
}

func encodeSubmission(s *models.TeamSubmission) (*string, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	str := string(b)
	return &str, nil
}

// GetTeam returns a team by ID.
func (p *Postgres) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, err := scanTeam(p.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// GetTeamByInviteCode returns the team owning an invite code, ignoring case.
func (p *Postgres) GetTeamByInviteCode(ctx context.Context, code string) (*models.Team, error) {
	t, err := scanTeam(p.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE upper(invite_code) = upper($1)`, code))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// ListTeams returns all teams in creation order.
func (p *Postgres) ListTeams(ctx context.Context) ([]*models.Team, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateTeam inserts a new team.
func (p *Postgres) CreateTeam(ctx context.Context, t *models.Team) error {
	submission, err := encodeSubmission(t.Submission)
	if err != nil {
		return err
	}
	const q = `INSERT INTO teams (id, name, description, invite_code, leader_id, members, submission, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`
	_, err = p.pool.Exec(ctx, q, t.ID, t.Name, t.Description, t.InviteCode, t.LeaderID, t.Members,
		submission, t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

// SaveTeam replaces every column of an existing team.
func (p *Postgres) SaveTeam(ctx context.Context, t *models.Team) error {
	submission, err := encodeSubmission(t.Submission)
	if err != nil {
		return err
	}
	const q = `UPDATE teams SET name = $2, description = $3, invite_code = $4, leader_id = $5, members = $6,
		submission = $7::jsonb, updated_at = $8 WHERE id = $1`
	tag, err := p.pool.Exec(ctx, q, t.ID, t.Name, t.Description, t.InviteCode, t.LeaderID, t.Members,
		submission, t.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAnnouncements returns announcements newest first.
func (p *Postgres) ListAnnouncements(ctx context.Context) ([]*models.Announcement, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, title, message, author, created_at FROM announcements ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.Author, &a.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// CreateAnnouncement inserts an announcement.
func (p *Postgres) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	const q = `INSERT INTO announcements (id, title, message, author, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := p.pool.Exec(ctx, q, a.ID, a.Title, a.Message, a.Author, a.Timestamp)
	return mapErr(err)
}
